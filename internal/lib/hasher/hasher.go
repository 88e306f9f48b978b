// Package hasher wraps bcrypt for one-way hashing of secrets.
// It is used identically for passwords and refresh tokens.
package hasher

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// Hash produces a salted one-way digest of secret. The salt is
// randomized per call, so hashing the same secret twice yields
// different outputs.
func Hash(secret string) ([]byte, error) {
	return bcrypt.GenerateFromPassword(digest(secret), bcrypt.DefaultCost)
}

// Verify reports whether candidate matches hash. A mismatch or a
// malformed hash both return false, never an error.
func Verify(hash []byte, candidate string) bool {
	return bcrypt.CompareHashAndPassword(hash, digest(candidate)) == nil
}

// digest pre-hashes the secret so inputs longer than bcrypt's 72-byte
// limit (signed refresh tokens are well past it) remain hashable.
func digest(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return []byte(base64.RawStdEncoding.EncodeToString(sum[:]))
}
