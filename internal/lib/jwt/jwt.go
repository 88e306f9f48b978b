// Package jwt issues and verifies the access/refresh token pair.
// The two token kinds are signed with independent secrets and TTLs,
// so a token of one kind never verifies as the other.
package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"session_service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims is the payload carried by both token kinds.
type Claims struct {
	UserID int64
	Email  string
}

type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssuePair signs an access and a refresh token for the same claims.
// The two signings run concurrently; if either fails the whole pair
// fails and nothing is returned.
func (i *Issuer) IssuePair(userID int64, email string) (models.TokenPair, error) {
	const op = "jwt.IssuePair"

	var (
		wg                    sync.WaitGroup
		access, refresh       string
		accessErr, refreshErr error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		access, accessErr = sign(userID, email, i.accessSecret, i.accessTTL)
	}()

	go func() {
		defer wg.Done()
		refresh, refreshErr = sign(userID, email, i.refreshSecret, i.refreshTTL)
	}()

	wg.Wait()

	if accessErr != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, accessErr)
	}
	if refreshErr != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, refreshErr)
	}

	return models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// VerifyAccess validates tokenStr against the access secret.
func (i *Issuer) VerifyAccess(tokenStr string) (Claims, error) {
	return verify(tokenStr, i.accessSecret)
}

// VerifyRefresh validates tokenStr against the refresh secret.
func (i *Issuer) VerifyRefresh(tokenStr string) (Claims, error) {
	return verify(tokenStr, i.refreshSecret)
}

func sign(userID int64, email string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()

	// iat/exp have second granularity, so without a per-issuance id two
	// tokens signed for the same user within one second would be
	// byte-identical and rotation could re-issue the presented token.
	claims := tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}

func verify(tokenStr string, secret []byte) (Claims, error) {
	const op = "jwt.verify"

	var claims tokenClaims

	parsed, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}

	if !parsed.Valid {
		return Claims{}, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}

	return Claims{
		UserID: userID,
		Email:  claims.Email,
	}, nil
}
