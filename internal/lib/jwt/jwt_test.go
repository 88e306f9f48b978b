package jwt_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwtlib "session_service/internal/lib/jwt"
)

func newTestIssuer(accessTTL, refreshTTL time.Duration) *jwtlib.Issuer {
	return jwtlib.NewIssuer("access-secret", "refresh-secret", accessTTL, refreshTTL)
}

func TestIssuePair_VerifyBothKinds(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(time.Hour, time.Hour)

	pair, err := issuer.IssuePair(42, "j@x.com")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatalf("access and refresh tokens must differ")
	}

	accessClaims, err := issuer.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess error: %v", err)
	}
	if accessClaims.UserID != 42 || accessClaims.Email != "j@x.com" {
		t.Fatalf("unexpected access claims: %+v", accessClaims)
	}

	refreshClaims, err := issuer.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh error: %v", err)
	}
	if refreshClaims.UserID != 42 || refreshClaims.Email != "j@x.com" {
		t.Fatalf("unexpected refresh claims: %+v", refreshClaims)
	}
}

func TestIssuePair_SameSecondIssuancesDiffer(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(time.Hour, time.Hour)

	// Back-to-back issuances land within the same wall-clock second;
	// rotation depends on each issuance producing a distinct token.
	first, err := issuer.IssuePair(1, "u@x.com")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	second, err := issuer.IssuePair(1, "u@x.com")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	if first.RefreshToken == second.RefreshToken {
		t.Fatalf("refresh tokens from consecutive issuances must differ")
	}
	if first.AccessToken == second.AccessToken {
		t.Fatalf("access tokens from consecutive issuances must differ")
	}
}

func TestVerify_SecretsAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(time.Hour, time.Hour)

	pair, err := issuer.IssuePair(1, "u@x.com")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	if _, err := issuer.VerifyAccess(pair.RefreshToken); !errors.Is(err, jwtlib.ErrTokenInvalid) {
		t.Fatalf("refresh token under access secret: want ErrTokenInvalid, got %v", err)
	}
	if _, err := issuer.VerifyRefresh(pair.AccessToken); !errors.Is(err, jwtlib.ErrTokenInvalid) {
		t.Fatalf("access token under refresh secret: want ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(-time.Second, -time.Second)

	pair, err := issuer.IssuePair(1, "u@x.com")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	if _, err := issuer.VerifyAccess(pair.AccessToken); !errors.Is(err, jwtlib.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if _, err := issuer.VerifyRefresh(pair.RefreshToken); !errors.Is(err, jwtlib.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(time.Hour, time.Hour)

	for _, tokenStr := range []string{"", "not.a.jwt", "garbage"} {
		if _, err := issuer.VerifyAccess(tokenStr); !errors.Is(err, jwtlib.ErrTokenInvalid) {
			t.Fatalf("token %q: want ErrTokenInvalid, got %v", tokenStr, err)
		}
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(time.Hour, time.Hour)

	pair, err := issuer.IssuePair(7, "u@x.com")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	parts := strings.Split(pair.AccessToken, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format")
	}
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]

	if _, err := issuer.VerifyAccess(tampered); !errors.Is(err, jwtlib.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
