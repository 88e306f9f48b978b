// Package authguard turns an inbound bearer token into an
// authenticated identity on the request context. Routes mounted
// outside a guard group are public.
package authguard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "session_service/internal/lib/api/response"
	jwtlib "session_service/internal/lib/jwt"
	sl "session_service/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ctxKey int

const (
	claimsKey ctxKey = iota
	refreshKey
)

// RefreshSession is what the refresh guard attaches to the context.
// Token is the raw presented refresh token; the session service needs
// it to verify against the stored hash.
type RefreshSession struct {
	Claims jwtlib.Claims
	Token  string
}

// Access verifies the bearer token as an access token and attaches
// its claims to the request context.
func Access(log *slog.Logger, tokens *jwtlib.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "authguard.Access"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			tokenStr, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r)
				return
			}

			claims, err := tokens.VerifyAccess(tokenStr)
			if err != nil {
				log.Warn("access token rejected", sl.Err(err))
				unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Refresh verifies the bearer token as a refresh token and attaches
// the claims together with the raw token.
func Refresh(log *slog.Logger, tokens *jwtlib.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "authguard.Refresh"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			tokenStr, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r)
				return
			}

			claims, err := tokens.VerifyRefresh(tokenStr)
			if err != nil {
				log.Warn("refresh token rejected", sl.Err(err))
				unauthorized(w, r)
				return
			}

			session := RefreshSession{
				Claims: claims,
				Token:  tokenStr,
			}

			ctx := context.WithValue(r.Context(), refreshKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (jwtlib.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(jwtlib.Claims)
	return claims, ok
}

func RefreshFromContext(ctx context.Context) (RefreshSession, bool) {
	session, ok := ctx.Value(refreshKey).(RefreshSession)
	return session, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", false
	}

	return token, true
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error("unauthorized"))
}
