package signout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"session_service/internal/auth"
	"session_service/internal/http_server/middleware/authguard"
	resp "session_service/internal/lib/api/response"
	sl "session_service/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// New ends the authenticated user's session. Signing out an already
// signed-out user succeeds.
func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		claims, ok := authguard.ClaimsFromContext(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := authService.Signout(ctx, claims.UserID); err != nil {
			log.Error("failed to sign out user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("User signed out")

		render.NoContent(w, r)
	}
}
