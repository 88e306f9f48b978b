package http_server

import (
	"log/slog"

	"session_service/internal/auth"
	"session_service/internal/http_server/handlers/me"
	"session_service/internal/http_server/handlers/refresh"
	"session_service/internal/http_server/handlers/signin"
	"session_service/internal/http_server/handlers/signout"
	"session_service/internal/http_server/handlers/signup"
	"session_service/internal/http_server/middleware/authguard"
	jwtlib "session_service/internal/lib/jwt"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

// NewRouter mounts the auth surface. Signup and signin are public;
// everything else sits behind a token guard.
func NewRouter(
	log *slog.Logger,
	validate *validator.Validate,
	tokens *jwtlib.Issuer,
	authService *auth.Auth,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", signup.New(log, validate, authService))
		r.Post("/signin", signin.New(log, validate, authService))

		r.Group(func(r chi.Router) {
			r.Use(authguard.Refresh(log, tokens))
			r.Post("/refresh", refresh.New(log, authService))
		})

		r.Group(func(r chi.Router) {
			r.Use(authguard.Access(log, tokens))
			r.Post("/signout", signout.New(log, authService))
			r.Get("/user", me.New(log, authService))
		})
	})

	return r
}
