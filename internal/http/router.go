package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ilm2/server/internal/auth"
	"github.com/ilm2/server/internal/http/handlers"
	"github.com/ilm2/server/internal/middleware"
	"github.com/rs/cors"
)

// NewRouter creates a new HTTP router with all routes configured. The login
// surface is public, so /auth allows cross-origin requests from anywhere.
func NewRouter(authHandler *handlers.AuthHandler, tokens *auth.TokenService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.NewHealthHandler().ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodPost, http.MethodGet},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}).Handler)

		r.Post("/request-code", authHandler.HandleRequestCode)
		r.Post("/verify", authHandler.HandleVerify)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(tokens))
			r.Get("/me", authHandler.HandleMe)
		})
	})

	return r
}
