package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router. limiter may be a disabled limiter
// (nil Redis client), in which case its middleware is a pass-through.
func SetupRoutes(h *Handlers, limiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check (never rate limited)
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Post("/subscribe", h.Subscribe)
		r.Get("/verify", h.Verify)
		// Unsubscribe accepts both methods: POST for RFC 8058 one-click
		// handling by mail clients, GET for the link a human follows.
		r.Post("/unsubscribe", h.Unsubscribe)
		r.Get("/unsubscribe", h.UnsubscribeRedirect)
	})

	return r
}
