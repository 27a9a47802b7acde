package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pauljasperdev/gemhog/internal/config"
	"github.com/pauljasperdev/gemhog/internal/subscriber"
)

// Server represents the HTTP API server.
type Server struct {
	config   config.ServerConfig
	handler  http.Handler
	handlers *Handlers
	server   *http.Server
}

// NewServer creates a new API server wired to the subscriber service.
// redisClient may be nil, in which case rate limiting is disabled.
func NewServer(cfg config.ServerConfig, svc *subscriber.Service, appURL string, redisClient *redis.Client) *Server {
	handlers := NewHandlers(svc, appURL)
	router := SetupRoutes(handlers, NewRateLimiter(redisClient))

	return &Server{
		config:   cfg,
		handler:  router,
		handlers: handlers,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.GetHost(), s.config.Port),
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
