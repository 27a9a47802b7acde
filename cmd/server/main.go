package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/pauljasperdev/gemhog/internal/api"
	"github.com/pauljasperdev/gemhog/internal/config"
	"github.com/pauljasperdev/gemhog/internal/email"
	"github.com/pauljasperdev/gemhog/internal/pkg/logger"
	"github.com/pauljasperdev/gemhog/internal/repository/postgres"
	"github.com/pauljasperdev/gemhog/internal/subscriber"
)

// checkPortAvailable verifies that the target port is not already in use,
// so a stale process does not silently swallow traffic.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %w", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		logger.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err.Error())
		os.Exit(1)
	}

	if cfg.Environment == "development" {
		logger.SetLevel(logger.DEBUG)
		// Developers need full verify URLs and recipients on the console.
		logger.SetRedactPII(false)
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		logger.Error("pre-flight check failed", "error", err.Error())
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		logger.Error("database unreachable", "error", err.Error())
		os.Exit(1)
	}
	pingCancel()
	logger.Info("connected to database")

	// Redis is optional; without it the rate limiter is disabled.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.URL})
		} else {
			redisClient = redis.NewClient(opts)
		}
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, rate limiting disabled", "error", err.Error())
			redisClient = nil
		} else {
			logger.Info("connected to redis")
		}
	}

	templates, err := email.NewTemplates()
	if err != nil {
		logger.Error("failed to parse email templates", "error", err.Error())
		os.Exit(1)
	}

	var sender email.Sender
	if cfg.Email.FromEmail != "" {
		sesSender, err := email.NewSESSender(
			context.Background(),
			cfg.Email.FromEmail,
			cfg.Email.FromName,
			cfg.Email.Region,
			cfg.Email.AccessKey,
			cfg.Email.SecretKey,
			cfg.Email.Timeout(),
		)
		if err != nil {
			logger.Error("failed to initialize SES sender", "error", err.Error())
			os.Exit(1)
		}
		sender = sesSender
		logger.Info("email delivery via SES", "from", cfg.Email.FromEmail, "region", cfg.Email.Region)
	} else {
		sender = email.NewConsoleSender()
		logger.Info("email delivery via console (no from address configured)")
	}

	repo := postgres.NewSubscriberRepo(db)
	svc := subscriber.NewService(repo, sender, templates, subscriber.Config{
		Secret:              cfg.Subscription.TokenSecret,
		AppURL:              cfg.Subscription.AppURL,
		VerifyTokenTTL:      cfg.Subscription.VerifyTokenTTL(),
		UnsubscribeTokenTTL: cfg.Subscription.UnsubscribeTokenTTL(),
	})

	server := api.NewServer(cfg.Server, svc, cfg.Subscription.AppURL, redisClient)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "host", host, "port", port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err.Error())
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("server stopped")
}
