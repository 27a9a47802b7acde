// Package config loads application configuration from a YAML file with
// environment-variable overrides on top. Secrets live in .env locally and in
// real env vars on the deployment platform.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DevTokenSecret is the fallback signing secret for local development.
// Validate rejects it outside development.
const DevTokenSecret = "dev-secret-not-for-production-use-replace"

// Config holds all configuration for the application.
type Config struct {
	Environment  string             `yaml:"environment"`
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Email        EmailConfig        `yaml:"email"`
	Subscription SubscriptionConfig `yaml:"subscription"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection.
func (c ServerConfig) GetHost() string {
	// On ECS/Lambda, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis settings for the subscribe rate limiter.
// An empty URL disables rate limiting.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// EmailConfig holds AWS SES delivery settings. An empty FromEmail selects
// the console sender instead of SES.
type EmailConfig struct {
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured send timeout as a duration.
func (c EmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SubscriptionConfig holds the action-token and link settings.
type SubscriptionConfig struct {
	// AppURL is the public base URL embedded in verify/unsubscribe links.
	AppURL string `yaml:"app_url"`
	// TokenSecret signs all action tokens. Independent from any session
	// secret. Must be at least 32 characters in production.
	TokenSecret             string `yaml:"token_secret"`
	VerifyTokenTTLHours     int    `yaml:"verify_token_ttl_hours"`
	UnsubscribeTokenTTLDays int    `yaml:"unsubscribe_token_ttl_days"`
}

// VerifyTokenTTL returns the verification token lifetime.
func (c SubscriptionConfig) VerifyTokenTTL() time.Duration {
	return time.Duration(c.VerifyTokenTTLHours) * time.Hour
}

// UnsubscribeTokenTTL returns the unsubscribe token lifetime.
func (c SubscriptionConfig) UnsubscribeTokenTTL() time.Duration {
	return time.Duration(c.UnsubscribeTokenTTLDays) * 24 * time.Hour
}

// Load reads and parses the configuration file. A missing file is not an
// error: the service can run entirely from env vars and defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	// Defaults
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "Gemhog"
	}
	if cfg.Email.Region == "" {
		cfg.Email.Region = "us-east-1"
	}
	if cfg.Email.TimeoutSeconds == 0 {
		cfg.Email.TimeoutSeconds = 30
	}
	if cfg.Subscription.AppURL == "" {
		cfg.Subscription.AppURL = "http://localhost:3001"
	}
	if cfg.Subscription.TokenSecret == "" {
		cfg.Subscription.TokenSecret = DevTokenSecret
	}
	if cfg.Subscription.VerifyTokenTTLHours == 0 {
		cfg.Subscription.VerifyTokenTTLHours = 7 * 24
	}
	if cfg.Subscription.UnsubscribeTokenTTLDays == 0 {
		cfg.Subscription.UnsubscribeTokenTTLDays = 365
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file first (if present), so secrets can live in .env
// locally and in real env vars on the deployment platform.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("SES_FROM_EMAIL"); v != "" {
		cfg.Email.FromEmail = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Email.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Email.Region = v
	}
	if v := os.Getenv("APP_URL"); v != "" {
		cfg.Subscription.AppURL = v
	}
	if v := os.Getenv("SUBSCRIBER_TOKEN_SECRET"); v != "" {
		cfg.Subscription.TokenSecret = v
	}

	return cfg, nil
}

// Validate rejects configurations that are unsafe to run in production.
func (c *Config) Validate() error {
	if c.Environment != "production" {
		return nil
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required in production")
	}
	if c.Subscription.TokenSecret == DevTokenSecret {
		return fmt.Errorf("subscription.token_secret must be set in production")
	}
	if len(c.Subscription.TokenSecret) < 32 {
		return fmt.Errorf("subscription.token_secret must be at least 32 characters, got %d", len(c.Subscription.TokenSecret))
	}
	return nil
}
