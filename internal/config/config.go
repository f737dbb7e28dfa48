// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables and are immutable
// after startup; provider credentials are injected into collaborators once,
// never re-read per request.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Token signing. A missing secret is a fatal startup error; tokens are
	// never issued unsigned.
	JWTSecret string `env:"JWT_SECRET,required"`

	// Bearer credential lifetime, tracked in the store only (the signed
	// token carries no expiry claim).
	BearerTokenTTL time.Duration `env:"BEARER_TOKEN_TTL" envDefault:"24h"`

	// Verification code settings. OTPExpiryOffset is SUBTRACTED from the
	// issuance time: the default of 1m reproduces the legacy service, which
	// issued codes already expired. Set a negative offset (e.g. -5m) to get
	// a forward-looking window.
	OTPLength       int           `env:"OTP_LENGTH" envDefault:"6"`
	OTPExpiryOffset time.Duration `env:"OTP_EXPIRY_OFFSET" envDefault:"1m"`

	// Mail transport (SMTP)
	SMTPHost     string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"`

	// Object store (S3-compatible). Optional: the upload endpoint is only
	// mounted when a bucket is configured.
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3BaseEndpoint  string `env:"S3_BASE_ENDPOINT"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`

	// IPFS pin service. Optional, same deal as the object store.
	PinAPIURL      string `env:"PIN_API_URL" envDefault:"https://ipfs.infura.io:5001"`
	PinAPIKey      string `env:"PIN_API_KEY"`
	PinAPISecret   string `env:"PIN_API_SECRET"`
	IPFSGatewayURL string `env:"IPFS_GATEWAY_URL" envDefault:"https://ipfs.io/ipfs"`

	// Upload limits
	MaxUploadSize      int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ObjectStoreEnabled reports whether the S3 upload collaborator is configured.
func (c *Config) ObjectStoreEnabled() bool {
	return c.S3Bucket != ""
}

// PinServiceEnabled reports whether the IPFS pin collaborator is configured.
func (c *Config) PinServiceEnabled() bool {
	return c.PinAPIKey != "" && c.PinAPISecret != ""
}

// MailEnabled reports whether the SMTP transport is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPUsername != "" && c.SMTPPassword != ""
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OTPLength)
	}
	if c.BearerTokenTTL <= 0 {
		return errors.New("BEARER_TOKEN_TTL must be positive")
	}
	return nil
}
