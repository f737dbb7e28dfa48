// Package main is the entrypoint for the application portal API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/apportal/apportal/internal/application"
	"github.com/apportal/apportal/internal/cache"
	"github.com/apportal/apportal/internal/config"
	"github.com/apportal/apportal/internal/credential"
	"github.com/apportal/apportal/internal/handler"
	"github.com/apportal/apportal/internal/mail"
	"github.com/apportal/apportal/internal/metrics"
	"github.com/apportal/apportal/internal/middleware"
	"github.com/apportal/apportal/internal/pin"
	"github.com/apportal/apportal/internal/repository"
	"github.com/apportal/apportal/internal/server"
	"github.com/apportal/apportal/internal/storage"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
		logger.Error("failed to run migrations",
			slog.String("error", err.Error()),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", err.Error()),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to Redis",
			slog.String("error", err.Error()),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Mail transport
	var mailer credential.Mailer
	if cfg.MailEnabled() {
		smtp, err := mail.NewSMTPMailer(mail.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			logger.Error("failed to configure mail transport", "error", err)
			os.Exit(1)
		}
		mailer = smtp
	} else {
		logger.Warn("mail transport not configured, verification codes cannot be sent")
		mailer = mail.Disabled{}
	}

	// Upload collaborators (optional)
	var uploader handler.ObjectUploader
	if cfg.ObjectStoreEnabled() {
		s3Uploader, err := storage.NewUploader(ctx, storage.Config{
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			BaseEndpoint:  cfg.S3BaseEndpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to configure object store", "error", err)
			os.Exit(1)
		}
		uploader = s3Uploader
	}

	var pinner handler.Pinner
	if cfg.PinServiceEnabled() {
		pinner = pin.New(cfg.PinAPIURL, cfg.IPFSGatewayURL, cfg.PinAPIKey, cfg.PinAPISecret)
	}

	// Initialize services
	recorder := metrics.NewNoop()
	issuer := credential.NewIssuer(repo, mailer, credential.Config{
		Secret:          []byte(cfg.JWTSecret),
		OTPLength:       cfg.OTPLength,
		OTPExpiryOffset: cfg.OTPExpiryOffset,
		BearerTTL:       cfg.BearerTokenTTL,
	}, recorder)
	applicationService := application.NewService(repo)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	applicationHandler := handler.NewApplicationHandler(logger, applicationService)
	authHandler := handler.NewAuthHandler(logger, repo, issuer)
	uploadHandler := handler.NewUploadHandler(logger, uploader, pinner, recorder, cfg.MaxUploadSize)

	// Setup router
	r := setupRouter(h, healthHandler, applicationHandler, authHandler, uploadHandler, repo, cacheClient, recorder, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	applicationHandler *handler.ApplicationHandler,
	authHandler *handler.AuthHandler,
	uploadHandler *handler.UploadHandler,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	recorder metrics.Recorder,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger:      logger,
		Credentials: repo,
		Cache:       cacheClient,
		Metrics:     recorder,
		Secret:      []byte(cfg.JWTSecret),
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Login is the one route without a bearer token
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))

			r.Get("/applications", applicationHandler.List)
			r.Get("/applications/{id}", applicationHandler.Get)

			r.Post("/auth/verification-code", authHandler.RequestVerificationCode)
			r.Post("/auth/verify", authHandler.VerifyEmail)

			r.Post("/uploads", uploadHandler.Upload)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

// redactURL strips credentials from a connection URL before logging.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		if username := parsed.User.Username(); username != "" {
			parsed.User = url.User(username)
		} else {
			parsed.User = url.User("redacted")
		}
	}

	return parsed.String()
}
