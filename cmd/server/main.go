package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/yukifiles/yukifiles/internal/config"
	"github.com/yukifiles/yukifiles/internal/handler"
	"github.com/yukifiles/yukifiles/internal/registry"
	"github.com/yukifiles/yukifiles/internal/service"
	"github.com/yukifiles/yukifiles/pkg/logger"
	"github.com/yukifiles/yukifiles/pkg/snapshot"
)

func openSnapshotStore(cfg *config.Config) (snapshot.BlobStore, error) {
	if cfg.Snapshot.Driver == config.SnapshotDriverFile {
		return snapshot.NewFileStore(cfg.Snapshot.Path)
	}
	return snapshot.NewSQLiteStore(cfg.Snapshot.Path)
}

func main() {
	// Initialize structured logger
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	logger.Init(logger.Config{
		Level:  logLevel,
		Format: logFormat,
		Output: os.Stdout,
	})

	// Load configuration
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Configuration error")
	}

	logger.Info().
		Str("bind_address", cfg.Server.BindAddress).
		Str("port", cfg.Server.Port).
		Str("log_level", logLevel).
		Msg("Starting YukiFiles server")

	// Open the snapshot store and rehydrate the registry
	store, err := openSnapshotStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open snapshot store")
	}

	reg, err := registry.Open(store, cfg.Registry.ActivityLogSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open registry")
	}
	logger.Info().
		Str("driver", cfg.Snapshot.Driver).
		Str("path", cfg.Snapshot.Path).
		Msg("Registry opened")

	// Initialize services
	activitySvc := service.NewActivityService(reg.Activity)
	userSvc := service.NewUserService(reg.Users, activitySvc, reg, service.DemoPolicy{
		Email: cfg.Auth.DemoEmail,
		Name:  cfg.Auth.DemoName,
		Admin: cfg.Auth.DemoAdmin,
	}, cfg.Registry.DefaultStorageLimit)
	fileSvc := service.NewFileService(reg.Files, userSvc, activitySvc, reg, cfg.Storage.Path)
	shareSvc := service.NewShareService(reg.Shares, reg.Files, fileSvc, activitySvc, reg)
	authSvc, err := service.NewAuthService(userSvc, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.SessionDurationHours)*time.Hour)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize auth service")
	}

	// Initialize admin service and wire up settings provider
	adminSvc := service.NewAdminService(reg.Settings, reg.Users, reg.Files, reg.Shares, activitySvc, reg,
		cfg.Registry.DefaultStorageLimit, cfg.Registry.MaxUploadSize)
	userSvc.SetSettingsProvider(adminSvc)
	fileSvc.SetSettingsProvider(adminSvc)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authSvc, userSvc)
	fileHandler := handler.NewFileHandler(fileSvc)
	shareHandler := handler.NewShareHandler(shareSvc, fileSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	adminHandler := handler.NewAdminHandler(adminSvc, shareSvc)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:               100 * 1024 * 1024, // 100MB limit
		DisableKeepalive:        false,
		ReadTimeout:             10 * time.Second,
		WriteTimeout:            30 * time.Second,
		IdleTimeout:             60 * time.Second,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.Server.TrustedProxies,
		EnableIPValidation:      true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelDefault,
	}))
	app.Use(handler.SecurityHeadersMiddleware())
	app.Use(handler.RequestIDMiddleware())
	app.Use(handler.MetricsMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
		MaxAge:           3600, // Cache preflight responses for 1 hour
	}))
	app.Use(logger.Middleware())

	// Routes
	api := app.Group("/api/v1")

	// Rate limiters: auth uses IP-only (runs before auth), file uses IP+UserID.
	authRateLimiter := handler.NewRateLimiter(10, 1*time.Minute)
	fileRateLimiter := handler.NewRateLimiterWithKey(30, 1*time.Minute, handler.IPAndUserKey)

	// Body limit middleware: 1MB for JSON API routes; upload uses app-level limit
	jsonBodyLimit := handler.BodyLimitMiddleware(1 * 1024 * 1024) // 1MB

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", jsonBodyLimit, authRateLimiter.Middleware(), authHandler.Register)
	auth.Post("/login", jsonBodyLimit, authRateLimiter.Middleware(), authHandler.Login)
	auth.Get("/me", handler.AuthMiddleware(authSvc), authHandler.GetMe)
	auth.Get("/storage/quota", handler.AuthMiddleware(authSvc), authHandler.GetStorageInfo)

	// File routes
	files := api.Group("/files", handler.AuthMiddleware(authSvc))
	files.Post("/", fileRateLimiter.Middleware(), fileHandler.Upload)
	files.Get("/", fileHandler.List)
	files.Get("/search", fileHandler.Search)
	files.Get("/:id", fileHandler.Get)
	files.Get("/:id/download", fileRateLimiter.Middleware(), fileHandler.Download)
	files.Get("/:id/shares", shareHandler.ListByFile)
	files.Patch("/:id/rename", jsonBodyLimit, fileHandler.Rename)
	files.Patch("/:id/move", jsonBodyLimit, fileHandler.Move)
	files.Patch("/:id/star", jsonBodyLimit, fileHandler.SetStarred)
	files.Delete("/:id", fileHandler.Delete)

	// Folder routes
	folders := api.Group("/folders", handler.AuthMiddleware(authSvc))
	folders.Post("/", jsonBodyLimit, fileHandler.CreateFolder)
	folders.Delete("/:id", fileHandler.DeleteFolder)

	// Share routes; access and download are public, gated by the link itself
	shares := api.Group("/shares")
	shares.Post("/", jsonBodyLimit, handler.AuthMiddleware(authSvc), shareHandler.Create)
	shares.Get("/:token", shareHandler.GetShare)
	shares.Post("/:token/access", jsonBodyLimit, fileRateLimiter.Middleware(), shareHandler.Access)
	shares.Post("/:token/download", jsonBodyLimit, fileRateLimiter.Middleware(), shareHandler.Download)
	shares.Delete("/:token", handler.AuthMiddleware(authSvc), shareHandler.Revoke)

	// Activity routes
	activity := api.Group("/activity", handler.AuthMiddleware(authSvc))
	activity.Get("/", activityHandler.Recent)

	// Admin routes
	admin := api.Group("/admin", handler.AuthMiddleware(authSvc), handler.AdminMiddleware(authSvc))
	admin.Get("/settings", adminHandler.GetSettings)
	admin.Put("/settings", jsonBodyLimit, adminHandler.UpdateSettings)
	admin.Get("/stats", adminHandler.GetStats)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Get("/users/:id/analytics", adminHandler.GetUserAnalytics)
	admin.Get("/activity", activityHandler.RecentAll)

	// Health check handler
	healthHandler := handler.NewHealthHandler(store, cfg.Storage.Path)
	app.Get("/health", healthHandler.Liveness)
	app.Get("/health/ready", healthHandler.Readiness)

	// Metrics endpoint
	metricsHandler := handler.NewMetricsHandler()
	if cfg.Observability.MetricsEnabled {
		if cfg.IsProduction {
			app.Get("/metrics", handler.BearerTokenMiddleware(cfg.Observability.MetricsToken), metricsHandler.Handler())
		} else {
			app.Get("/metrics", metricsHandler.Handler())
		}
	} else {
		logger.Info().Msg("Metrics endpoint disabled")
	}

	// Background maintenance: sweep expired share links and flush the snapshot
	maintenanceStop := make(chan struct{})
	go func() {
		interval := time.Duration(cfg.Registry.MaintenanceIntervalMinutes) * time.Minute
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := shareSvc.DeactivateExpired(time.Now()); n > 0 {
					logger.Info().Int("count", n).Msg("Deactivated expired share links")
				}
				start := time.Now()
				reg.Persist()
				handler.RecordSnapshotWrite(time.Since(start).Seconds())
			case <-maintenanceStop:
				return
			}
		}
	}()

	// Start server in goroutine
	go func() {
		addr := net.JoinHostPort(cfg.Server.BindAddress, cfg.Server.Port)
		logger.Info().
			Str("address", addr).
			Bool("metrics_enabled", cfg.Observability.MetricsEnabled).
			Msg("HTTP server listening")
		if err := app.Listen(addr); err != nil {
			logger.Error().Err(err).Msg("Server stopped")
		}
	}()

	// Graceful shutdown setup
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop background jobs
	logger.Info().Msg("Stopping background jobs...")
	close(maintenanceStop)
	authRateLimiter.Stop()
	fileRateLimiter.Stop()

	// Shutdown Fiber app
	logger.Info().Msg("Shutting down HTTP server...")
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}

	// Flush the final snapshot and release the store
	logger.Info().Msg("Closing registry...")
	if err := reg.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing registry")
	}

	logger.Info().Msg("Server stopped gracefully")
}
