package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/meritan/go-curator/internal/api"
	"github.com/meritan/go-curator/internal/auth"
	"github.com/meritan/go-curator/internal/camera"
	"github.com/meritan/go-curator/internal/database"
	"github.com/meritan/go-curator/internal/newsletter"
	"github.com/meritan/go-curator/internal/storage"
	"github.com/meritan/go-curator/pkg/config"
	"github.com/meritan/go-curator/pkg/crypto"
	"github.com/meritan/go-curator/pkg/queue"
	"github.com/meritan/go-curator/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting curator server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Asynq client for enqueuing background jobs, plus a direct redis
	// connection for health probes
	asynqClient := queue.NewClient(&cfg.Redis)
	defer asynqClient.Close()
	redisClient := queue.NewRedisClient(&cfg.Redis)
	defer redisClient.Close()

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if cfg.Encryption.Key == "" {
		logger.Warn("ENCRYPTION_KEY not set, using generated key - stored device credentials will be lost on restart")
	}

	// Object store for uploaded and captured files
	store, err := storage.NewMinIOStore(cfg.Storage)
	if err != nil {
		logger.Error("failed to create object store", "error", err)
		os.Exit(1)
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.EnsureBucket(ctx); err != nil {
			logger.Warn("failed to ensure storage bucket", "error", err)
		}
		cancel()
	}

	// Device clients and camera service
	clientFactory := camera.NewClientFactory(cfg.Device.Timeout())
	cameraService := camera.NewService(db, encryptor, store, clientFactory, logger)

	// Newsletter with disposable-domain blocklist
	disposable := newsletter.NewDisposableList(cfg.Newsletter.BlocklistPath, cfg.Newsletter.BlocklistURL, logger)
	if err := disposable.Load(); err != nil {
		logger.Warn("failed to load disposable domain blocklist", "error", err)
	}
	newsletterService := newsletter.NewService(db, disposable, logger)

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:                db,
		Logger:            logger,
		JWTService:        jwtService,
		AuthService:       authService,
		CameraService:     cameraService,
		NewsletterService: newsletterService,
		Store:             store,
		Redis:             redisClient,
		AsynqClient:       asynqClient,
		RateLimitReqs:     cfg.RateLimit.Requests,
		RateLimitSecs:     cfg.RateLimit.WindowSeconds,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
