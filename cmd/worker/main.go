package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/meritan/go-curator/internal/camera"
	"github.com/meritan/go-curator/internal/database"
	"github.com/meritan/go-curator/internal/newsletter"
	"github.com/meritan/go-curator/internal/storage"
	"github.com/meritan/go-curator/internal/tasks"
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

	logger.Info("starting curator worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewMinIOStore(cfg.Storage)
	if err != nil {
		logger.Error("failed to create object store", "error", err)
		os.Exit(1)
	}

	clientFactory := camera.NewClientFactory(cfg.Device.Timeout())
	cameraService := camera.NewService(db, encryptor, store, clientFactory, logger)

	disposable := newsletter.NewDisposableList(cfg.Newsletter.BlocklistPath, cfg.Newsletter.BlocklistURL, logger)
	if err := disposable.Load(); err != nil {
		logger.Warn("failed to load disposable domain blocklist", "error", err)
	}

	asynqClient := queue.NewClient(&cfg.Redis)
	defer asynqClient.Close()

	// Create Asynq server and scheduler
	srv := queue.NewServer(&cfg.Redis, 10)
	scheduler := queue.NewScheduler(&cfg.Redis)

	// The tick drives scheduled captures; the blocklist refreshes daily.
	if _, err := scheduler.Register("@every 1m", tasks.NewSchedulerTickTask()); err != nil {
		logger.Error("failed to register scheduler tick", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.Register("0 4 * * *", tasks.NewBlocklistRefreshTask()); err != nil {
		logger.Error("failed to register blocklist refresh", "error", err)
		os.Exit(1)
	}

	// Create task handler
	handler := tasks.NewHandler(db, logger, cameraService, disposable, asynqClient)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Handle shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
	}()

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
