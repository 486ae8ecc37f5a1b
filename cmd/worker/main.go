package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-accounts/internal/cleanup"
	"github.com/hugh/go-accounts/internal/database"
	"github.com/hugh/go-accounts/internal/notify"
	"github.com/hugh/go-accounts/internal/store"
	"github.com/hugh/go-accounts/internal/tasks"
	"github.com/hugh/go-accounts/pkg/config"
	"github.com/hugh/go-accounts/pkg/crypto"
	"github.com/hugh/go-accounts/pkg/queue"
	"github.com/hugh/go-accounts/pkg/util"
	"github.com/joho/godotenv"
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

	logger.Info("starting accounts worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Queued codes are sealed by the API with the same key
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if cfg.Encryption.Key == "" {
		logger.Warn("ENCRYPTION_KEY not set, using generated key - queued codes from the API cannot be read")
	}

	sink, err := notify.New(context.Background(), cfg.Notify.WorkerSink, &cfg.Notify, logger)
	if err != nil {
		logger.Error("failed to create notification sink", "error", err)
		os.Exit(1)
	}

	policy := cleanup.NewPolicy(store.NewGormUserStore(db), cfg.Cleanup.UnverifiedDays, logger)

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Create task handler
	handler := tasks.NewHandler(policy, sink, encryptor, logger)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Schedule the unverified account purge
	scheduler := queue.NewScheduler(&cfg.Redis, logger)
	entryID, err := scheduler.Register(cfg.Cleanup.Cron, tasks.NewCleanupUnverifiedTask())
	if err != nil {
		logger.Error("failed to register cleanup schedule", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Cleanup.Cron, time.Now().UTC()); err == nil {
		logger.Info("cleanup scheduled",
			"entry_id", entryID,
			"cron", cfg.Cleanup.Cron,
			"retention_days", cfg.Cleanup.UnverifiedDays,
			"next_run", next,
		)
	}
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	// Wait for context cancellation
	<-ctx.Done()

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
