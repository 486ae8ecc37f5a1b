package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-accounts/internal/api"
	"github.com/hugh/go-accounts/internal/auth"
	"github.com/hugh/go-accounts/internal/database"
	"github.com/hugh/go-accounts/internal/notify"
	"github.com/hugh/go-accounts/internal/store"
	"github.com/hugh/go-accounts/internal/tasks"
	"github.com/hugh/go-accounts/internal/users"
	"github.com/hugh/go-accounts/pkg/config"
	"github.com/hugh/go-accounts/pkg/crypto"
	"github.com/hugh/go-accounts/pkg/queue"
	"github.com/hugh/go-accounts/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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

	logger.Info("starting accounts server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// SQL migrations (cmd/migrate) own the schema outside development
	if cfg.Server.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
	}

	// Build the notification sink
	var asynqClient *asynq.Client
	var sink notify.Sink
	if cfg.Notify.Sink == config.SinkQueue {
		encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
		if err != nil {
			logger.Error("failed to create encryptor", "error", err)
			os.Exit(1)
		}
		asynqClient = queue.NewClient(&cfg.Redis)
		sink = tasks.NewQueueSink(asynqClient, encryptor)
	} else {
		sink, err = notify.New(context.Background(), cfg.Notify.Sink, &cfg.Notify, logger)
		if err != nil {
			logger.Error("failed to create notification sink", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("notification sink ready", "sink", cfg.Notify.Sink)

	if cfg.Verification.ExposeCode {
		logger.Warn("verification codes are returned in API responses; development use only")
	}

	// Initialize services
	userStore := store.NewGormUserStore(db)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessTTL(), cfg.JWT.RefreshTTL())
	authService := auth.NewService(userStore, jwtService, sink, logger, auth.Config{
		CodeExpiry: cfg.Verification.CodeExpiry(),
		ExposeCode: cfg.Verification.ExposeCode,
	})
	userService := users.NewService(userStore, logger)

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		AuthService:    authService,
		UserService:    userService,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
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

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Close Asynq client
	if asynqClient != nil {
		asynqClient.Close()
	}

	// Close Redis connection
	redisClient.Close()

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
