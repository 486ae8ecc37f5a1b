package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugh/go-accounts/internal/database/migrations"
	"github.com/hugh/go-accounts/internal/database/models"
	"github.com/hugh/go-accounts/pkg/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.SSLMode == "disable" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info("connected to database", "host", cfg.Host, "database", cfg.Name)

	return db, nil
}

// AutoMigrate syncs the schema from the models. Development only; deployed
// databases are migrated with Migrate.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

// Migrate applies the embedded SQL migrations with goose.
func Migrate(ctx context.Context, cfg *config.DatabaseConfig) error {
	return withMigrator(cfg, func(db *sql.DB) error {
		return goose.UpContext(ctx, db, ".")
	})
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, cfg *config.DatabaseConfig) error {
	return withMigrator(cfg, func(db *sql.DB) error {
		return goose.DownContext(ctx, db, ".")
	})
}

// MigrationStatus logs the applied state of every migration.
func MigrationStatus(ctx context.Context, cfg *config.DatabaseConfig) error {
	return withMigrator(cfg, func(db *sql.DB) error {
		return goose.StatusContext(ctx, db, ".")
	})
}

func withMigrator(cfg *config.DatabaseConfig, fn func(*sql.DB) error) error {
	db, err := sql.Open("pgx", cfg.URL())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := fn(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
