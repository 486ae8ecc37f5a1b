package main

import (
	"context"
	"fmt"
	"log"

	"github.com/hugh/go-accounts/internal/auth"
	"github.com/hugh/go-accounts/internal/database"
	"github.com/hugh/go-accounts/internal/notify"
	"github.com/hugh/go-accounts/internal/store"
	"github.com/hugh/go-accounts/pkg/config"
	"github.com/hugh/go-accounts/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if cfg.Server.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessTTL(), cfg.JWT.RefreshTTL())
	authService := auth.NewService(store.NewGormUserStore(db), jwtService, notify.NewLogSink(logger), logger, auth.Config{
		CodeExpiry: cfg.Verification.CodeExpiry(),
	})

	user, created, err := authService.EnsureAdmin(context.Background(), cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}

	if !created {
		fmt.Printf("User already exists: %s (role %s)\n", user.Email, user.Role)
		return
	}

	fmt.Printf("Admin user created successfully!\n")
	fmt.Printf("Email: %s\n", user.Email)
	fmt.Printf("ID: %s\n", user.ExternalID)
}
