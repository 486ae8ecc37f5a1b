package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/hugh/go-accounts/internal/database"
	"github.com/hugh/go-accounts/pkg/config"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	command := flag.String("command", "up", "migration command: up, down or status")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch *command {
	case "up":
		err = database.Migrate(ctx, &cfg.Database)
	case "down":
		err = database.Rollback(ctx, &cfg.Database)
	case "status":
		err = database.MigrationStatus(ctx, &cfg.Database)
	default:
		log.Fatalf("unknown command %q", *command)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", *command, err)
	}
}
