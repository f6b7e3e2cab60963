package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/noah-isme/backend-boutique/internal/app"
	"github.com/noah-isme/backend-boutique/internal/auth"
	"github.com/noah-isme/backend-boutique/internal/config"
	"github.com/noah-isme/backend-boutique/internal/obs"
)

func main() {
	username := flag.String("username", "admin", "admin username")
	name := flag.String("name", "Administrator", "display name")
	flag.Parse()

	logger := obs.NewLogger("console", "info")

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		logger.Fatal().Msg("ADMIN_PASSWORD is not set")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := app.OpenPostgres(ctx, cfg.DatabaseURL, "boutique-create-admin")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	svc, err := auth.NewService(auth.Config{Store: auth.NewPGStore(pool), Secret: cfg.JWTSecret})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	admin, err := svc.CreateAdmin(ctx, *username, *name, password)
	if err != nil {
		logger.Fatal().Err(err).Str("username", *username).Msg("create admin")
	}
	logger.Info().Str("id", admin.ID).Str("username", admin.Username).Msg("admin created")
}
