package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/cozyapp/cozyapp-api/config"
	"github.com/cozyapp/cozyapp-api/internal/application"
	"github.com/cozyapp/cozyapp-api/internal/infrastructure/store"
	"github.com/cozyapp/cozyapp-api/pkg/helpers"
)

// seed creates the administrator named by ADMIN_EMAIL / ADMIN_PASSWORD.
// Existing accounts are left untouched.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}
	if cfg.StoreDriver == config.StoreMemory {
		log.Fatal("seeding the in-memory store has no effect")
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close(ctx)

	jwt := helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	svc := application.NewService(st.Repo, jwt, nil, nil, logger, cfg.ResetPasswordURL(), cfg.ResetTokenTTL)

	created, err := svc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if created {
		logger.WithField("email", cfg.AdminEmail).Info("admin seeded")
		return
	}
	logger.WithField("email", cfg.AdminEmail).Info("admin already exists; nothing to do")
}
