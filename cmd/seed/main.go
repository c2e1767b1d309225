package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"glory-ledger/internal/config"
	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/domain/ports/repository"
	pg "glory-ledger/internal/infra/db/postgres"
	"glory-ledger/internal/infra/web"
)

// seed bootstraps the first admin account and prints a bearer token for it.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	username := flag.String("admin", "admin", "username of the admin to create or reuse")
	flag.Parse()

	_ = godotenv.Load()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := pg.NewUserRepo(pool)
	admin, err := users.FindByUsername(ctx, repository.NoTX, *username)
	switch {
	case err == nil:
		if !admin.IsAdmin {
			log.Fatalf("user %q exists but is not an admin", *username)
		}
		fmt.Printf("admin %q already present (id=%s)\n", admin.Username, admin.ID)
	case errors.Is(err, domain.ErrNotFound):
		admin, err = model.NewUser("", *username, 0, 0)
		if err != nil {
			log.Fatalf("new admin: %v", err)
		}
		admin.IsAdmin = true
		if err := users.Save(ctx, repository.NoTX, admin); err != nil {
			log.Fatalf("save admin: %v", err)
		}
		fmt.Printf("created admin %q (id=%s)\n", admin.Username, admin.ID)
	default:
		log.Fatalf("lookup admin: %v", err)
	}

	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	tok, err := auth.Mint(model.Principal{UserID: admin.ID, IsAdmin: true})
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Printf("Authorization: Bearer %s\n", tok)
}
