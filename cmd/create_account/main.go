// create_account registers an account directly in the store, the only way
// to create the first admin.
package main

import (
	"context"
	"flag"
	"fmt"

	"coin_ledger/internal/config"
	"coin_ledger/internal/db"
	"coin_ledger/internal/domain"
	"coin_ledger/internal/events"
	"coin_ledger/internal/logger"
	"coin_ledger/internal/repository"
	"coin_ledger/internal/repository/sqlite"
	"coin_ledger/internal/service"
)

func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	username := flag.String("username", "", "display name")
	role := flag.String("role", string(domain.RoleUser), "user or admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", false)
		logger.Fatal("invalid configuration", "error", err)
	}
	logger.Init(cfg.LogLevel, false)

	if !domain.Role(*role).Valid() {
		logger.Fatal("invalid role", "role", *role)
	}
	if *username == "" {
		*username = *email
	}

	ctx := context.Background()
	var st repository.Store
	if cfg.DBDriver == "sqlite" {
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("open sqlite", "error", err)
		}
		defer s.Close()
		st = s
	} else {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("connect", "error", err)
		}
		defer pool.Close()
		st = repository.NewPgStore(pool)
	}

	audit := service.NewAuditService(st)
	sessions := service.NewSessionRegistry(st, events.NewBus(1), cfg.SessionIdleTimeout)
	auth := service.NewAuthService(st, sessions, service.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL), audit)

	acc, err := auth.CreateAccount(ctx, service.RegisterInput{
		Email:    *email,
		Password: *password,
		Username: *username,
	}, domain.Role(*role))
	if err != nil {
		logger.Fatal("create account", "error", err)
	}
	fmt.Printf("created %s account id=%s email=%s\n", acc.Role, acc.ID, acc.Email)
}
