package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/config"
	"github.com/iliyamo/orderdesk/internal/database"
	"github.com/iliyamo/orderdesk/internal/logger"
	"github.com/iliyamo/orderdesk/internal/repository"
	"github.com/iliyamo/orderdesk/internal/seed"
)

func main() {
	keep := flag.Bool("keep", false, "do not wipe existing rows before seeding")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		zl.Fatal("connect", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}
	if !*keep {
		if err := seed.Wipe(ctx, db); err != nil {
			zl.Fatal("wipe", zap.Error(err))
		}
	}
	if _, err := seed.Run(ctx, repository.NewUnitOfWork(db), cfg.Auth.BcryptCost, zl); err != nil {
		zl.Fatal("seed", zap.Error(err))
	}
	for _, u := range seed.DemoUsers {
		zl.Info("demo login", zap.String("email", u.Email), zap.String("password", u.Password))
	}
}
