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
)

func main() {
	statusOnly := flag.Bool("status", false, "print the applied version and exit")
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		zl.Fatal("connect", zap.Error(err))
	}
	defer db.Close()

	if !*statusOnly {
		if err := database.Migrate(ctx, db); err != nil {
			zl.Fatal("migrate", zap.Error(err))
		}
	}
	v, err := database.MigrationVersion(ctx, db)
	if err != nil {
		zl.Fatal("read version", zap.Error(err))
	}
	zl.Info("schema version", zap.Int64("version", v))
}
