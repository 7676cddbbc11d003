package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/config"
	"github.com/iliyamo/orderdesk/internal/logger"
	"github.com/iliyamo/orderdesk/internal/queue"
)

// audit-consumer drains the workflow event queue into <AUDIT_DIR>/audit.log.
func main() {
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

	dir := os.Getenv("AUDIT_DIR")
	if dir == "" {
		dir = "logs"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := queue.NewAuditConsumer(cfg.Broker.URL, cfg.Broker.Queue, dir, zl)
	zl.Info("consuming", zap.String("queue", cfg.Broker.Queue), zap.String("dir", dir))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Fatal("consumer stopped", zap.Error(err))
	}
}
