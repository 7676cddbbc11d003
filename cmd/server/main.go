package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/config"
	"github.com/iliyamo/orderdesk/internal/database"
	"github.com/iliyamo/orderdesk/internal/filestorage"
	"github.com/iliyamo/orderdesk/internal/handler"
	"github.com/iliyamo/orderdesk/internal/jobs"
	"github.com/iliyamo/orderdesk/internal/logger"
	"github.com/iliyamo/orderdesk/internal/ports"
	"github.com/iliyamo/orderdesk/internal/queue"
	"github.com/iliyamo/orderdesk/internal/repository"
	"github.com/iliyamo/orderdesk/internal/router"
	"github.com/iliyamo/orderdesk/internal/service"
	"github.com/iliyamo/orderdesk/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		zl.Warn("redis unavailable, rate limiting and caching disabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer rdb.Close()
	}

	files, err := filestorage.NewLocalFileStorage(cfg.Uploads.Dir)
	if err != nil {
		return err
	}

	var publisher ports.EventPublisher = queue.NopPublisher{}
	if cfg.Broker.Enabled {
		pub := queue.NewPublisher(cfg.Broker.URL, cfg.Broker.Queue, cfg.Broker.DialTimeout, zl)
		defer pub.Close()
		publisher = pub
	}

	clock := utils.SystemClock{}
	svc := service.New(service.Deps{
		Repos:     repository.New(db),
		UoW:       repository.NewUnitOfWork(db),
		Files:     files,
		Publisher: publisher,
		Issuer: utils.NewTokenIssuer(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret,
			cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, clock),
		Clock:  clock,
		Log:    zl,
		Config: cfg,
	})

	jm := jobs.NewJobManager(cfg.Jobs, svc.Auth, zl)
	if err := jm.StartAll(); err != nil {
		return err
	}
	defer jm.StopAll()

	e := newEcho(cfg, zl)
	h := router.Handlers{
		Health:     handler.NewHealthHandler(db, nil),
		Auth:       handler.NewAuthHandler(cfg.Auth, svc.Auth),
		Users:      handler.NewUserHandler(svc.Users),
		Catalog:    handler.NewCatalogHandler(svc.Catalog, cfg.Cache, rdb, zl),
		Orders:     handler.NewOrderHandler(svc.Orders),
		Deliveries: handler.NewDeliveryHandler(svc.Deliveries),
		Stats:      handler.NewStatsHandler(svc.Stats),
	}
	if rdb != nil {
		h.Health.Redis = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	router.Register(e, h, router.Options{
		Verifier:  svc.Auth,
		RateLimit: cfg.RateLimit,
		Cache:     cfg.Cache,
		Redis:     rdb,
		Log:       zl,
	})
	e.Static(filestorage.URLPrefix, files.BasePath())

	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := e.Start(cfg.App.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newEcho builds the echo instance with the shared middleware stack.
func newEcho(cfg config.Config, zl *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(zl)

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			zl.Error("panic recovered",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)))
			return err
		},
	}))
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zl.Info("request", fields...)
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.App.CORSOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
	}))
	e.Use(echomw.BodyLimit(bodyLimit(cfg.Uploads.MaxBytes)))
	return e
}

// bodyLimit leaves room for multipart framing above the upload limit.
func bodyLimit(maxUpload int64) string {
	const slack = 1 << 20
	return strconv.FormatInt((maxUpload+slack)>>10, 10) + "K"
}
