// Package router maps the /v1 API onto handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/config"
	"github.com/iliyamo/orderdesk/internal/handler"
	"github.com/iliyamo/orderdesk/internal/middleware"
)

// Handlers is everything the routes dispatch to.
type Handlers struct {
	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Catalog    *handler.CatalogHandler
	Orders     *handler.OrderHandler
	Deliveries *handler.DeliveryHandler
	Stats      *handler.StatsHandler
}

// Options carries the shared middleware inputs. Redis may be nil, in which
// case rate limiting and caching are skipped.
type Options struct {
	Verifier  middleware.TokenVerifier
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	Log       *zap.Logger
}

// Register mounts every route on e.
func Register(e *echo.Echo, h Handlers, opt Options) {
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	e.GET("/api/health", h.Health.Health)

	RegisterAuth(e, h.Auth, opt)

	api := e.Group("/v1")
	api.Use(middleware.JWTAuth(opt.Verifier))
	api.Use(middleware.NewTokenBucket(opt.RateLimit, opt.Redis, opt.Log))

	api.GET("/me", h.Auth.Me)
	registerOrders(api, h.Orders)
	registerDeliveries(api, h.Deliveries)
	registerBackoffice(api, h, opt)
}

// RegisterAuth mounts the credential endpoints. They run before any access
// token exists, so they get their own, smaller rate limit bucket.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opt Options) {
	limit := opt.RateLimit.WithCapacity(opt.RateLimit.AuthCapacity, opt.RateLimit.Prefix+":auth")

	g := e.Group("/v1/auth")
	g.Use(middleware.NewTokenBucket(limit, opt.Redis, opt.Log))
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}
