package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/orderdesk/internal/middleware"
	"github.com/iliyamo/orderdesk/internal/policy"
)

// registerBackoffice mounts users, the service catalog and stats. Only the
// catalog listing is cached: it is the one response identical for every
// caller.
func registerBackoffice(api *echo.Group, h Handlers, opt Options) {
	users := api.Group("/users")
	users.GET("", h.Users.List, middleware.Authorize(policy.UserList))
	users.POST("", h.Users.Create, middleware.Authorize(policy.UserCreate))
	users.POST("/:id/toggle", h.Users.Toggle, middleware.Authorize(policy.UserToggle))

	services := api.Group("/services")
	services.GET("", h.Catalog.List,
		middleware.Authorize(policy.ServiceList),
		middleware.NewRedisCache(opt.Cache, opt.Redis, opt.Log))
	services.POST("", h.Catalog.Create, middleware.Authorize(policy.ServiceWrite))
	services.POST("/:id/active", h.Catalog.SetActive, middleware.Authorize(policy.ServiceWrite))

	stats := api.Group("/stats", middleware.Authorize(policy.StatsRead))
	stats.GET("/overview", h.Stats.Overview)
	stats.GET("/orders.xlsx", h.Stats.ExportOrders)
}
