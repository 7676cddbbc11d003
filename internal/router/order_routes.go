package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/orderdesk/internal/handler"
	"github.com/iliyamo/orderdesk/internal/middleware"
	"github.com/iliyamo/orderdesk/internal/policy"
)

func registerOrders(api *echo.Group, h *handler.OrderHandler) {
	g := api.Group("/orders")
	g.GET("", h.List, middleware.Authorize(policy.OrderRead))
	g.POST("", h.Create, middleware.Authorize(policy.OrderCreate))
	g.GET("/:id", h.Get, middleware.Authorize(policy.OrderRead))
	g.POST("/:id/status", h.SetStatus, middleware.Authorize(policy.OrderSetStatus))
	g.GET("/:id/events", h.Events, middleware.Authorize(policy.OrderEvents))
	g.GET("/:id/attachments", h.Attachments, middleware.Authorize(policy.OrderAttachments))
	g.POST("/:id/attachments", h.Upload, middleware.Authorize(policy.OrderAttachments))
}

func registerDeliveries(api *echo.Group, h *handler.DeliveryHandler) {
	g := api.Group("/deliveries")
	g.GET("", h.List, middleware.Authorize(policy.DeliveryRead))
	g.POST("", h.Assign, middleware.Authorize(policy.DeliveryAssign))
	g.GET("/:id", h.Get, middleware.Authorize(policy.DeliveryRead))
	g.POST("/:id/status", h.SetStatus, middleware.Authorize(policy.DeliverySetStatus))
	g.POST("/:id/location", h.ReportLocation, middleware.Authorize(policy.DeliveryReportLocation))
	g.POST("/:id/destination", h.SetDestination, middleware.Authorize(policy.DeliverySetDestination))
	g.GET("/:id/events", h.Events, middleware.Authorize(policy.DeliveryRead))
}
