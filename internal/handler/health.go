package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RedisPinger reports whether the cache backend answers. It is optional.
type RedisPinger func(ctx context.Context) error

// HealthHandler is used by load balancers and monitoring to check that the
// API and its database are reachable.
type HealthHandler struct {
	DB    Pinger
	Redis RedisPinger
}

func NewHealthHandler(db Pinger, redis RedisPinger) *HealthHandler {
	return &HealthHandler{DB: db, Redis: redis}
}

// Health returns 200 when MySQL answers and 503 otherwise. Redis is
// reported but never fails the check since every Redis feature degrades.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	body := echo.Map{"ok": true, "db": "up"}
	status := http.StatusOK
	if err := h.DB.PingContext(ctx); err != nil {
		body["ok"] = false
		body["db"] = "down"
		status = http.StatusServiceUnavailable
	}
	if h.Redis != nil {
		body["redis"] = "up"
		if err := h.Redis(ctx); err != nil {
			body["redis"] = "down"
		}
	}
	return c.JSON(status, body)
}
