package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/config"
	"github.com/iliyamo/orderdesk/internal/middleware"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/service"
)

// UserHandler is the admin user console.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

type createUserReq struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email,max=190"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin manager staff delivery client"`
}

func (h *UserHandler) List(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx, id)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"users": users})
}

func (h *UserHandler) Create(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Create(ctx, id, service.CreateUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"id": u.ID, "user": u})
}

func (h *UserHandler) Toggle(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	active, err := h.Users.Toggle(ctx, id, userID)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"is_active": active})
}

// CatalogHandler serves the service catalog. Writes drop the cached
// listing.
type CatalogHandler struct {
	Catalog *service.CatalogService
	Cache   config.CacheConfig
	Redis   *redis.Client
	Log     *zap.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, cache config.CacheConfig, rdb *redis.Client, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{Catalog: catalog, Cache: cache, Redis: rdb, Log: log}
}

type createServiceReq struct {
	Name        string  `json:"name" validate:"required,min=2,max=160"`
	Description string  `json:"description" validate:"max=2000"`
	BasePrice   float64 `json:"base_price" validate:"gte=0,lt=100000000"`
}

type serviceActiveReq struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *CatalogHandler) List(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Catalog.List(ctx, id)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"services": list})
}

func (h *CatalogHandler) Create(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	var req createServiceReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Catalog.Create(ctx, id, service.CreateService{
		Name:        req.Name,
		Description: req.Description,
		BasePrice:   req.BasePrice,
	})
	if err != nil {
		return err
	}
	h.invalidate(c)
	return ok(c, echo.Map{"id": s.ID, "service": s})
}

func (h *CatalogHandler) SetActive(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	serviceID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req serviceActiveReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.SetActive(ctx, id, serviceID, *req.IsActive); err != nil {
		return err
	}
	h.invalidate(c)
	return ok(c, nil)
}

func (h *CatalogHandler) invalidate(c echo.Context) {
	if err := middleware.InvalidateCache(c.Request().Context(), h.Cache, h.Redis); err != nil && h.Log != nil {
		h.Log.Warn("invalidate catalog cache", zap.Error(err))
	}
}

// StatsHandler serves the dashboard numbers and the spreadsheet export.
type StatsHandler struct {
	Stats *service.StatsService
}

func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{Stats: stats}
}

func (h *StatsHandler) Overview(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ov, err := h.Stats.Overview(ctx, id)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"overview": ov})
}

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportOrders renders the workbook into memory first so a failure still
// produces a JSON error instead of a truncated download.
func (h *StatsHandler) ExportOrders(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	var buf bytes.Buffer
	if err := h.Stats.ExportOrders(ctx, id, &buf); err != nil {
		return err
	}
	name := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxMime, buf.Bytes())
}
