package handler

import (
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/service"
)

// OrderHandler exposes the order workflow.
type OrderHandler struct {
	Orders *service.OrderWorkflow
}

func NewOrderHandler(orders *service.OrderWorkflow) *OrderHandler {
	return &OrderHandler{Orders: orders}
}

type createOrderReq struct {
	ServiceID uint64 `json:"service_id" validate:"required"`
	Title     string `json:"title" validate:"required,min=3,max=180"`
	Details   string `json:"details" validate:"max=10000"`
	Priority  string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate   string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type orderStatusReq struct {
	Status     string  `json:"status" validate:"required"`
	AssignedTo *uint64 `json:"assigned_to"`
	Message    string  `json:"message" validate:"max=500"`
}

func (h *OrderHandler) List(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	orders, err := h.Orders.List(ctx, id)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"orders": orders})
}

func (h *OrderHandler) Create(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	var req createOrderReq
	if err := bind(c, &req); err != nil {
		return err
	}
	cmd := service.CreateOrder{
		ServiceID: req.ServiceID,
		Title:     req.Title,
		Details:   req.Details,
		Priority:  model.Priority(req.Priority),
	}
	if req.DueDate != "" {
		due, err := time.Parse(time.DateOnly, req.DueDate)
		if err != nil {
			return apperr.Field("due_date", "datetime")
		}
		cmd.DueDate = &due
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Orders.Create(ctx, id, cmd)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"id": o.ID, "order": o})
}

func (h *OrderHandler) Get(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	o, err := h.Orders.Get(ctx, id, orderID)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"order": o})
}

func (h *OrderHandler) SetStatus(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req orderStatusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	err = h.Orders.SetStatus(ctx, id, service.SetOrderStatus{
		OrderID:    orderID,
		Status:     model.OrderStatus(req.Status),
		AssignedTo: req.AssignedTo,
		Message:    req.Message,
	})
	if err != nil {
		return err
	}
	return ok(c, nil)
}

func (h *OrderHandler) Events(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	events, err := h.Orders.Events(ctx, id, orderID)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"events": events})
}

func (h *OrderHandler) Attachments(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	files, err := h.Orders.ListAttachments(ctx, id, orderID)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"attachments": files})
}

// Upload stores the multipart field "file" as an order attachment. Size and
// type limits are enforced by the workflow.
func (h *OrderHandler) Upload(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return apperr.Field("file", "required")
		}
		return apperr.Validation("invalid multipart body", nil)
	}
	if utf8.RuneCountInString(fh.Filename) > service.MaxAttachmentName {
		return apperr.Field("file", "name too long")
	}
	src, err := fh.Open()
	if err != nil {
		return apperr.Internal("open upload", err)
	}
	defer src.Close()

	ctx, cancel := reqCtx(c)
	defer cancel()
	att, err := h.Orders.AddAttachment(ctx, id, service.UploadAttachment{
		OrderID:      orderID,
		OriginalName: fh.Filename,
		Size:         fh.Size,
		Body:         src,
	})
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"attachment": att})
}
