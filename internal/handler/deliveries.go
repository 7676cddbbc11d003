package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/service"
)

// DeliveryHandler exposes the delivery workflow.
type DeliveryHandler struct {
	Deliveries *service.DeliveryWorkflow
}

func NewDeliveryHandler(deliveries *service.DeliveryWorkflow) *DeliveryHandler {
	return &DeliveryHandler{Deliveries: deliveries}
}

type assignReq struct {
	OrderID        uint64 `json:"order_id" validate:"required"`
	DeliveryUserID uint64 `json:"delivery_user_id" validate:"required"`
}

type deliveryStatusReq struct {
	Status  string `json:"status" validate:"required"`
	Message string `json:"message" validate:"max=500"`
}

// Coordinates are pointers so that 0 is accepted while a missing field is
// still rejected.
type pointReq struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

func (h *DeliveryHandler) List(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Deliveries.List(ctx, id)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"deliveries": list})
}

// Assign creates the order's delivery or reassigns its courier.
func (h *DeliveryHandler) Assign(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	var req assignReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	deliveryID, err := h.Deliveries.AssignCourier(ctx, id, service.AssignCourier{
		OrderID:   req.OrderID,
		CourierID: req.DeliveryUserID,
	})
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"id": deliveryID})
}

func (h *DeliveryHandler) Get(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	deliveryID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Deliveries.Get(ctx, id, deliveryID)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"delivery": d})
}

func (h *DeliveryHandler) SetStatus(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	deliveryID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req deliveryStatusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	err = h.Deliveries.SetStatus(ctx, id, service.SetDeliveryStatus{
		DeliveryID: deliveryID,
		Status:     model.DeliveryStatus(req.Status),
		Message:    req.Message,
	})
	if err != nil {
		return err
	}
	return ok(c, nil)
}

func (h *DeliveryHandler) ReportLocation(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	deliveryID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req pointReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	err = h.Deliveries.ReportLocation(ctx, id, service.ReportLocation{
		DeliveryID: deliveryID,
		Lat:        *req.Lat,
		Lng:        *req.Lng,
	})
	if err != nil {
		return err
	}
	return ok(c, nil)
}

func (h *DeliveryHandler) SetDestination(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	deliveryID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req pointReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	err = h.Deliveries.SetDestination(ctx, id, service.SetDestination{
		DeliveryID: deliveryID,
		Lat:        *req.Lat,
		Lng:        *req.Lng,
	})
	if err != nil {
		return err
	}
	return ok(c, nil)
}

func (h *DeliveryHandler) Events(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	deliveryID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	events, err := h.Deliveries.Events(ctx, id, deliveryID)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"events": events})
}
