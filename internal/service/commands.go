package service

import (
	"io"
	"time"

	"github.com/iliyamo/orderdesk/internal/model"
)

// Commands are built by the transport layer after binding and validating a
// request. Services re-check the invariants they own.

type CreateOrder struct {
	ServiceID uint64
	Title     string
	Details   string
	Priority  model.Priority
	DueDate   *time.Time
}

type SetOrderStatus struct {
	OrderID    uint64
	Status     model.OrderStatus
	AssignedTo *uint64
	Message    string
}

type UploadAttachment struct {
	OrderID      uint64
	OriginalName string
	Size         int64
	Body         io.Reader
}

type AssignCourier struct {
	OrderID   uint64
	CourierID uint64
}

type SetDeliveryStatus struct {
	DeliveryID uint64
	Status     model.DeliveryStatus
	Message    string
}

type ReportLocation struct {
	DeliveryID uint64
	Lat        float64
	Lng        float64
}

type SetDestination struct {
	DeliveryID uint64
	Lat        float64
	Lng        float64
}

type CreateUser struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

type CreateService struct {
	Name        string
	Description string
	BasePrice   float64
}
