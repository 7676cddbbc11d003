// Package ports declares the storage, file and broker contracts the
// workflow services depend on. The MySQL implementations live in
// internal/repository; tests substitute in-memory ones.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/policy"
	"github.com/iliyamo/orderdesk/internal/queue"
)

// ListLimit caps every listing, matching the dashboard's page size.
const ListLimit = 200

// Lookups by id return an apperr NotFound error when no row matches, and
// inserts that violate a unique key return an apperr Conflict error.

type UserRepository interface {
	Create(ctx context.Context, u *model.User) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context, limit int) ([]model.User, error)
	// Toggle flips is_active and returns the new value.
	Toggle(ctx context.Context, id uint64) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type TokenRepository interface {
	Store(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
	Find(ctx context.Context, userID uint64, tokenHash string) (model.RefreshToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type ServiceRepository interface {
	Create(ctx context.Context, s *model.Service) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Service, error)
	ListActive(ctx context.Context) ([]model.Service, error)
	SetActive(ctx context.Context, id uint64, active bool) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Order, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uint64) (model.Order, error)
	// UpdateStatus sets the status and, when assignedTo is non-nil, the
	// assignee. A nil assignedTo keeps the current one.
	UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus, assignedTo *uint64) error
	List(ctx context.Context, scope policy.Scope, limit int) ([]model.OrderView, error)
	Count(ctx context.Context, statuses ...model.OrderStatus) (int64, error)
	CountByStatus(ctx context.Context) ([]model.StatusCount, error)
}

type AttachmentRepository interface {
	Create(ctx context.Context, a *model.OrderAttachment) (uint64, error)
	ListByOrder(ctx context.Context, orderID uint64, limit int) ([]model.OrderAttachment, error)
}

type DeliveryRepository interface {
	// Upsert creates the order's delivery or re-points the existing one at
	// courierID with status reset to assigned. It returns the delivery id.
	Upsert(ctx context.Context, orderID, courierID uint64) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Delivery, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Delivery, error)
	// CourierIDsForOrder returns the couriers of deliveries attached to the
	// order, empty when none.
	CourierIDsForOrder(ctx context.Context, orderID uint64) ([]uint64, error)
	UpdateStatus(ctx context.Context, id uint64, status model.DeliveryStatus) error
	UpdateLocation(ctx context.Context, id uint64, lat, lng float64) error
	UpdateDestination(ctx context.Context, id uint64, lat, lng float64) error
	List(ctx context.Context, scope policy.Scope, limit int) ([]model.DeliveryView, error)
}

// EventLog is the append-only audit trail; it has no update or delete.
type EventLog interface {
	AppendOrderEvent(ctx context.Context, e *model.OrderEvent) (uint64, error)
	ListOrderEvents(ctx context.Context, orderID uint64, limit int) ([]model.OrderEvent, error)
	AppendDeliveryEvent(ctx context.Context, e *model.DeliveryEvent) (uint64, error)
	ListDeliveryEvents(ctx context.Context, deliveryID uint64, limit int) ([]model.DeliveryEvent, error)
}

// Repositories bundles every repository bound to one connection or one
// transaction.
type Repositories struct {
	Users       UserRepository
	Tokens      TokenRepository
	Services    ServiceRepository
	Orders      OrderRepository
	Attachments AttachmentRepository
	Deliveries  DeliveryRepository
	Events      EventLog
}

// UnitOfWork runs fn inside one transaction. The transaction commits when
// fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// FileStore persists attachment bodies and returns an opaque reference.
type FileStore interface {
	Save(r io.Reader, originalName, prefix string) (string, error)
	Delete(ref string) error
}

// EventPublisher fans committed workflow events out to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.WorkflowEvent) error
}
