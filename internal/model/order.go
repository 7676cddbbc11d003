package model

import "time"

type OrderStatus string

const (
	OrderCreated    OrderStatus = "created"
	OrderApproved   OrderStatus = "approved"
	OrderAssigned   OrderStatus = "assigned"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderArchived   OrderStatus = "archived"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderCreated, OrderApproved, OrderAssigned, OrderInProgress, OrderCompleted, OrderArchived,
}

// OpenOrderStatuses are the statuses counted as "open" by the stats overview.
var OpenOrderStatuses = []OrderStatus{OrderCreated, OrderApproved, OrderAssigned, OrderInProgress}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Order mirrors the `orders` table.
type Order struct {
	ID         uint64      `json:"id"`
	ClientID   uint64      `json:"client_id"`
	ServiceID  uint64      `json:"service_id"`
	Title      string      `json:"title"`
	Details    string      `json:"details"`
	Status     OrderStatus `json:"status"`
	Priority   Priority    `json:"priority"`
	AssignedTo *uint64     `json:"assigned_to"`
	DueDate    *time.Time  `json:"due_date"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// AssigneeID returns the assigned staff id or zero.
func (o Order) AssigneeID() uint64 {
	if o.AssignedTo == nil {
		return 0
	}
	return *o.AssignedTo
}

// OrderView is an order joined with the names and delivery columns the
// order list shows.
type OrderView struct {
	Order
	ServiceName    string          `json:"service_name"`
	ClientName     string          `json:"client_name"`
	AssigneeName   *string         `json:"assignee_name"`
	DeliveryID     *uint64         `json:"delivery_id"`
	DeliveryStatus *DeliveryStatus `json:"delivery_status"`
	DeliveryName   *string         `json:"delivery_name"`
	LastLat        *float64        `json:"last_lat"`
	LastLng        *float64        `json:"last_lng"`
}

// OrderEvent is one append-only audit entry for an order. EventType is the
// new status for status changes, "created" or "attachment" otherwise.
type OrderEvent struct {
	ID        uint64    `json:"id"`
	OrderID   uint64    `json:"order_id"`
	ActorID   uint64    `json:"actor_id"`
	ActorName *string   `json:"actor_name,omitempty"`
	EventType string    `json:"event_type"`
	Message   *string   `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	OrderEventCreated    = "created"
	OrderEventAttachment = "attachment"
)

// OrderAttachment records a stored file. FileURL is the reference returned
// by the file store, never a filesystem path.
type OrderAttachment struct {
	ID           uint64    `json:"id"`
	OrderID      uint64    `json:"order_id"`
	UploaderID   uint64    `json:"uploader_id"`
	UploaderName *string   `json:"uploader_name,omitempty"`
	FileURL      string    `json:"file_url"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	CreatedAt    time.Time `json:"created_at"`
}
