package model

import "time"

type DeliveryStatus string

const (
	DeliveryAssigned       DeliveryStatus = "assigned"
	DeliveryPickedUp       DeliveryStatus = "picked_up"
	DeliveryOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryDelivered      DeliveryStatus = "delivered"
	DeliveryCancelled      DeliveryStatus = "cancelled"
)

var DeliveryStatuses = []DeliveryStatus{
	DeliveryAssigned, DeliveryPickedUp, DeliveryOutForDelivery, DeliveryDelivered, DeliveryCancelled,
}

func (s DeliveryStatus) Valid() bool {
	for _, v := range DeliveryStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryCancelled
}

// Delivery mirrors the `deliveries` table. There is at most one row per order.
type Delivery struct {
	ID             uint64         `json:"id"`
	OrderID        uint64         `json:"order_id"`
	DeliveryUserID uint64         `json:"delivery_user_id"`
	Status         DeliveryStatus `json:"status"`
	LastLat        *float64       `json:"last_lat"`
	LastLng        *float64       `json:"last_lng"`
	DestLat        *float64       `json:"dest_lat"`
	DestLng        *float64       `json:"dest_lng"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// DeliveryView adds the order and courier columns shown in delivery lists.
type DeliveryView struct {
	Delivery
	OrderTitle   string      `json:"order_title"`
	OrderStatus  OrderStatus `json:"order_status"`
	DeliveryName string      `json:"delivery_name"`
}

// DeliveryEvent is one append-only audit entry for a delivery. Lat/Lng are
// set for location events only.
type DeliveryEvent struct {
	ID         uint64    `json:"id"`
	DeliveryID uint64    `json:"delivery_id"`
	ActorID    uint64    `json:"actor_id"`
	ActorName  *string   `json:"actor_name,omitempty"`
	EventType  string    `json:"event_type"`
	Message    *string   `json:"message"`
	Lat        *float64  `json:"lat"`
	Lng        *float64  `json:"lng"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	DeliveryEventAssigned = "assigned"
	DeliveryEventLocation = "location"
)
