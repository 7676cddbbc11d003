// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// Entity names used in WorkflowEvent.Entity.
const (
	EntityOrder    = "order"
	EntityDelivery = "delivery"
)

// WorkflowEvent is published after an order or delivery write commits. It
// mirrors the event row so consumers can audit or notify without querying
// the primary database.
type WorkflowEvent struct {
	Entity     string    `json:"entity"`
	EntityID   uint64    `json:"entity_id"`
	OrderID    uint64    `json:"order_id"`
	ActorID    uint64    `json:"actor_id"`
	Type       string    `json:"type"`
	Message    string    `json:"message,omitempty"`
	Lat        *float64  `json:"lat,omitempty"`
	Lng        *float64  `json:"lng,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
