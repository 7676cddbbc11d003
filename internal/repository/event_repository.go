package repository

import (
	"context"
	"time"

	"github.com/iliyamo/orderdesk/internal/model"
)

// EventRepo is the MySQL event log. It only ever INSERTs and SELECTs.
type EventRepo struct{ q Querier }

func NewEventRepo(q Querier) *EventRepo { return &EventRepo{q: q} }

// stamp converts a caller supplied time to the stored DATETIME precision.
// Rows written without one get the current time.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Truncate(time.Second)
}

func (r *EventRepo) AppendOrderEvent(ctx context.Context, e *model.OrderEvent) (uint64, error) {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO order_events (order_id, actor_id, event_type, message, created_at) VALUES (?,?,?,?,?)",
		e.OrderID, e.ActorID, e.EventType, e.Message, stamp(e.CreatedAt))
	if err != nil {
		return 0, translate(err, "")
	}
	return lastID(res)
}

// ListOrderEvents returns an order's events newest first.
func (r *EventRepo) ListOrderEvents(ctx context.Context, orderID uint64, limit int) ([]model.OrderEvent, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT e.id, e.order_id, e.actor_id, u.name, e.event_type, e.message, e.created_at
		FROM order_events e
		LEFT JOIN users u ON u.id = e.actor_id
		WHERE e.order_id = ?
		ORDER BY e.id DESC
		LIMIT ?`, orderID, limit)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	out := make([]model.OrderEvent, 0)
	for rows.Next() {
		var e model.OrderEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.ActorID, &e.ActorName, &e.EventType, &e.Message, &e.CreatedAt); err != nil {
			return nil, translate(err, "")
		}
		out = append(out, e)
	}
	return out, translate(rows.Err(), "")
}

func (r *EventRepo) AppendDeliveryEvent(ctx context.Context, e *model.DeliveryEvent) (uint64, error) {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO delivery_events (delivery_id, actor_id, event_type, message, lat, lng, created_at) VALUES (?,?,?,?,?,?,?)",
		e.DeliveryID, e.ActorID, e.EventType, e.Message, e.Lat, e.Lng, stamp(e.CreatedAt))
	if err != nil {
		return 0, translate(err, "")
	}
	return lastID(res)
}

// ListDeliveryEvents returns a delivery's events newest first.
func (r *EventRepo) ListDeliveryEvents(ctx context.Context, deliveryID uint64, limit int) ([]model.DeliveryEvent, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT e.id, e.delivery_id, e.actor_id, u.name, e.event_type, e.message, e.lat, e.lng, e.created_at
		FROM delivery_events e
		LEFT JOIN users u ON u.id = e.actor_id
		WHERE e.delivery_id = ?
		ORDER BY e.id DESC
		LIMIT ?`, deliveryID, limit)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	out := make([]model.DeliveryEvent, 0)
	for rows.Next() {
		var e model.DeliveryEvent
		if err := rows.Scan(&e.ID, &e.DeliveryID, &e.ActorID, &e.ActorName, &e.EventType, &e.Message, &e.Lat, &e.Lng, &e.CreatedAt); err != nil {
			return nil, translate(err, "")
		}
		out = append(out, e)
	}
	return out, translate(rows.Err(), "")
}
