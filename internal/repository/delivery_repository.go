package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/policy"
)

const deliveryColumns = "id, order_id, delivery_user_id, status, last_lat, last_lng, dest_lat, dest_lng, created_at, updated_at"

type DeliveryRepo struct{ q Querier }

func NewDeliveryRepo(q Querier) *DeliveryRepo { return &DeliveryRepo{q: q} }

// Upsert relies on UNIQUE(order_id): a second assignment re-points the
// existing row instead of inserting a new one.
func (r *DeliveryRepo) Upsert(ctx context.Context, orderID, courierID uint64) (uint64, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO deliveries (order_id, delivery_user_id, status) VALUES (?,?,'assigned')
		ON DUPLICATE KEY UPDATE delivery_user_id = VALUES(delivery_user_id), status = 'assigned'`,
		orderID, courierID)
	if err != nil {
		return 0, translate(err, "")
	}
	var id uint64
	if err := r.q.QueryRowContext(ctx, "SELECT id FROM deliveries WHERE order_id=? LIMIT 1", orderID).Scan(&id); err != nil {
		return 0, translate(err, "delivery not found")
	}
	return id, nil
}

func (r *DeliveryRepo) GetByID(ctx context.Context, id uint64) (model.Delivery, error) {
	return r.getOne(ctx, "SELECT "+deliveryColumns+" FROM deliveries WHERE id=? LIMIT 1", id)
}

func (r *DeliveryRepo) GetForUpdate(ctx context.Context, id uint64) (model.Delivery, error) {
	return r.getOne(ctx, "SELECT "+deliveryColumns+" FROM deliveries WHERE id=? FOR UPDATE", id)
}

func (r *DeliveryRepo) getOne(ctx context.Context, query string, id uint64) (model.Delivery, error) {
	var d model.Delivery
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.OrderID, &d.DeliveryUserID, &d.Status,
		&d.LastLat, &d.LastLng, &d.DestLat, &d.DestLng, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return model.Delivery{}, translate(err, "delivery not found")
	}
	return d, nil
}

func (r *DeliveryRepo) CourierIDsForOrder(ctx context.Context, orderID uint64) ([]uint64, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT delivery_user_id FROM deliveries WHERE order_id=?", orderID)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, translate(err, "")
		}
		ids = append(ids, id)
	}
	return ids, translate(rows.Err(), "")
}

func (r *DeliveryRepo) UpdateStatus(ctx context.Context, id uint64, status model.DeliveryStatus) error {
	res, err := r.q.ExecContext(ctx, "UPDATE deliveries SET status=? WHERE id=?", status, id)
	if err != nil {
		return translate(err, "")
	}
	return requireRow(res, "delivery not found")
}

func (r *DeliveryRepo) UpdateLocation(ctx context.Context, id uint64, lat, lng float64) error {
	res, err := r.q.ExecContext(ctx, "UPDATE deliveries SET last_lat=?, last_lng=? WHERE id=?", lat, lng, id)
	if err != nil {
		return translate(err, "")
	}
	return requireRow(res, "delivery not found")
}

func (r *DeliveryRepo) UpdateDestination(ctx context.Context, id uint64, lat, lng float64) error {
	res, err := r.q.ExecContext(ctx, "UPDATE deliveries SET dest_lat=?, dest_lng=? WHERE id=?", lat, lng, id)
	if err != nil {
		return translate(err, "")
	}
	return requireRow(res, "delivery not found")
}

// List returns deliveries visible under scope with order and courier
// columns, most recently updated first.
func (r *DeliveryRepo) List(ctx context.Context, scope policy.Scope, limit int) ([]model.DeliveryView, error) {
	if scope.None {
		return []model.DeliveryView{}, nil
	}
	b := sq.Select(
		"d.id", "d.order_id", "d.delivery_user_id", "d.status",
		"d.last_lat", "d.last_lng", "d.dest_lat", "d.dest_lng", "d.created_at", "d.updated_at",
		"o.title", "o.status", "du.name",
	).
		From("deliveries d").
		Join("orders o ON o.id = d.order_id").
		Join("users du ON du.id = d.delivery_user_id").
		OrderBy("d.updated_at DESC", "d.id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Question)

	switch {
	case scope.All:
	case scope.ClientID != 0:
		b = b.Where(sq.Eq{"o.client_id": scope.ClientID})
	case scope.AssigneeID != 0:
		b = b.Where(sq.Eq{"o.assigned_to": scope.AssigneeID})
	case scope.CourierID != 0:
		b = b.Where(sq.Eq{"d.delivery_user_id": scope.CourierID})
	default:
		return []model.DeliveryView{}, nil
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	out := make([]model.DeliveryView, 0)
	for rows.Next() {
		var v model.DeliveryView
		if err := rows.Scan(
			&v.ID, &v.OrderID, &v.DeliveryUserID, &v.Status,
			&v.LastLat, &v.LastLng, &v.DestLat, &v.DestLng, &v.CreatedAt, &v.UpdatedAt,
			&v.OrderTitle, &v.OrderStatus, &v.DeliveryName,
		); err != nil {
			return nil, translate(err, "")
		}
		out = append(out, v)
	}
	return out, translate(rows.Err(), "")
}
