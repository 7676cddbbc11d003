package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/policy"
)

const orderColumns = "id, client_id, service_id, title, details, status, priority, assigned_to, due_date, created_at, updated_at"

type OrderRepo struct{ q Querier }

func NewOrderRepo(q Querier) *OrderRepo { return &OrderRepo{q: q} }

// Create inserts the order with status "created" and returns its id.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) (uint64, error) {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO orders (client_id, service_id, title, details, status, priority, due_date) VALUES (?,?,?,?,?,?,?)",
		o.ClientID, o.ServiceID, o.Title, o.Details, model.OrderCreated, o.Priority, o.DueDate)
	if err != nil {
		return 0, translate(err, "")
	}
	return lastID(res)
}

func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	return r.getOne(ctx, "SELECT "+orderColumns+" FROM orders WHERE id=? LIMIT 1", id)
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, id uint64) (model.Order, error) {
	return r.getOne(ctx, "SELECT "+orderColumns+" FROM orders WHERE id=? FOR UPDATE", id)
}

func (r *OrderRepo) getOne(ctx context.Context, query string, id uint64) (model.Order, error) {
	var o model.Order
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.ClientID, &o.ServiceID, &o.Title, &o.Details, &o.Status, &o.Priority,
		&o.AssignedTo, &o.DueDate, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return model.Order{}, translate(err, "order not found")
	}
	return o, nil
}

// UpdateStatus writes status and assignee in one statement so the two can
// never be observed out of step.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus, assignedTo *uint64) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE orders SET status=?, assigned_to=COALESCE(?, assigned_to) WHERE id=?",
		status, assignedTo, id)
	if err != nil {
		return translate(err, "")
	}
	return requireRow(res, "order not found")
}

// List returns the orders visible under scope joined with service, client,
// assignee and delivery columns, most recently updated first.
func (r *OrderRepo) List(ctx context.Context, scope policy.Scope, limit int) ([]model.OrderView, error) {
	if scope.None {
		return []model.OrderView{}, nil
	}
	b := sq.Select(
		"o.id", "o.client_id", "o.service_id", "o.title", "o.details", "o.status", "o.priority",
		"o.assigned_to", "o.due_date", "o.created_at", "o.updated_at",
		"s.name", "c.name", "a.name", "d.id", "d.status", "du.name", "d.last_lat", "d.last_lng",
	).
		From("orders o").
		Join("services s ON s.id = o.service_id").
		Join("users c ON c.id = o.client_id").
		LeftJoin("users a ON a.id = o.assigned_to").
		LeftJoin("deliveries d ON d.order_id = o.id").
		LeftJoin("users du ON du.id = d.delivery_user_id").
		OrderBy("o.updated_at DESC", "o.id DESC").
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
		return []model.OrderView{}, nil
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

	out := make([]model.OrderView, 0)
	for rows.Next() {
		var v model.OrderView
		if err := rows.Scan(
			&v.ID, &v.ClientID, &v.ServiceID, &v.Title, &v.Details, &v.Status, &v.Priority,
			&v.AssignedTo, &v.DueDate, &v.CreatedAt, &v.UpdatedAt,
			&v.ServiceName, &v.ClientName, &v.AssigneeName,
			&v.DeliveryID, &v.DeliveryStatus, &v.DeliveryName, &v.LastLat, &v.LastLng,
		); err != nil {
			return nil, translate(err, "")
		}
		out = append(out, v)
	}
	return out, translate(rows.Err(), "")
}

// Count counts orders, optionally restricted to the given statuses.
func (r *OrderRepo) Count(ctx context.Context, statuses ...model.OrderStatus) (int64, error) {
	b := sq.Select("COUNT(*)").From("orders").PlaceholderFormat(sq.Question)
	if len(statuses) > 0 {
		b = b.Where(sq.Eq{"status": statuses})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, translate(err, "")
	}
	return n, nil
}

func (r *OrderRepo) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY status")
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	out := make([]model.StatusCount, 0, len(model.OrderStatuses))
	for rows.Next() {
		var sc model.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, translate(err, "")
		}
		out = append(out, sc)
	}
	return out, translate(rows.Err(), "")
}

// requireRow turns a zero-row UPDATE into NotFound. The DSN sets
// clientFoundRows so an UPDATE that matches but changes nothing still
// counts one row.
func requireRow(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, "")
	}
	if n == 0 {
		return translate(sql.ErrNoRows, notFound)
	}
	return nil
}
