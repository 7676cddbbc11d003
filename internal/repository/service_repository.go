package repository

import (
	"context"

	"github.com/iliyamo/orderdesk/internal/model"
)

const serviceColumns = "id, name, description, base_price, is_active, created_at, updated_at"

type ServiceRepo struct{ q Querier }

func NewServiceRepo(q Querier) *ServiceRepo { return &ServiceRepo{q: q} }

func (r *ServiceRepo) Create(ctx context.Context, s *model.Service) (uint64, error) {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO services (name, description, base_price, is_active) VALUES (?,?,?,?)",
		s.Name, s.Description, s.BasePrice, s.IsActive)
	if err != nil {
		return 0, translate(err, "")
	}
	return lastID(res)
}

func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (model.Service, error) {
	var s model.Service
	err := r.q.QueryRowContext(ctx, "SELECT "+serviceColumns+" FROM services WHERE id=? LIMIT 1", id).
		Scan(&s.ID, &s.Name, &s.Description, &s.BasePrice, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Service{}, translate(err, "service not found")
	}
	return s, nil
}

// ListActive returns the active catalog, newest first.
func (r *ServiceRepo) ListActive(ctx context.Context) ([]model.Service, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+serviceColumns+" FROM services WHERE is_active=1 ORDER BY id DESC")
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	out := make([]model.Service, 0)
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.BasePrice, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, translate(err, "")
		}
		out = append(out, s)
	}
	return out, translate(rows.Err(), "")
}

func (r *ServiceRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, "UPDATE services SET is_active=? WHERE id=?", active, id)
	return translate(err, "")
}
