package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/orderdesk/internal/model"
)

const userColumns = "id, name, email, password_hash, role, is_active, created_at, updated_at"

type UserRepo struct{ q Querier }

func NewUserRepo(q Querier) *UserRepo { return &UserRepo{q: q} }

// Create inserts a user with an already hashed password and returns its ID.
// The email is normalized to lower case.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, is_active) VALUES (?,?,?,?,?)",
		u.Name, normalizeEmail(u.Email), u.PasswordHash, u.Role, u.IsActive)
	if err != nil {
		return 0, translate(err, "")
	}
	return lastID(res)
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	var u model.User
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, translate(err, "user not found")
	}
	return u, nil
}

// List returns users newest first.
func (r *UserRepo) List(ctx context.Context, limit int) ([]model.User, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	out := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, translate(err, "")
		}
		out = append(out, u)
	}
	return out, translate(rows.Err(), "")
}

// Toggle flips is_active and returns the new value. Callers that need the
// read to be consistent run it inside a unit of work.
func (r *UserRepo) Toggle(ctx context.Context, id uint64) (bool, error) {
	res, err := r.q.ExecContext(ctx, "UPDATE users SET is_active = 1 - is_active WHERE id=?", id)
	if err != nil {
		return false, translate(err, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
	}
	var active bool
	if err := r.q.QueryRowContext(ctx, "SELECT is_active FROM users WHERE id=?", id).Scan(&active); err != nil {
		return false, translate(err, "user not found")
	}
	return active, nil
}

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, translate(err, "")
	}
	return n, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
