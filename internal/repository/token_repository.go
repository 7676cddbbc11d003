package repository

import (
	"context"
	"time"

	"github.com/iliyamo/orderdesk/internal/model"
)

// TokenRepo persists refresh token digests. Rows are deleted on logout and
// by the expiry sweep; nothing else mutates them.
type TokenRepo struct{ q Querier }

func NewTokenRepo(q Querier) *TokenRepo { return &TokenRepo{q: q} }

// Store inserts a refresh token hash row.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, expiresAt.UTC())
	return translate(err, "")
}

// Find looks a token up by owner and digest. Expiry is the caller's
// concern since it depends on the injected clock.
func (r *TokenRepo) Find(ctx context.Context, userID uint64, tokenHash string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.q.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, created_at FROM refresh_tokens WHERE user_id=? AND token_hash=? LIMIT 1",
		userID, tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return model.RefreshToken{}, translate(err, "refresh token not found")
	}
	return t, nil
}

// DeleteByHash removes one token. Deleting an unknown hash is not an error.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	return translate(err, "")
}

// DeleteExpired removes tokens that expired before the given instant.
func (r *TokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", before.UTC())
	if err != nil {
		return 0, translate(err, "")
	}
	return res.RowsAffected()
}
