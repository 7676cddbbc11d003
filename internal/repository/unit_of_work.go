package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/orderdesk/internal/ports"
)

// New binds every repository to q, which may be the pool or a transaction.
func New(q Querier) ports.Repositories {
	return ports.Repositories{
		Users:       NewUserRepo(q),
		Tokens:      NewTokenRepo(q),
		Services:    NewServiceRepo(q),
		Orders:      NewOrderRepo(q),
		Attachments: NewAttachmentRepo(q),
		Deliveries:  NewDeliveryRepo(q),
		Events:      NewEventRepo(q),
	}
}

// UnitOfWork runs closures inside a database transaction.
type UnitOfWork struct{ db *sql.DB }

func NewUnitOfWork(db *sql.DB) *UnitOfWork { return &UnitOfWork{db: db} }

// Do begins a transaction, hands fn repositories bound to it and commits
// when fn returns nil. Any error or panic rolls the transaction back.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return translate(fmt.Errorf("begin tx: %w", err), "")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, New(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(fmt.Errorf("commit: %w", err), "")
	}
	committed = true
	return nil
}
