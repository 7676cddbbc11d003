package repository

import (
	"context"

	"github.com/iliyamo/orderdesk/internal/model"
)

type AttachmentRepo struct{ q Querier }

func NewAttachmentRepo(q Querier) *AttachmentRepo { return &AttachmentRepo{q: q} }

func (r *AttachmentRepo) Create(ctx context.Context, a *model.OrderAttachment) (uint64, error) {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO order_attachments (order_id, uploader_id, file_url, original_name, mime_type, created_at) VALUES (?,?,?,?,?,?)",
		a.OrderID, a.UploaderID, a.FileURL, a.OriginalName, a.MimeType, stamp(a.CreatedAt))
	if err != nil {
		return 0, translate(err, "")
	}
	return lastID(res)
}

// ListByOrder returns an order's attachments newest first with the
// uploader's name.
func (r *AttachmentRepo) ListByOrder(ctx context.Context, orderID uint64, limit int) ([]model.OrderAttachment, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT a.id, a.order_id, a.uploader_id, u.name, a.file_url, a.original_name, a.mime_type, a.created_at
		FROM order_attachments a
		LEFT JOIN users u ON u.id = a.uploader_id
		WHERE a.order_id = ?
		ORDER BY a.id DESC
		LIMIT ?`, orderID, limit)
	if err != nil {
		return nil, translate(err, "")
	}
	defer rows.Close()

	out := make([]model.OrderAttachment, 0)
	for rows.Next() {
		var a model.OrderAttachment
		if err := rows.Scan(&a.ID, &a.OrderID, &a.UploaderID, &a.UploaderName, &a.FileURL, &a.OriginalName, &a.MimeType, &a.CreatedAt); err != nil {
			return nil, translate(err, "")
		}
		out = append(out, a)
	}
	return out, translate(rows.Err(), "")
}
