package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/policy"
	"github.com/iliyamo/orderdesk/internal/ports"
	"github.com/iliyamo/orderdesk/internal/queue"
)

// AttachmentMimeTypes are the content types accepted for order
// attachments, as sniffed from the first bytes of the upload.
var AttachmentMimeTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/gif",
}

// Column limits shared with the event log and attachment tables.
const (
	MaxEventMessage   = 500
	MaxAttachmentName = 255
)

// checkMessage rejects event messages the event log cannot store.
func checkMessage(msg string) error {
	if utf8.RuneCountInString(msg) > MaxEventMessage {
		return apperr.Field("message", "max")
	}
	return nil
}

// OrderWorkflow owns the order lifecycle.
type OrderWorkflow struct {
	d   Deps
	log *zap.Logger
}

func NewOrderWorkflow(d Deps) *OrderWorkflow {
	return &OrderWorkflow{d: d, log: d.Log.Named("orders")}
}

// Create places a new order on behalf of the caller. The order and its
// "created" event are written in one transaction.
func (w *OrderWorkflow) Create(ctx context.Context, actor model.Identity, cmd CreateOrder) (model.Order, error) {
	if err := authorize(actor, policy.OrderCreate, policy.Resource{}); err != nil {
		return model.Order{}, err
	}
	title := strings.TrimSpace(cmd.Title)
	if len(title) < 3 {
		return model.Order{}, apperr.Field("title", "min")
	}
	if cmd.Priority == "" {
		cmd.Priority = model.PriorityMedium
	}
	if !cmd.Priority.Valid() {
		return model.Order{}, apperr.Field("priority", "oneof")
	}

	o := model.Order{
		ClientID:  actor.ID,
		ServiceID: cmd.ServiceID,
		Title:     title,
		Details:   cmd.Details,
		Status:    model.OrderCreated,
		Priority:  cmd.Priority,
		DueDate:   cmd.DueDate,
	}
	err := w.d.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		svc, err := repos.Services.GetByID(ctx, cmd.ServiceID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NotFound("service not found")
			}
			return err
		}
		if !svc.IsActive {
			return apperr.Field("service_id", "inactive")
		}
		id, err := repos.Orders.Create(ctx, &o)
		if err != nil {
			return err
		}
		o.ID = id
		_, err = repos.Events.AppendOrderEvent(ctx, &model.OrderEvent{
			OrderID:   id,
			ActorID:   actor.ID,
			EventType: model.OrderEventCreated,
			Message:   strPtr("Order created"),
			CreatedAt: w.d.Clock.Now(),
		})
		return err
	})
	if err != nil {
		return model.Order{}, err
	}

	w.log.Info("order created", zap.Uint64("order_id", o.ID), zap.Uint64("client_id", o.ClientID))
	publish(ctx, w.d, queue.WorkflowEvent{
		Entity:     queue.EntityOrder,
		EntityID:   o.ID,
		OrderID:    o.ID,
		ActorID:    actor.ID,
		Type:       model.OrderEventCreated,
		Message:    "Order created",
		OccurredAt: w.d.Clock.Now(),
	})
	return o, nil
}

// List returns the orders the caller may see, most recently updated first.
func (w *OrderWorkflow) List(ctx context.Context, actor model.Identity) ([]model.OrderView, error) {
	return w.d.Repos.Orders.List(ctx, policy.OrderScope(policy.SubjectOf(actor)), ports.ListLimit)
}

// Get loads one order after checking read access.
func (w *OrderWorkflow) Get(ctx context.Context, actor model.Identity, id uint64) (model.Order, error) {
	return w.loadReadable(ctx, actor, policy.OrderRead, id)
}

// loadReadable loads the order and the couriers attached to it, then checks
// action against those ownership facts.
func (w *OrderWorkflow) loadReadable(ctx context.Context, actor model.Identity, action policy.Action, id uint64) (model.Order, error) {
	repos := w.d.Repos
	o, err := repos.Orders.GetByID(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	res := policy.Resource{ClientID: o.ClientID, AssigneeID: o.AssigneeID()}
	if actor.Role == model.RoleDelivery {
		couriers, err := repos.Deliveries.CourierIDsForOrder(ctx, id)
		if err != nil {
			return model.Order{}, err
		}
		res.CourierIDs = couriers
	}
	if err := authorize(actor, action, res); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// SetStatus moves an order to any enumerated status the caller is allowed
// to set. Status, assignee and the event are written in one transaction
// while the order row is locked.
func (w *OrderWorkflow) SetStatus(ctx context.Context, actor model.Identity, cmd SetOrderStatus) error {
	if !cmd.Status.Valid() {
		return apperr.Field("status", "oneof")
	}
	if err := checkMessage(cmd.Message); err != nil {
		return err
	}

	err := w.d.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		o, err := repos.Orders.GetForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		res := policy.Resource{
			ClientID:     o.ClientID,
			AssigneeID:   o.AssigneeID(),
			TargetStatus: cmd.Status,
			Reassign:     cmd.AssignedTo != nil && *cmd.AssignedTo != o.AssigneeID(),
		}
		if err := authorize(actor, policy.OrderSetStatus, res); err != nil {
			return err
		}
		if cmd.Status == model.OrderAssigned && cmd.AssignedTo == nil {
			return apperr.Validation("assigned_to required for assigned status",
				map[string]string{"assigned_to": "required"})
		}
		if cmd.AssignedTo != nil {
			if err := requireActiveRole(ctx, repos.Users, *cmd.AssignedTo, model.RoleStaff, "assigned_to"); err != nil {
				return err
			}
		}
		if err := repos.Orders.UpdateStatus(ctx, o.ID, cmd.Status, cmd.AssignedTo); err != nil {
			return err
		}
		_, err = repos.Events.AppendOrderEvent(ctx, &model.OrderEvent{
			OrderID:   o.ID,
			ActorID:   actor.ID,
			EventType: string(cmd.Status),
			Message:   strPtr(cmd.Message),
			CreatedAt: w.d.Clock.Now(),
		})
		return err
	})
	if err != nil {
		return err
	}

	w.log.Info("order status changed",
		zap.Uint64("order_id", cmd.OrderID), zap.String("status", string(cmd.Status)),
		zap.Uint64("actor_id", actor.ID))
	publish(ctx, w.d, queue.WorkflowEvent{
		Entity:     queue.EntityOrder,
		EntityID:   cmd.OrderID,
		OrderID:    cmd.OrderID,
		ActorID:    actor.ID,
		Type:       string(cmd.Status),
		Message:    cmd.Message,
		OccurredAt: w.d.Clock.Now(),
	})
	return nil
}

// requireActiveRole checks that userID names an active user with role.
// Any mismatch is reported as a validation error on field.
func requireActiveRole(ctx context.Context, users ports.UserRepository, userID uint64, role model.Role, field string) error {
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Field(field, "unknown user")
		}
		return err
	}
	if u.Role != role {
		return apperr.Field(field, "must be a "+string(role)+" user")
	}
	if !u.IsActive {
		return apperr.Field(field, "inactive user")
	}
	return nil
}

// AddAttachment stores an uploaded file and records it against the order.
// The stored file is removed again when the database write fails.
func (w *OrderWorkflow) AddAttachment(ctx context.Context, actor model.Identity, cmd UploadAttachment) (model.OrderAttachment, error) {
	if _, err := w.loadReadable(ctx, actor, policy.OrderAttachments, cmd.OrderID); err != nil {
		return model.OrderAttachment{}, err
	}
	if cmd.Body == nil {
		return model.OrderAttachment{}, apperr.Validation("no file uploaded", map[string]string{"file": "required"})
	}
	if n := utf8.RuneCountInString(cmd.OriginalName); n == 0 || n > MaxAttachmentName {
		return model.OrderAttachment{}, apperr.Field("file", fmt.Sprintf("name must be 1-%d characters", MaxAttachmentName))
	}
	if limit := w.d.Config.Uploads.MaxBytes; limit > 0 && cmd.Size > limit {
		return model.OrderAttachment{}, apperr.Field("file", fmt.Sprintf("max %d bytes", limit))
	}

	br := bufio.NewReaderSize(cmd.Body, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return model.OrderAttachment{}, apperr.Internal("read upload", err)
	}
	if len(head) == 0 {
		return model.OrderAttachment{}, apperr.Field("file", "empty")
	}
	mime := sniffMime(head)
	if !slices.Contains(AttachmentMimeTypes, mime) {
		return model.OrderAttachment{}, apperr.Field("file", "unsupported type "+mime)
	}

	ref, err := w.d.Files.Save(br, cmd.OriginalName, "orders")
	if err != nil {
		return model.OrderAttachment{}, apperr.Internal("store attachment", err)
	}

	a := model.OrderAttachment{
		OrderID:      cmd.OrderID,
		UploaderID:   actor.ID,
		FileURL:      ref,
		OriginalName: cmd.OriginalName,
		MimeType:     mime,
		CreatedAt:    w.d.Clock.Now().UTC().Truncate(time.Second),
	}
	msg := "Uploaded " + cmd.OriginalName
	err = w.d.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		id, err := repos.Attachments.Create(ctx, &a)
		if err != nil {
			return err
		}
		a.ID = id
		_, err = repos.Events.AppendOrderEvent(ctx, &model.OrderEvent{
			OrderID:   cmd.OrderID,
			ActorID:   actor.ID,
			EventType: model.OrderEventAttachment,
			Message:   &msg,
			CreatedAt: a.CreatedAt,
		})
		return err
	})
	if err != nil {
		if derr := w.d.Files.Delete(ref); derr != nil {
			w.log.Warn("remove orphaned attachment", zap.String("ref", ref), zap.Error(derr))
		}
		return model.OrderAttachment{}, err
	}

	publish(ctx, w.d, queue.WorkflowEvent{
		Entity:     queue.EntityOrder,
		EntityID:   cmd.OrderID,
		OrderID:    cmd.OrderID,
		ActorID:    actor.ID,
		Type:       model.OrderEventAttachment,
		Message:    msg,
		OccurredAt: a.CreatedAt,
	})
	return a, nil
}

// sniffMime strips parameters from http.DetectContentType's answer.
func sniffMime(head []byte) string {
	ct := http.DetectContentType(head)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

func (w *OrderWorkflow) ListAttachments(ctx context.Context, actor model.Identity, orderID uint64) ([]model.OrderAttachment, error) {
	if _, err := w.loadReadable(ctx, actor, policy.OrderAttachments, orderID); err != nil {
		return nil, err
	}
	return w.d.Repos.Attachments.ListByOrder(ctx, orderID, ports.ListLimit)
}

// Events returns the order's audit trail, newest first.
func (w *OrderWorkflow) Events(ctx context.Context, actor model.Identity, orderID uint64) ([]model.OrderEvent, error) {
	if _, err := w.loadReadable(ctx, actor, policy.OrderEvents, orderID); err != nil {
		return nil, err
	}
	return w.d.Repos.Events.ListOrderEvents(ctx, orderID, ports.ListLimit)
}
