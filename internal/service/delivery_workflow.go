package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/policy"
	"github.com/iliyamo/orderdesk/internal/ports"
	"github.com/iliyamo/orderdesk/internal/queue"
)

// deliveryRank orders the forward path. Cancelled sits outside it.
var deliveryRank = map[model.DeliveryStatus]int{
	model.DeliveryAssigned:       0,
	model.DeliveryPickedUp:       1,
	model.DeliveryOutForDelivery: 2,
	model.DeliveryDelivered:      3,
}

// CanTransition reports whether a delivery may move from one status to
// another through SetStatus. Moves go forward only, steps may be skipped,
// and cancel is possible until the delivery is terminal. Returning to
// assigned only happens through a new courier assignment.
func CanTransition(from, to model.DeliveryStatus) bool {
	if from.Terminal() || from == to {
		return false
	}
	if to == model.DeliveryCancelled {
		return true
	}
	fr, ok := deliveryRank[from]
	if !ok {
		return false
	}
	tr, ok := deliveryRank[to]
	if !ok {
		return false
	}
	return tr > fr
}

// DeliveryWorkflow owns courier assignment, delivery status and tracking.
type DeliveryWorkflow struct {
	d   Deps
	log *zap.Logger
}

func NewDeliveryWorkflow(d Deps) *DeliveryWorkflow {
	return &DeliveryWorkflow{d: d, log: d.Log.Named("deliveries")}
}

// AssignCourier creates the order's delivery or re-points it at another
// courier. An order never has more than one delivery row; every call
// appends one "assigned" event.
func (w *DeliveryWorkflow) AssignCourier(ctx context.Context, actor model.Identity, cmd AssignCourier) (uint64, error) {
	if err := authorize(actor, policy.DeliveryAssign, policy.Resource{}); err != nil {
		return 0, err
	}

	var deliveryID uint64
	err := w.d.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := repos.Orders.GetByID(ctx, cmd.OrderID); err != nil {
			return err
		}
		if err := requireActiveRole(ctx, repos.Users, cmd.CourierID, model.RoleDelivery, "delivery_user_id"); err != nil {
			return err
		}
		id, err := repos.Deliveries.Upsert(ctx, cmd.OrderID, cmd.CourierID)
		if err != nil {
			return err
		}
		deliveryID = id
		_, err = repos.Events.AppendDeliveryEvent(ctx, &model.DeliveryEvent{
			DeliveryID: id,
			ActorID:    actor.ID,
			CreatedAt:  w.d.Clock.Now(),
			EventType:  model.DeliveryEventAssigned,
			Message:    strPtr("Delivery assigned"),
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	w.log.Info("courier assigned",
		zap.Uint64("delivery_id", deliveryID), zap.Uint64("order_id", cmd.OrderID),
		zap.Uint64("courier_id", cmd.CourierID))
	publish(ctx, w.d, queue.WorkflowEvent{
		Entity:     queue.EntityDelivery,
		EntityID:   deliveryID,
		OrderID:    cmd.OrderID,
		ActorID:    actor.ID,
		Type:       model.DeliveryEventAssigned,
		Message:    "Delivery assigned",
		OccurredAt: w.d.Clock.Now(),
	})
	return deliveryID, nil
}

// SetStatus advances a delivery along the transition table.
func (w *DeliveryWorkflow) SetStatus(ctx context.Context, actor model.Identity, cmd SetDeliveryStatus) error {
	if !cmd.Status.Valid() {
		return apperr.Field("status", "oneof")
	}
	if err := checkMessage(cmd.Message); err != nil {
		return err
	}

	var orderID uint64
	err := w.d.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		d, err := repos.Deliveries.GetForUpdate(ctx, cmd.DeliveryID)
		if err != nil {
			return err
		}
		orderID = d.OrderID
		if err := authorize(actor, policy.DeliverySetStatus, policy.Resource{CourierID: d.DeliveryUserID}); err != nil {
			return err
		}
		if !CanTransition(d.Status, cmd.Status) {
			return apperr.Validation("cannot move delivery from "+string(d.Status)+" to "+string(cmd.Status),
				map[string]string{"status": "transition"})
		}
		if err := repos.Deliveries.UpdateStatus(ctx, d.ID, cmd.Status); err != nil {
			return err
		}
		_, err = repos.Events.AppendDeliveryEvent(ctx, &model.DeliveryEvent{
			DeliveryID: d.ID,
			ActorID:    actor.ID,
			CreatedAt:  w.d.Clock.Now(),
			EventType:  string(cmd.Status),
			Message:    strPtr(cmd.Message),
		})
		return err
	})
	if err != nil {
		return err
	}

	publish(ctx, w.d, queue.WorkflowEvent{
		Entity:     queue.EntityDelivery,
		EntityID:   cmd.DeliveryID,
		OrderID:    orderID,
		ActorID:    actor.ID,
		Type:       string(cmd.Status),
		Message:    cmd.Message,
		OccurredAt: w.d.Clock.Now(),
	})
	return nil
}

func validCoordinates(lat, lng float64) error {
	fields := map[string]string{}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		fields["lat"] = "range"
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		fields["lng"] = "range"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid coordinates", fields)
	}
	return nil
}

// ReportLocation overwrites the courier's last known position and appends
// a "location" event carrying the coordinates.
func (w *DeliveryWorkflow) ReportLocation(ctx context.Context, actor model.Identity, cmd ReportLocation) error {
	if err := validCoordinates(cmd.Lat, cmd.Lng); err != nil {
		return err
	}

	lat, lng := cmd.Lat, cmd.Lng
	var orderID uint64
	err := w.d.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		d, err := repos.Deliveries.GetForUpdate(ctx, cmd.DeliveryID)
		if err != nil {
			return err
		}
		orderID = d.OrderID
		if err := authorize(actor, policy.DeliveryReportLocation, policy.Resource{CourierID: d.DeliveryUserID}); err != nil {
			return err
		}
		if err := repos.Deliveries.UpdateLocation(ctx, d.ID, lat, lng); err != nil {
			return err
		}
		_, err = repos.Events.AppendDeliveryEvent(ctx, &model.DeliveryEvent{
			DeliveryID: d.ID,
			ActorID:    actor.ID,
			CreatedAt:  w.d.Clock.Now(),
			EventType:  model.DeliveryEventLocation,
			Message:    strPtr("Location update"),
			Lat:        &lat,
			Lng:        &lng,
		})
		return err
	})
	if err != nil {
		return err
	}

	publish(ctx, w.d, queue.WorkflowEvent{
		Entity:     queue.EntityDelivery,
		EntityID:   cmd.DeliveryID,
		OrderID:    orderID,
		ActorID:    actor.ID,
		Type:       model.DeliveryEventLocation,
		Message:    "Location update",
		Lat:        &lat,
		Lng:        &lng,
		OccurredAt: w.d.Clock.Now(),
	})
	return nil
}

// SetDestination stores the drop-off point. It records no event.
func (w *DeliveryWorkflow) SetDestination(ctx context.Context, actor model.Identity, cmd SetDestination) error {
	if err := authorize(actor, policy.DeliverySetDestination, policy.Resource{}); err != nil {
		return err
	}
	if err := validCoordinates(cmd.Lat, cmd.Lng); err != nil {
		return err
	}
	if _, err := w.d.Repos.Deliveries.GetByID(ctx, cmd.DeliveryID); err != nil {
		return err
	}
	return w.d.Repos.Deliveries.UpdateDestination(ctx, cmd.DeliveryID, cmd.Lat, cmd.Lng)
}

// List returns the deliveries the caller may see.
func (w *DeliveryWorkflow) List(ctx context.Context, actor model.Identity) ([]model.DeliveryView, error) {
	return w.d.Repos.Deliveries.List(ctx, policy.DeliveryScope(policy.SubjectOf(actor)), ports.ListLimit)
}

// Get loads one delivery after checking read access against the delivery's
// courier and its order's client and assignee.
func (w *DeliveryWorkflow) Get(ctx context.Context, actor model.Identity, id uint64) (model.Delivery, error) {
	d, err := w.d.Repos.Deliveries.GetByID(ctx, id)
	if err != nil {
		return model.Delivery{}, err
	}
	res := policy.Resource{CourierID: d.DeliveryUserID}
	if actor.Role == model.RoleClient || actor.Role == model.RoleStaff {
		o, err := w.d.Repos.Orders.GetByID(ctx, d.OrderID)
		if err != nil {
			return model.Delivery{}, err
		}
		res.ClientID = o.ClientID
		res.AssigneeID = o.AssigneeID()
	}
	if err := authorize(actor, policy.DeliveryRead, res); err != nil {
		return model.Delivery{}, err
	}
	return d, nil
}

// Events returns the delivery's audit trail, newest first.
func (w *DeliveryWorkflow) Events(ctx context.Context, actor model.Identity, id uint64) ([]model.DeliveryEvent, error) {
	if _, err := w.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return w.d.Repos.Events.ListDeliveryEvents(ctx, id, ports.ListLimit)
}
