// Package policy decides whether a subject may perform an action on a
// resource. It is a pure function of its inputs: callers load the ownership
// facts (client, assignee, courier) from storage and pass them in.
package policy

import (
	"slices"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
)

type Action string

const (
	OrderCreate      Action = "order.create"
	OrderRead        Action = "order.read"
	OrderSetStatus   Action = "order.set_status"
	OrderAttachments Action = "order.attachments"
	OrderEvents      Action = "order.events"

	DeliveryAssign         Action = "delivery.assign"
	DeliveryRead           Action = "delivery.read"
	DeliverySetStatus      Action = "delivery.set_status"
	DeliveryReportLocation Action = "delivery.report_location"
	DeliverySetDestination Action = "delivery.set_destination"

	ServiceList  Action = "service.list"
	ServiceWrite Action = "service.write"

	UserList   Action = "user.list"
	UserCreate Action = "user.create"
	UserToggle Action = "user.toggle"

	StatsRead Action = "stats.read"
)

// Subject is the authenticated caller.
type Subject struct {
	ID   uint64
	Role model.Role
}

func SubjectOf(id model.Identity) Subject { return Subject{ID: id.ID, Role: id.Role} }

// Resource carries the ownership facts of the target. Zero values mean
// "not applicable" or "unset". CourierIDs lists the couriers of deliveries
// attached to an order; CourierID is the courier of the delivery itself.
type Resource struct {
	ClientID     uint64
	AssigneeID   uint64
	CourierID    uint64
	CourierIDs   []uint64
	TargetStatus model.OrderStatus
	// Reassign is set when a status change also names a different assignee.
	Reassign bool
}

type rule func(Subject, Resource) bool

func allow(Subject, Resource) bool { return true }

func isClient(s Subject, r Resource) bool { return r.ClientID != 0 && r.ClientID == s.ID }

func isAssignee(s Subject, r Resource) bool { return r.AssigneeID != 0 && r.AssigneeID == s.ID }

func isCourier(s Subject, r Resource) bool {
	return (r.CourierID != 0 && r.CourierID == s.ID) || slices.Contains(r.CourierIDs, s.ID)
}

// staffTargets are the only statuses staff may move their own orders to.
var staffTargets = []model.OrderStatus{model.OrderInProgress, model.OrderCompleted}

func staffStatusChange(s Subject, r Resource) bool {
	return isAssignee(s, r) && !r.Reassign && slices.Contains(staffTargets, r.TargetStatus)
}

// orderParticipant is the read rule shared by order detail, attachments
// and events.
var orderParticipant = map[model.Role]rule{
	model.RoleAdmin:    allow,
	model.RoleManager:  allow,
	model.RoleStaff:    isAssignee,
	model.RoleDelivery: isCourier,
	model.RoleClient:   isClient,
}

var backOffice = map[model.Role]rule{
	model.RoleAdmin:   allow,
	model.RoleManager: allow,
}

var adminOnly = map[model.Role]rule{
	model.RoleAdmin: allow,
}

var table = map[Action]map[model.Role]rule{
	OrderCreate: {
		model.RoleAdmin:   allow,
		model.RoleManager: allow,
		model.RoleClient:  allow,
	},
	OrderRead:        orderParticipant,
	OrderAttachments: orderParticipant,
	OrderEvents:      orderParticipant,
	OrderSetStatus: {
		model.RoleAdmin:   allow,
		model.RoleManager: allow,
		model.RoleStaff:   staffStatusChange,
	},

	DeliveryAssign: backOffice,
	DeliveryRead: {
		model.RoleAdmin:    allow,
		model.RoleManager:  allow,
		model.RoleStaff:    isAssignee,
		model.RoleDelivery: isCourier,
		model.RoleClient:   isClient,
	},
	DeliverySetStatus: {
		model.RoleAdmin:    allow,
		model.RoleManager:  allow,
		model.RoleDelivery: isCourier,
	},
	DeliveryReportLocation: {
		model.RoleAdmin:    allow,
		model.RoleManager:  allow,
		model.RoleDelivery: isCourier,
	},
	DeliverySetDestination: backOffice,

	ServiceList: {
		model.RoleAdmin:    allow,
		model.RoleManager:  allow,
		model.RoleStaff:    allow,
		model.RoleDelivery: allow,
		model.RoleClient:   allow,
	},
	ServiceWrite: backOffice,

	UserList:   backOffice,
	UserCreate: adminOnly,
	UserToggle: adminOnly,

	StatsRead: backOffice,
}

// Allowed reports whether sub may perform action on res. Unknown actions
// and roles are denied.
func Allowed(sub Subject, action Action, res Resource) bool {
	byRole, ok := table[action]
	if !ok {
		return false
	}
	r, ok := byRole[sub.Role]
	if !ok {
		return false
	}
	return r(sub, res)
}

// Authorize is Allowed expressed as an error.
func Authorize(sub Subject, action Action, res Resource) error {
	if Allowed(sub, action, res) {
		return nil
	}
	return apperr.Forbidden("forbidden")
}

// RoleMayAttempt reports whether some resource exists for which the role is
// allowed the action. It backs coarse route gating before any row is loaded.
func RoleMayAttempt(role model.Role, action Action) bool {
	_, ok := table[action][role]
	return ok
}

// Scope restricts a listing to the rows a subject may see. All is true for
// roles that see everything; otherwise exactly one of the id fields is set.
type Scope struct {
	All        bool
	ClientID   uint64
	AssigneeID uint64
	CourierID  uint64
	None       bool
}

// OrderScope derives the order list filter from the OrderRead rules.
func OrderScope(sub Subject) Scope { return scopeFor(sub, OrderRead) }

// DeliveryScope derives the delivery list filter from the DeliveryRead rules.
func DeliveryScope(sub Subject) Scope { return scopeFor(sub, DeliveryRead) }

func scopeFor(sub Subject, action Action) Scope {
	if !RoleMayAttempt(sub.Role, action) {
		return Scope{None: true}
	}
	switch sub.Role {
	case model.RoleAdmin, model.RoleManager:
		return Scope{All: true}
	case model.RoleClient:
		return Scope{ClientID: sub.ID}
	case model.RoleStaff:
		return Scope{AssigneeID: sub.ID}
	case model.RoleDelivery:
		return Scope{CourierID: sub.ID}
	}
	return Scope{None: true}
}
