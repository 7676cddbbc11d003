package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
)

var (
	admin    = Subject{ID: 1, Role: model.RoleAdmin}
	manager  = Subject{ID: 2, Role: model.RoleManager}
	staff    = Subject{ID: 3, Role: model.RoleStaff}
	courier  = Subject{ID: 4, Role: model.RoleDelivery}
	client   = Subject{ID: 5, Role: model.RoleClient}
	stranger = Subject{ID: 9, Role: model.RoleDelivery}
)

func TestAllowed(t *testing.T) {
	order := Resource{ClientID: 5, AssigneeID: 3, CourierIDs: []uint64{4}}
	withTarget := func(s model.OrderStatus) Resource {
		r := order
		r.TargetStatus = s
		return r
	}
	reassigning := func(s model.OrderStatus) Resource {
		r := withTarget(s)
		r.Reassign = true
		return r
	}

	tests := []struct {
		name   string
		sub    Subject
		action Action
		res    Resource
		want   bool
	}{
		{"client creates order", client, OrderCreate, Resource{}, true},
		{"manager creates order", manager, OrderCreate, Resource{}, true},
		{"staff cannot create order", staff, OrderCreate, Resource{}, false},
		{"courier cannot create order", courier, OrderCreate, Resource{}, false},

		{"client reads own order", client, OrderRead, order, true},
		{"client cannot read foreign order", Subject{ID: 6, Role: model.RoleClient}, OrderRead, order, false},
		{"staff reads assigned order", staff, OrderRead, order, true},
		{"other staff cannot read", Subject{ID: 8, Role: model.RoleStaff}, OrderRead, order, false},
		{"courier reads delivered order", courier, OrderRead, order, true},
		{"unrelated courier cannot read", stranger, OrderRead, order, false},
		{"admin reads anything", admin, OrderRead, Resource{}, true},

		{"client never changes status", client, OrderSetStatus, withTarget(model.OrderCompleted), false},
		{"staff assignee to in_progress", staff, OrderSetStatus, withTarget(model.OrderInProgress), true},
		{"staff assignee to completed", staff, OrderSetStatus, withTarget(model.OrderCompleted), true},
		{"staff assignee to archived", staff, OrderSetStatus, withTarget(model.OrderArchived), false},
		{"staff assignee to approved", staff, OrderSetStatus, withTarget(model.OrderApproved), false},
		{"staff not assignee", Subject{ID: 8, Role: model.RoleStaff}, OrderSetStatus, withTarget(model.OrderInProgress), false},
		{"manager any status", manager, OrderSetStatus, withTarget(model.OrderArchived), true},
		{"staff assignee cannot hand the order on", staff, OrderSetStatus, reassigning(model.OrderInProgress), false},
		{"manager reassigns", manager, OrderSetStatus, reassigning(model.OrderAssigned), true},
		{"courier never changes order status", courier, OrderSetStatus, withTarget(model.OrderCompleted), false},

		{"client uploads to own order", client, OrderAttachments, order, true},
		{"courier uploads to own delivery order", courier, OrderAttachments, order, true},
		{"stranger cannot upload", stranger, OrderAttachments, order, false},

		{"manager assigns courier", manager, DeliveryAssign, Resource{}, true},
		{"staff cannot assign courier", staff, DeliveryAssign, Resource{}, false},
		{"courier reports own location", courier, DeliveryReportLocation, Resource{CourierID: 4}, true},
		{"other courier forbidden", stranger, DeliveryReportLocation, Resource{CourierID: 4}, false},
		{"client cannot report location", client, DeliveryReportLocation, Resource{ClientID: 5, CourierID: 4}, false},
		{"courier cannot set destination", courier, DeliverySetDestination, Resource{CourierID: 4}, false},
		{"admin sets destination", admin, DeliverySetDestination, Resource{}, true},
		{"client reads own delivery", client, DeliveryRead, Resource{ClientID: 5, CourierID: 4}, true},
		{"courier sets own delivery status", courier, DeliverySetStatus, Resource{CourierID: 4}, true},

		{"everyone lists services", courier, ServiceList, Resource{}, true},
		{"client cannot write services", client, ServiceWrite, Resource{}, false},
		{"manager lists users", manager, UserList, Resource{}, true},
		{"manager cannot toggle users", manager, UserToggle, Resource{}, false},
		{"admin toggles users", admin, UserToggle, Resource{}, true},
		{"staff cannot read stats", staff, StatsRead, Resource{}, false},

		{"unknown role", Subject{ID: 1, Role: "owner"}, OrderRead, Resource{}, false},
		{"unknown action", admin, Action("order.delete"), Resource{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.sub, tt.action, tt.res))
		})
	}
}

func TestAuthorize_ReturnsForbidden(t *testing.T) {
	err := Authorize(client, OrderSetStatus, Resource{ClientID: 5, TargetStatus: model.OrderCompleted})

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.NoError(t, Authorize(admin, OrderSetStatus, Resource{}))
}

func TestZeroOwnershipNeverMatches(t *testing.T) {
	ghost := Subject{ID: 0, Role: model.RoleClient}

	assert.False(t, Allowed(ghost, OrderRead, Resource{}))
}

func TestScopes(t *testing.T) {
	assert.Equal(t, Scope{All: true}, OrderScope(admin))
	assert.Equal(t, Scope{All: true}, OrderScope(manager))
	assert.Equal(t, Scope{ClientID: 5}, OrderScope(client))
	assert.Equal(t, Scope{AssigneeID: 3}, OrderScope(staff))
	assert.Equal(t, Scope{CourierID: 4}, OrderScope(courier))
	assert.Equal(t, Scope{None: true}, OrderScope(Subject{ID: 1, Role: "owner"}))

	assert.Equal(t, Scope{CourierID: 4}, DeliveryScope(courier))
	assert.Equal(t, Scope{ClientID: 5}, DeliveryScope(client))
}

func TestRoleMayAttempt(t *testing.T) {
	assert.True(t, RoleMayAttempt(model.RoleStaff, OrderSetStatus))
	assert.False(t, RoleMayAttempt(model.RoleClient, OrderSetStatus))
	assert.False(t, RoleMayAttempt(model.RoleDelivery, DeliveryAssign))
}
