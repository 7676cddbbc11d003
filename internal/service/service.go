// Package service holds the workflow core: authentication, the order and
// delivery engines, and the back-office operations around them. Every
// operation takes an already authenticated model.Identity and a typed
// command; transport concerns stay in internal/handler.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/config"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/policy"
	"github.com/iliyamo/orderdesk/internal/ports"
	"github.com/iliyamo/orderdesk/internal/queue"
	"github.com/iliyamo/orderdesk/internal/utils"
)

// Deps are the collaborators shared by all services.
type Deps struct {
	Repos     ports.Repositories
	UoW       ports.UnitOfWork
	Files     ports.FileStore
	Publisher ports.EventPublisher
	Issuer    *utils.TokenIssuer
	Clock     utils.Clock
	Log       *zap.Logger
	Config    config.Config
}

// Services is the full set built from one Deps.
type Services struct {
	Auth       *AuthService
	Orders     *OrderWorkflow
	Deliveries *DeliveryWorkflow
	Users      *UserService
	Catalog    *CatalogService
	Stats      *StatsService
}

func New(d Deps) *Services {
	if d.Clock == nil {
		d.Clock = utils.SystemClock{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Publisher == nil {
		d.Publisher = queue.NopPublisher{}
	}
	return &Services{
		Auth:       NewAuthService(d),
		Orders:     NewOrderWorkflow(d),
		Deliveries: NewDeliveryWorkflow(d),
		Users:      NewUserService(d),
		Catalog:    NewCatalogService(d),
		Stats:      NewStatsService(d),
	}
}

// publish hands a committed event to the broker. Failures are logged and
// swallowed: the database row is the record of truth.
func publish(ctx context.Context, d Deps, ev queue.WorkflowEvent) {
	if d.Publisher == nil {
		return
	}
	if err := d.Publisher.Publish(ctx, ev); err != nil {
		d.Log.Warn("publish workflow event",
			zap.String("entity", ev.Entity), zap.Uint64("entity_id", ev.EntityID),
			zap.String("type", ev.Type), zap.Error(err))
	}
}

func authorize(actor model.Identity, action policy.Action, res policy.Resource) error {
	return policy.Authorize(policy.SubjectOf(actor), action, res)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
