package service

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/policy"
)

// CatalogService manages the orderable services.
type CatalogService struct {
	d Deps
}

func NewCatalogService(d Deps) *CatalogService { return &CatalogService{d: d} }

// List returns the active catalog. Every role may read it.
func (s *CatalogService) List(ctx context.Context, actor model.Identity) ([]model.Service, error) {
	if err := authorize(actor, policy.ServiceList, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.d.Repos.Services.ListActive(ctx)
}

func (s *CatalogService) Create(ctx context.Context, actor model.Identity, cmd CreateService) (model.Service, error) {
	if err := authorize(actor, policy.ServiceWrite, policy.Resource{}); err != nil {
		return model.Service{}, err
	}
	name := strings.TrimSpace(cmd.Name)
	fields := map[string]string{}
	if len(name) < 2 {
		fields["name"] = "min"
	}
	if math.IsNaN(cmd.BasePrice) || cmd.BasePrice < 0 || cmd.BasePrice >= 1e8 {
		fields["base_price"] = "range"
	}
	if len(fields) > 0 {
		return model.Service{}, apperr.Validation("validation failed", fields)
	}

	svc := model.Service{
		Name:        name,
		Description: strPtr(strings.TrimSpace(cmd.Description)),
		BasePrice:   strconv.FormatFloat(cmd.BasePrice, 'f', 2, 64),
		IsActive:    true,
	}
	id, err := s.d.Repos.Services.Create(ctx, &svc)
	if err != nil {
		return model.Service{}, err
	}
	svc.ID = id
	return svc, nil
}

// SetActive shows or hides a service in the catalog. Existing orders keep
// their reference.
func (s *CatalogService) SetActive(ctx context.Context, actor model.Identity, id uint64, active bool) error {
	if err := authorize(actor, policy.ServiceWrite, policy.Resource{}); err != nil {
		return err
	}
	return s.d.Repos.Services.SetActive(ctx, id, active)
}
