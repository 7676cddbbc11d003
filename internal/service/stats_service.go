package service

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/policy"
	"github.com/iliyamo/orderdesk/internal/ports"
)

// StatsService serves the dashboard numbers and the order export.
type StatsService struct {
	d Deps
}

func NewStatsService(d Deps) *StatsService { return &StatsService{d: d} }

func (s *StatsService) Overview(ctx context.Context, actor model.Identity) (model.Overview, error) {
	if err := authorize(actor, policy.StatsRead, policy.Resource{}); err != nil {
		return model.Overview{}, err
	}
	var (
		ov  model.Overview
		err error
	)
	repos := s.d.Repos
	if ov.Users, err = repos.Users.Count(ctx); err != nil {
		return model.Overview{}, err
	}
	if ov.Orders, err = repos.Orders.Count(ctx); err != nil {
		return model.Overview{}, err
	}
	if ov.Open, err = repos.Orders.Count(ctx, model.OpenOrderStatuses...); err != nil {
		return model.Overview{}, err
	}
	if ov.Completed, err = repos.Orders.Count(ctx, model.OrderCompleted); err != nil {
		return model.Overview{}, err
	}
	if ov.ByStatus, err = repos.Orders.CountByStatus(ctx); err != nil {
		return model.Overview{}, err
	}
	return ov, nil
}

const exportSheet = "Orders"

var exportHeaders = []any{
	"ID", "Title", "Service", "Client", "Status", "Priority", "Assignee",
	"Due date", "Delivery status", "Courier", "Created at", "Updated at",
}

// ExportOrders writes the caller's order list as an xlsx workbook to w.
func (s *StatsService) ExportOrders(ctx context.Context, actor model.Identity, w io.Writer) error {
	if err := authorize(actor, policy.StatsRead, policy.Resource{}); err != nil {
		return err
	}
	orders, err := s.d.Repos.Orders.List(ctx, policy.OrderScope(policy.SubjectOf(actor)), ports.ListLimit)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return apperr.Internal("build workbook", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return apperr.Internal("build workbook", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(exportSheet, "A1", "L1", style)
	}
	for i, o := range orders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperr.Internal("build workbook", err)
		}
		row := exportRow(o)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return apperr.Internal("build workbook", err)
		}
	}
	_ = f.SetColWidth(exportSheet, "B", "D", 28)
	_ = f.SetColWidth(exportSheet, "G", "L", 20)

	if err := f.Write(w); err != nil {
		return apperr.Internal("write workbook", err)
	}
	return nil
}

func exportRow(o model.OrderView) []any {
	const layout = "2006-01-02 15:04"
	due, delivery := "", ""
	if o.DueDate != nil {
		due = o.DueDate.Format("2006-01-02")
	}
	if o.DeliveryStatus != nil {
		delivery = string(*o.DeliveryStatus)
	}
	return []any{
		o.ID, o.Title, o.ServiceName, o.ClientName,
		string(o.Status), string(o.Priority), deref(o.AssigneeName),
		due, delivery, deref(o.DeliveryName),
		o.CreatedAt.Format(layout), o.UpdatedAt.Format(layout),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
