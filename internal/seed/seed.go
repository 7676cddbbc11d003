// Package seed fills an empty database with demo data: one user per role,
// two catalog services, two orders and one delivery.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/ports"
	"github.com/iliyamo/orderdesk/internal/utils"
)

// DemoUser is a seeded account and its plain-text password.
type DemoUser struct {
	Name     string
	Email    string
	Role     model.Role
	Password string
}

var DemoUsers = []DemoUser{
	{"Admin", "admin@demo.com", model.RoleAdmin, "Admin@123"},
	{"Manager", "manager@demo.com", model.RoleManager, "Manager@123"},
	{"Staff", "staff@demo.com", model.RoleStaff, "Staff@123"},
	{"Delivery", "delivery@demo.com", model.RoleDelivery, "Delivery@123"},
	{"Client", "client@demo.com", model.RoleClient, "Client@123"},
}

// Result holds the ids created by Run.
type Result struct {
	Users      map[model.Role]uint64
	Services   []uint64
	Orders     []uint64
	DeliveryID uint64
}

// wipeOrder lists tables children first so foreign keys never block.
var wipeOrder = []string{
	"delivery_events",
	"deliveries",
	"order_attachments",
	"order_events",
	"orders",
	"services",
	"refresh_tokens",
	"users",
}

// Wipe deletes every row of the application tables.
func Wipe(ctx context.Context, db *sql.DB) error {
	for _, table := range wipeOrder {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("wipe %s: %w", table, err)
		}
	}
	return nil
}

// Run inserts the demo data in one transaction.
func Run(ctx context.Context, uow ports.UnitOfWork, bcryptCost int, log *zap.Logger) (Result, error) {
	res := Result{Users: map[model.Role]uint64{}}
	err := uow.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		for _, du := range DemoUsers {
			hash, err := utils.HashPassword(du.Password, bcryptCost)
			if err != nil {
				return err
			}
			id, err := repos.Users.Create(ctx, &model.User{
				Name: du.Name, Email: du.Email, PasswordHash: hash, Role: du.Role, IsActive: true,
			})
			if err != nil {
				return fmt.Errorf("user %s: %w", du.Email, err)
			}
			res.Users[du.Role] = id
		}

		for _, s := range []model.Service{
			{Name: "Document Printing", Description: ptr("Order printing, binding, and delivery"), BasePrice: "49.00", IsActive: true},
			{Name: "IoT Device Installation", Description: ptr("On-site setup and diagnostics for IoT kits"), BasePrice: "299.00", IsActive: true},
		} {
			id, err := repos.Services.Create(ctx, &s)
			if err != nil {
				return fmt.Errorf("service %s: %w", s.Name, err)
			}
			res.Services = append(res.Services, id)
		}

		client := res.Users[model.RoleClient]
		due := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
		printing, err := repos.Orders.Create(ctx, &model.Order{
			ClientID:  client,
			ServiceID: res.Services[0],
			Title:     "Print 120 pages (A4, BW)",
			Details:   "Bind + deliver to hostel gate",
			Priority:  model.PriorityHigh,
			DueDate:   &due,
		})
		if err != nil {
			return err
		}
		staff := res.Users[model.RoleStaff]
		if err := repos.Orders.UpdateStatus(ctx, printing, model.OrderAssigned, &staff); err != nil {
			return err
		}
		msg := "Assigned to Staff for processing"
		if _, err := repos.Events.AppendOrderEvent(ctx, &model.OrderEvent{
			OrderID:   printing,
			ActorID:   res.Users[model.RoleManager],
			EventType: string(model.OrderAssigned),
			Message:   &msg,
		}); err != nil {
			return err
		}
		res.DeliveryID, err = repos.Deliveries.Upsert(ctx, printing, res.Users[model.RoleDelivery])
		if err != nil {
			return err
		}

		install, err := repos.Orders.Create(ctx, &model.Order{
			ClientID:  client,
			ServiceID: res.Services[1],
			Title:     "ESP32 sensor setup",
			Details:   "Install MQ-2 + DHT11 + dashboard integration",
			Priority:  model.PriorityMedium,
		})
		if err != nil {
			return err
		}
		res.Orders = []uint64{printing, install}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	log.Info("seed complete",
		zap.Int("users", len(res.Users)),
		zap.Int("services", len(res.Services)),
		zap.Int("orders", len(res.Orders)),
		zap.Uint64("delivery_id", res.DeliveryID))
	return res, nil
}

func ptr[T any](v T) *T { return &v }
