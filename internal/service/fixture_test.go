package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/orderdesk/internal/config"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/utils"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

const demoPassword = "secret123"

// Demo identities used across scenarios.
var (
	adminID   = model.Identity{ID: 1, Role: model.RoleAdmin, Email: "admin@demo.local", Name: "Admin"}
	managerID = model.Identity{ID: 2, Role: model.RoleManager, Email: "manager@demo.local", Name: "Manager"}
	staffID   = model.Identity{ID: 3, Role: model.RoleStaff, Email: "staff@demo.local", Name: "Staff"}
	courierID = model.Identity{ID: 4, Role: model.RoleDelivery, Email: "courier@demo.local", Name: "Courier"}
	clientID  = model.Identity{ID: 5, Role: model.RoleClient, Email: "client@demo.local", Name: "Client"}
	client6ID = model.Identity{ID: 6, Role: model.RoleClient, Email: "client6@demo.local", Name: "Other Client"}
	courier7  = model.Identity{ID: 7, Role: model.RoleDelivery, Email: "courier7@demo.local", Name: "Courier Seven"}
	staff8ID  = model.Identity{ID: 8, Role: model.RoleStaff, Email: "staff8@demo.local", Name: "Other Staff"}
	courier9  = model.Identity{ID: 9, Role: model.RoleDelivery, Email: "courier9@demo.local", Name: "Courier Nine"}
)

const (
	serviceID       = 1
	inactiveService = 2
)

type fixture struct {
	store *memStore
	files *memFiles
	pub   *recordingPublisher
	clock *utils.FixedClock
	svc   *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := utils.NewFixedClock(epoch)
	store := newMemStore(clock.Now)
	files := newMemFiles()
	pub := &recordingPublisher{}

	hash, err := utils.HashPassword(demoPassword, bcrypt.MinCost)
	require.NoError(t, err)
	for _, id := range []model.Identity{adminID, managerID, staffID, courierID, clientID, client6ID, courier7, staff8ID, courier9} {
		store.putUser(model.User{ID: id.ID, Name: id.Name, Email: id.Email, PasswordHash: hash, Role: id.Role, IsActive: true})
	}
	store.putService(model.Service{ID: serviceID, Name: "Document Processing", BasePrice: "49.00", IsActive: true})
	store.putService(model.Service{ID: inactiveService, Name: "Retired", BasePrice: "10.00", IsActive: false})

	cfg := config.Config{
		Auth: config.AuthConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			BcryptCost:    bcrypt.MinCost,
		},
		Uploads: config.UploadConfig{MaxBytes: 1 << 20},
	}
	svc := New(Deps{
		Repos:     store.Repos(),
		UoW:       store,
		Files:     files,
		Publisher: pub,
		Issuer: utils.NewTokenIssuer(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret,
			cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, clock),
		Clock:  clock,
		Config: cfg,
	})
	return &fixture{store: store, files: files, pub: pub, clock: clock, svc: svc}
}

func ptr[T any](v T) *T { return &v }
