package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/policy"
	"github.com/iliyamo/orderdesk/internal/ports"
	"github.com/iliyamo/orderdesk/internal/utils"
)

// UserService is the back-office user administration.
type UserService struct {
	d   Deps
	log *zap.Logger
}

func NewUserService(d Deps) *UserService {
	return &UserService{d: d, log: d.Log.Named("users")}
}

func (s *UserService) List(ctx context.Context, actor model.Identity) ([]model.User, error) {
	if err := authorize(actor, policy.UserList, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.d.Repos.Users.List(ctx, ports.ListLimit)
}

// Create adds an active user. A duplicate email is a Conflict.
func (s *UserService) Create(ctx context.Context, actor model.Identity, cmd CreateUser) (model.User, error) {
	if err := authorize(actor, policy.UserCreate, policy.Resource{}); err != nil {
		return model.User{}, err
	}
	fields := map[string]string{}
	name := strings.TrimSpace(cmd.Name)
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if len(name) < 2 {
		fields["name"] = "min"
	}
	if !strings.Contains(email, "@") {
		fields["email"] = "email"
	}
	if len(cmd.Password) < 6 {
		fields["password"] = "min"
	}
	if !cmd.Role.Valid() {
		fields["role"] = "oneof"
	}
	if len(fields) > 0 {
		return model.User{}, apperr.Validation("validation failed", fields)
	}

	hash, err := utils.HashPassword(cmd.Password, s.d.Config.Auth.BcryptCost)
	if err != nil {
		return model.User{}, apperr.Internal("hash password", err)
	}
	u := model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         cmd.Role,
		IsActive:     true,
	}
	id, err := s.d.Repos.Users.Create(ctx, &u)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return model.User{}, apperr.Conflict("email already exists", err)
		}
		return model.User{}, err
	}
	u.ID = id
	s.log.Info("user created", zap.Uint64("user_id", id), zap.String("role", string(u.Role)),
		zap.Uint64("by", actor.ID))
	return u, nil
}

// Toggle flips the user's active flag and returns the new value. The flip
// and the read-back run in one transaction.
func (s *UserService) Toggle(ctx context.Context, actor model.Identity, id uint64) (bool, error) {
	if err := authorize(actor, policy.UserToggle, policy.Resource{}); err != nil {
		return false, err
	}
	var active bool
	err := s.d.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		v, err := repos.Users.Toggle(ctx, id)
		active = v
		return err
	})
	if err != nil {
		return false, err
	}
	s.log.Info("user toggled", zap.Uint64("user_id", id), zap.Bool("active", active))
	return active, nil
}
