package model

import "time"

// Role is the coarse permission class of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleStaff    Role = "staff"
	RoleDelivery Role = "delivery"
	RoleClient   Role = "client"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleManager, RoleStaff, RoleDelivery, RoleClient}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff, RoleDelivery, RoleClient:
		return true
	}
	return false
}

// User mirrors the `users` table. PasswordHash never leaves the service
// layer; json encoding skips it.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the authenticated caller as carried by an access token.
type Identity struct {
	ID    uint64 `json:"id"`
	Role  Role   `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role, Email: u.Email, Name: u.Name}
}

// RefreshToken models a row in `refresh_tokens`. Only the SHA-256 hex digest
// of the raw token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
