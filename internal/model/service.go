package model

import "time"

// Service is an entry of the orderable catalog. BasePrice is kept in the
// DECIMAL(10,2) text form MySQL returns so no float rounding creeps in.
type Service struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	BasePrice   string    `json:"base_price"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
