// Package vehicles manages the dealership's inventory.
package vehicles

import (
	"errors"
	"time"
)

// Vehicle statuses. Transitions only move forward except reserved, which may
// fall back to available when a deal collapses.
const (
	StatusDraft     = "draft"
	StatusAvailable = "available"
	StatusReserved  = "reserved"
	StatusSold      = "sold"
)

var (
	ErrNotFound          = errors.New("vehicles: not found")
	ErrDuplicateVIN      = errors.New("vehicles: vin already registered")
	ErrInvalidTransition = errors.New("vehicles: invalid status transition")
)

// Vehicle is one unit of inventory. Price is stored in cents.
type Vehicle struct {
	ID         int64     `json:"id"`
	VIN        string    `json:"vin"`
	Make       string    `json:"make"`
	Model      string    `json:"model"`
	Year       int       `json:"year"`
	Mileage    int       `json:"mileage"`
	PriceCents int64     `json:"price_cents"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateVehicleRequest carries fields accepted on creation.
type CreateVehicleRequest struct {
	VIN        string `json:"vin" validate:"required,len=17,alphanum"`
	Make       string `json:"make" validate:"required,max=64"`
	Model      string `json:"model" validate:"required,max=64"`
	Year       int    `json:"year" validate:"required,gte=1950,lte=2100"`
	Mileage    int    `json:"mileage" validate:"gte=0"`
	PriceCents int64  `json:"price_cents" validate:"required,gt=0"`
	Currency   string `json:"currency" validate:"required,len=3,uppercase"`
}

// UpdateVehicleRequest carries optional fields for partial update.
type UpdateVehicleRequest struct {
	Make       *string `json:"make" validate:"omitempty,max=64"`
	Model      *string `json:"model" validate:"omitempty,max=64"`
	Year       *int    `json:"year" validate:"omitempty,gte=1950,lte=2100"`
	Mileage    *int    `json:"mileage" validate:"omitempty,gte=0"`
	PriceCents *int64  `json:"price_cents" validate:"omitempty,gt=0"`
}

// allowedTransitions maps a status to the set it may move to.
var allowedTransitions = map[string][]string{
	StatusDraft:     {StatusAvailable},
	StatusAvailable: {StatusReserved, StatusSold},
	StatusReserved:  {StatusAvailable, StatusSold},
	StatusSold:      {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
