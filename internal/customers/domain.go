// Package customers manages the dealership's customer records.
package customers

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("customers: not found")
	ErrDuplicateEmail = errors.New("customers: email already registered")
)

// Customer is a buyer or prospect on file.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCustomerRequest carries fields accepted on creation.
type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=128"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
	Notes string `json:"notes" validate:"omitempty,max=1024"`
}

// UpdateCustomerRequest carries optional fields for partial update.
type UpdateCustomerRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=128"`
	Email *string `json:"email" validate:"omitempty,email"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
	Notes *string `json:"notes" validate:"omitempty,max=1024"`
}
