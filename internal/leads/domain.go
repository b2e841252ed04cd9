// Package leads tracks sales prospects from first contact to conversion.
package leads

import (
	"errors"
	"time"
)

// Lead statuses.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQualified = "qualified"
	StatusConverted = "converted"
	StatusLost      = "lost"
)

var (
	ErrNotFound         = errors.New("leads: not found")
	ErrAlreadyConverted = errors.New("leads: already converted")
	ErrLeadLost         = errors.New("leads: lead marked lost")
	ErrUnknownAssignee  = errors.New("leads: assignee does not exist")
)

// Lead is a prospect, optionally tied to a vehicle of interest and assigned
// to a salesperson.
type Lead struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Source     string    `json:"source,omitempty"`
	VehicleID  *int64    `json:"vehicle_id,omitempty"`
	AssignedTo *int64    `json:"assigned_to,omitempty"`
	CustomerID *int64    `json:"customer_id,omitempty"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateLeadRequest carries fields accepted on creation.
type CreateLeadRequest struct {
	Name      string `json:"name" validate:"required,max=128"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Source    string `json:"source" validate:"omitempty,max=64"`
	VehicleID *int64 `json:"vehicle_id" validate:"omitempty,gt=0"`
	Notes     string `json:"notes" validate:"omitempty,max=1024"`
}

// UpdateLeadRequest carries optional fields for partial update.
type UpdateLeadRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=128"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Phone  *string `json:"phone" validate:"omitempty,max=32"`
	Status *string `json:"status" validate:"omitempty,oneof=new contacted qualified lost"`
	Notes  *string `json:"notes" validate:"omitempty,max=1024"`
}
