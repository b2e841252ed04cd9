// Package marketplace pushes vehicle listings to external sales channels.
package marketplace

import (
	"errors"
	"time"
)

// Listing statuses.
const (
	StatusPending  = "pending"
	StatusListed   = "listed"
	StatusDelisted = "delisted"
	StatusFailed   = "failed"
)

var (
	ErrNotFound         = errors.New("marketplace: not found")
	ErrUnknownChannel   = errors.New("marketplace: unknown channel")
	ErrVehicleNotListed = errors.New("marketplace: vehicle not available for listing")
	ErrDuplicateListing = errors.New("marketplace: vehicle already listed on channel")
)

// Listing tracks one vehicle on one external channel. ExternalRef is the
// channel-side identifier, assigned on first successful sync.
type Listing struct {
	ID           int64      `json:"id"`
	VehicleID    int64      `json:"vehicle_id"`
	Channel      string     `json:"channel"`
	ExternalRef  string     `json:"external_ref,omitempty"`
	Status       string     `json:"status"`
	LastError    string     `json:"last_error,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PublishRequest creates a listing for a vehicle on a channel.
type PublishRequest struct {
	VehicleID int64  `json:"vehicle_id" validate:"required,gt=0"`
	Channel   string `json:"channel" validate:"required,max=64"`
}

// SyncReport summarizes one sync pass.
type SyncReport struct {
	Channel string `json:"channel,omitempty"`
	Synced  int    `json:"synced"`
	Failed  int    `json:"failed"`
}
