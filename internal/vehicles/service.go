package vehicles

import (
	"context"
	"fmt"

	"github.com/dealerdesk/dealerdesk/internal/shared"
)

// Service provides business logic for vehicle inventory.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of vehicles, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string, page, perPage int) ([]Vehicle, shared.Pagination, error) {
	if status != "" && !validStatus(status) {
		return nil, shared.Pagination{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	items, total, err := s.repo.List(ctx, status, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Get fetches a vehicle by ID.
func (s *Service) Get(ctx context.Context, id int64) (Vehicle, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new vehicle as draft inventory.
func (s *Service) Create(ctx context.Context, req CreateVehicleRequest, createdBy int64) (Vehicle, error) {
	return s.repo.Create(ctx, Vehicle{
		VIN:        req.VIN,
		Make:       req.Make,
		Model:      req.Model,
		Year:       req.Year,
		Mileage:    req.Mileage,
		PriceCents: req.PriceCents,
		Currency:   req.Currency,
		Status:     StatusDraft,
		CreatedBy:  createdBy,
	})
}

// Update applies a partial update to the vehicle's descriptive fields.
func (s *Service) Update(ctx context.Context, id int64, req UpdateVehicleRequest) (Vehicle, error) {
	updates := map[string]any{}
	if req.Make != nil {
		updates["make"] = *req.Make
	}
	if req.Model != nil {
		updates["model"] = *req.Model
	}
	if req.Year != nil {
		updates["year"] = *req.Year
	}
	if req.Mileage != nil {
		updates["mileage"] = *req.Mileage
	}
	if req.PriceCents != nil {
		updates["price_cents"] = *req.PriceCents
	}
	return s.repo.Update(ctx, id, updates)
}

// Transition moves the vehicle to the requested status, validating the edge
// against the status graph before touching storage.
func (s *Service) Transition(ctx context.Context, id int64, to string) (Vehicle, error) {
	if !validStatus(to) {
		return Vehicle{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Vehicle{}, err
	}
	if !CanTransition(current.Status, to) {
		return Vehicle{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, current.Status, to); err != nil {
		return Vehicle{}, err
	}
	return s.repo.Get(ctx, id)
}

// Publish makes a draft vehicle available for sale and listing.
func (s *Service) Publish(ctx context.Context, id int64) (Vehicle, error) {
	return s.Transition(ctx, id, StatusAvailable)
}

// Delete removes a vehicle. Sold vehicles are kept for invoicing history.
func (s *Service) Delete(ctx context.Context, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == StatusSold {
		return fmt.Errorf("%w: sold vehicles cannot be deleted", ErrInvalidTransition)
	}
	return s.repo.Delete(ctx, id)
}

func validStatus(s string) bool {
	switch s {
	case StatusDraft, StatusAvailable, StatusReserved, StatusSold:
		return true
	}
	return false
}
