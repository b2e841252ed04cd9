package leads

import (
	"context"

	"github.com/dealerdesk/dealerdesk/internal/shared"
)

// Service provides business logic for lead tracking.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of leads filtered by status and assignee.
func (s *Service) List(ctx context.Context, status string, assignedTo int64, page, perPage int) ([]Lead, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, status, assignedTo, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Get fetches a lead by ID.
func (s *Service) Get(ctx context.Context, id int64) (Lead, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new lead in the "new" status.
func (s *Service) Create(ctx context.Context, req CreateLeadRequest) (Lead, error) {
	return s.repo.Create(ctx, Lead{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Source:    req.Source,
		VehicleID: req.VehicleID,
		Status:    StatusNew,
	})
}

// Update applies a partial update. Converted leads are immutable.
func (s *Service) Update(ctx context.Context, id int64, req UpdateLeadRequest) (Lead, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if current.Status == StatusConverted {
		return Lead{}, ErrAlreadyConverted
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	return s.repo.Update(ctx, id, updates)
}

// Assign hands the lead to a salesperson.
func (s *Service) Assign(ctx context.Context, id, userID int64) (Lead, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if current.Status == StatusConverted {
		return Lead{}, ErrAlreadyConverted
	}
	if err := s.repo.Assign(ctx, id, userID); err != nil {
		return Lead{}, err
	}
	return s.repo.Get(ctx, id)
}

// Convert turns the lead into a customer and returns the updated lead.
func (s *Service) Convert(ctx context.Context, id, actorID int64) (Lead, error) {
	if _, err := s.repo.Convert(ctx, id, actorID); err != nil {
		return Lead{}, err
	}
	return s.repo.Get(ctx, id)
}
