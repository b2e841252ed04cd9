package customers

import (
	"context"

	"github.com/dealerdesk/dealerdesk/internal/shared"
)

// Service provides business logic for customer records.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of customers, optionally filtered by a name or email
// search query.
func (s *Service) List(ctx context.Context, query string, page, perPage int) ([]Customer, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, query, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Get fetches a customer by ID.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new customer.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest, createdBy int64) (Customer, error) {
	return s.repo.Create(ctx, Customer{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Notes:     req.Notes,
		CreatedBy: createdBy,
	})
}

// Update applies a partial update to the customer.
func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (Customer, error) {
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
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	return s.repo.Update(ctx, id, updates)
}

// Delete removes a customer record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
