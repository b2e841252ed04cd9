package invoicing

import (
	"context"
	"fmt"

	"github.com/dealerdesk/dealerdesk/internal/shared"
)

// Service provides business logic for invoicing.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of invoices, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string, page, perPage int) ([]Invoice, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, status, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range items {
		items[i].TotalDisplay = formatTotal(items[i].TotalCents, items[i].Currency)
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Get fetches an invoice with its line items.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.TotalDisplay = formatTotal(inv.TotalCents, inv.Currency)
	return inv, nil
}

// Create issues a draft invoice for a sold vehicle. Totals are computed here
// from the submitted line items, never trusted from the client.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest, createdBy int64) (Invoice, error) {
	items := make([]LineItem, len(req.Items))
	for i, in := range req.Items {
		items[i] = LineItem{
			Description:    in.Description,
			Quantity:       in.Quantity,
			UnitPriceCents: in.UnitPriceCents,
		}
	}
	subtotal, tax, total := computeTotals(items, req.TaxRateBps)

	inv, err := s.repo.Create(ctx, Invoice{
		VehicleID:     req.VehicleID,
		CustomerID:    req.CustomerID,
		Status:        StatusDraft,
		Currency:      req.Currency,
		TaxRateBps:    req.TaxRateBps,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    total,
		Items:         items,
		CreatedBy:     createdBy,
	})
	if err != nil {
		return Invoice{}, err
	}
	inv.TotalDisplay = formatTotal(inv.TotalCents, inv.Currency)
	return inv, nil
}

// Update replaces a draft invoice's line items and recomputes totals.
func (s *Service) Update(ctx context.Context, id int64, req UpdateInvoiceRequest) (Invoice, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if current.Status != StatusDraft {
		return Invoice{}, ErrNotEditable
	}

	taxRateBps := current.TaxRateBps
	if req.TaxRateBps != nil {
		taxRateBps = *req.TaxRateBps
	}
	items := current.Items
	if req.Items != nil {
		items = make([]LineItem, len(req.Items))
		for i, in := range req.Items {
			items[i] = LineItem{
				Description:    in.Description,
				Quantity:       in.Quantity,
				UnitPriceCents: in.UnitPriceCents,
			}
		}
	}
	subtotal, tax, total := computeTotals(items, taxRateBps)
	if err := s.repo.ReplaceItems(ctx, id, items, taxRateBps, subtotal, tax, total); err != nil {
		return Invoice{}, err
	}
	return s.Get(ctx, id)
}

// Issue finalizes a draft invoice.
func (s *Service) Issue(ctx context.Context, id int64) (Invoice, error) {
	return s.transition(ctx, id, StatusIssued)
}

// Pay marks an issued invoice as settled.
func (s *Service) Pay(ctx context.Context, id int64) (Invoice, error) {
	return s.transition(ctx, id, StatusPaid)
}

// Void cancels a draft or issued invoice.
func (s *Service) Void(ctx context.Context, id int64) (Invoice, error) {
	return s.transition(ctx, id, StatusVoid)
}

func (s *Service) transition(ctx context.Context, id int64, to string) (Invoice, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if !CanTransition(current.Status, to) {
		return Invoice{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, current.Status, to); err != nil {
		return Invoice{}, err
	}
	return s.Get(ctx, id)
}
