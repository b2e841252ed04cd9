// Package invoicing issues invoices for sold vehicles.
package invoicing

import (
	"errors"
	"time"
)

// Invoice statuses. Draft invoices may be edited; issued invoices may be paid
// or voided; paid and void are terminal.
const (
	StatusDraft  = "draft"
	StatusIssued = "issued"
	StatusPaid   = "paid"
	StatusVoid   = "void"
)

var (
	ErrNotFound          = errors.New("invoicing: not found")
	ErrVehicleNotSold    = errors.New("invoicing: vehicle is not sold")
	ErrInvalidTransition = errors.New("invoicing: invalid status transition")
	ErrNotEditable       = errors.New("invoicing: only draft invoices can be edited")
)

// LineItem is one line on an invoice. Amounts are in cents.
type LineItem struct {
	ID             int64  `json:"id"`
	InvoiceID      int64  `json:"invoice_id"`
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

// Invoice bills a customer for a vehicle sale. Monetary totals are computed
// server-side from the line items; client-submitted totals are ignored.
type Invoice struct {
	ID            int64      `json:"id"`
	Number        string     `json:"number"`
	VehicleID     int64      `json:"vehicle_id"`
	CustomerID    int64      `json:"customer_id"`
	Status        string     `json:"status"`
	Currency      string     `json:"currency"`
	TaxRateBps    int        `json:"tax_rate_bps"`
	SubtotalCents int64      `json:"subtotal_cents"`
	TaxCents      int64      `json:"tax_cents"`
	TotalCents    int64      `json:"total_cents"`
	TotalDisplay  string     `json:"total_display"`
	Items         []LineItem `json:"items,omitempty"`
	CreatedBy     int64      `json:"created_by"`
	IssuedAt      *time.Time `json:"issued_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LineItemInput is one line as submitted by the client.
type LineItemInput struct {
	Description    string `json:"description" validate:"required,max=255"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"required,gt=0"`
}

// CreateInvoiceRequest carries fields accepted on creation.
type CreateInvoiceRequest struct {
	VehicleID   int64           `json:"vehicle_id" validate:"required,gt=0"`
	CustomerID  int64           `json:"customer_id" validate:"required,gt=0"`
	Currency    string          `json:"currency" validate:"required,len=3,uppercase"`
	TaxRateBps  int             `json:"tax_rate_bps" validate:"gte=0,lte=10000"`
	Items       []LineItemInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateInvoiceRequest replaces the line items of a draft invoice.
type UpdateInvoiceRequest struct {
	TaxRateBps *int            `json:"tax_rate_bps" validate:"omitempty,gte=0,lte=10000"`
	Items      []LineItemInput `json:"items" validate:"omitempty,min=1,dive"`
}

var allowedTransitions = map[string][]string{
	StatusDraft:  {StatusIssued, StatusVoid},
	StatusIssued: {StatusPaid, StatusVoid},
	StatusPaid:   {},
	StatusVoid:   {},
}

// CanTransition reports whether an invoice may move between statuses.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
