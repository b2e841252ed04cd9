package invoicing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/dealerdesk/dealerdesk/testing"
)

type memRepo struct {
	invoices     map[int64]Invoice
	soldVehicles map[int64]bool
	nextID       int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		invoices:     map[int64]Invoice{},
		soldVehicles: map[int64]bool{5: true},
		nextID:       1,
	}
}

func (m *memRepo) List(ctx context.Context, status string, page, perPage int) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if status == "" || inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (m *memRepo) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	if !m.soldVehicles[inv.VehicleID] {
		return Invoice{}, ErrVehicleNotSold
	}
	inv.ID = m.nextID
	m.nextID++
	inv.Number = "INV-000001"
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memRepo) ReplaceItems(ctx context.Context, id int64, items []LineItem, taxRateBps int, subtotal, tax, total int64) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	if inv.Status != StatusDraft {
		return ErrNotEditable
	}
	inv.Items = items
	inv.TaxRateBps = taxRateBps
	inv.SubtotalCents, inv.TaxCents, inv.TotalCents = subtotal, tax, total
	m.invoices[id] = inv
	return nil
}

func (m *memRepo) UpdateStatus(ctx context.Context, id int64, from, to string) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	if inv.Status != from {
		return ErrInvalidTransition
	}
	inv.Status = to
	m.invoices[id] = inv
	return nil
}

func draftInvoice(t *testing.T, svc *Service) Invoice {
	t.Helper()
	inv, err := svc.Create(context.Background(), CreateInvoiceRequest{
		VehicleID:  5,
		CustomerID: 9,
		Currency:   "USD",
		TaxRateBps: 825,
		Items: []LineItemInput{
			{Description: "2021 Honda Civic", Quantity: 1, UnitPriceCents: 1_850_000},
			{Description: "Extended warranty", Quantity: 1, UnitPriceCents: 120_000},
		},
	}, 1)
	require.NoError(t, err)
	return inv
}

func TestTotalsComputedServerSide(t *testing.T) {
	svc := NewService(newMemRepo())
	inv := draftInvoice(t, svc)

	assert.Equal(t, int64(1_970_000), inv.SubtotalCents)
	// 8.25% of 1,970,000 truncated.
	assert.Equal(t, int64(162_525), inv.TaxCents)
	assert.Equal(t, int64(2_132_525), inv.TotalCents)
	assert.Equal(t, "USD 21,325.25", inv.TotalDisplay)
}

func TestCreateRequiresSoldVehicle(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Create(context.Background(), CreateInvoiceRequest{
		VehicleID:  6,
		CustomerID: 9,
		Currency:   "USD",
		Items:      []LineItemInput{{Description: "car", Quantity: 1, UnitPriceCents: 100}},
	}, 1)
	assert.ErrorIs(t, err, ErrVehicleNotSold)
}

func TestLifecycle(t *testing.T) {
	svc := NewService(newMemRepo())
	inv := draftInvoice(t, svc)

	issued, err := svc.Issue(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusIssued, issued.Status)

	paid, err := svc.Pay(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)

	_, err = svc.Void(context.Background(), inv.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPayRequiresIssued(t *testing.T) {
	svc := NewService(newMemRepo())
	inv := draftInvoice(t, svc)

	_, err := svc.Pay(context.Background(), inv.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateRecomputesTotals(t *testing.T) {
	svc := NewService(newMemRepo())
	inv := draftInvoice(t, svc)

	updated, err := svc.Update(context.Background(), inv.ID, UpdateInvoiceRequest{
		Items: []LineItemInput{{Description: "2021 Honda Civic", Quantity: 1, UnitPriceCents: 1_800_000}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1_800_000), updated.SubtotalCents)
	// Tax rate carries over from creation.
	assert.Equal(t, int64(148_500), updated.TaxCents)
}

func TestUpdateIssuedInvoiceRefused(t *testing.T) {
	svc := NewService(newMemRepo())
	inv := draftInvoice(t, svc)

	_, err := svc.Issue(context.Background(), inv.ID)
	require.NoError(t, err)

	rate := 0
	_, err = svc.Update(context.Background(), inv.ID, UpdateInvoiceRequest{TaxRateBps: &rate})
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestFormatTotalZeroDecimalCurrency(t *testing.T) {
	assert.Equal(t, "JPY 1,850,000", formatTotal(1_850_000, "JPY"))
	assert.Equal(t, "USD 0.05", formatTotal(5, "USD"))
}

func TestFormatTotalNegativeAmounts(t *testing.T) {
	// Credits below one unit must keep their sign even though the whole
	// part is zero.
	assert.Equal(t, "USD -0.50", formatTotal(-50, "USD"))
	assert.Equal(t, "USD -21,325.25", formatTotal(-2_132_525, "USD"))
	assert.Equal(t, "JPY -1,850,000", formatTotal(-1_850_000, "JPY"))
}
