package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerdesk/dealerdesk/internal/platform/db"
)

// Repository defines persistence operations for invoices.
type Repository interface {
	List(ctx context.Context, status string, page, perPage int) ([]Invoice, int, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	// Create inserts the invoice and its line items in one transaction and
	// verifies the vehicle is sold while holding its row lock.
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	// ReplaceItems swaps a draft invoice's line items and updates the rate
	// and totals.
	ReplaceItems(ctx context.Context, id int64, items []LineItem, taxRateBps int, subtotal, tax, total int64) error
	UpdateStatus(ctx context.Context, id int64, from, to string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const invoiceColumns = `id, number, vehicle_id, customer_id, status, currency, tax_rate_bps, subtotal_cents, tax_cents, total_cents, created_by, issued_at, paid_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.VehicleID, &inv.CustomerID, &inv.Status,
		&inv.Currency, &inv.TaxRateBps, &inv.SubtotalCents, &inv.TaxCents, &inv.TotalCents,
		&inv.CreatedBy, &inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return inv, err
}

func (r *PGRepository) List(ctx context.Context, status string, page, perPage int) ([]Invoice, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}

	where := ""
	args := []any{perPage, (page - 1) * perPage}
	countArgs := []any{}
	if status != "" {
		where = "WHERE status = $3"
		args = append(args, status)
		countArgs = append(countArgs, status)
	}

	countSQL := `SELECT COUNT(*) FROM invoices`
	if status != "" {
		countSQL += ` WHERE status = $1`
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM invoices %s
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, invoiceColumns, where), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM invoices WHERE id = $1`, invoiceColumns), id))
	if err != nil {
		return Invoice{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price_cents, total_cents
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description,
			&item.Quantity, &item.UnitPriceCents, &item.TotalCents); err != nil {
			return Invoice{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

func (r *PGRepository) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var vehicleStatus string
		err := tx.QueryRow(ctx,
			`SELECT status FROM vehicles WHERE id = $1 FOR SHARE`, inv.VehicleID).
			Scan(&vehicleStatus)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: vehicle %d", ErrNotFound, inv.VehicleID)
		}
		if err != nil {
			return err
		}
		if vehicleStatus != "sold" {
			return ErrVehicleNotSold
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO invoices (number, vehicle_id, customer_id, status, currency,
				subtotal_cents, tax_cents, total_cents, tax_rate_bps, created_by)
			VALUES ('', $1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at`,
			inv.VehicleID, inv.CustomerID, inv.Status, inv.Currency,
			inv.SubtotalCents, inv.TaxCents, inv.TotalCents, inv.TaxRateBps, inv.CreatedBy).
			Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return err
		}

		inv.Number = fmt.Sprintf("INV-%06d", inv.ID)
		if _, err := tx.Exec(ctx,
			`UPDATE invoices SET number = $2 WHERE id = $1`, inv.ID, inv.Number); err != nil {
			return err
		}

		for i := range inv.Items {
			item := &inv.Items[i]
			item.InvoiceID = inv.ID
			if err := tx.QueryRow(ctx, `
				INSERT INTO invoice_items (invoice_id, description, quantity, unit_price_cents, total_cents)
				VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				item.InvoiceID, item.Description, item.Quantity,
				item.UnitPriceCents, item.TotalCents).Scan(&item.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (r *PGRepository) ReplaceItems(ctx context.Context, id int64, items []LineItem, taxRateBps int, subtotal, tax, total int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx,
			`SELECT status FROM invoices WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if status != StatusDraft {
			return ErrNotEditable
		}

		if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, id); err != nil {
			return err
		}
		for _, item := range items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO invoice_items (invoice_id, description, quantity, unit_price_cents, total_cents)
				VALUES ($1, $2, $3, $4, $5)`,
				id, item.Description, item.Quantity, item.UnitPriceCents, item.TotalCents); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `
			UPDATE invoices SET tax_rate_bps = $2, subtotal_cents = $3, tax_cents = $4, total_cents = $5, updated_at = NOW()
			WHERE id = $1`, id, taxRateBps, subtotal, tax, total)
		return err
	})
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, from, to string) error {
	timestamps := ""
	switch to {
	case StatusIssued:
		timestamps = ", issued_at = NOW()"
	case StatusPaid:
		timestamps = ", paid_at = NOW()"
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE invoices SET status = $3, updated_at = NOW()%s
		WHERE id = $1 AND status = $2`, timestamps), id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := scanInvoice(r.pool.QueryRow(ctx, fmt.Sprintf(
			`SELECT %s FROM invoices WHERE id = $1`, invoiceColumns), id)); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
