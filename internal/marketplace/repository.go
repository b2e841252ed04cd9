package marketplace

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// Repository defines persistence operations for listings.
type Repository interface {
	List(ctx context.Context, channel string) ([]Listing, error)
	Get(ctx context.Context, id int64) (Listing, error)
	// Create inserts a pending listing after verifying the vehicle is
	// available.
	Create(ctx context.Context, vehicleID int64, channel string) (Listing, error)
	PendingByChannel(ctx context.Context, channel string) ([]Listing, error)
	MarkListed(ctx context.Context, id int64, externalRef string, at time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	MarkDelisted(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const listingColumns = `id, vehicle_id, channel, external_ref, status, last_error, last_synced_at, created_at, updated_at`

func scanListing(row pgx.Row) (Listing, error) {
	var l Listing
	err := row.Scan(&l.ID, &l.VehicleID, &l.Channel, &l.ExternalRef, &l.Status,
		&l.LastError, &l.LastSyncedAt, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Listing{}, ErrNotFound
	}
	return l, err
}

func (r *PGRepository) List(ctx context.Context, channel string) ([]Listing, error) {
	sql := `SELECT ` + listingColumns + ` FROM marketplace_listings`
	args := []any{}
	if channel != "" {
		sql += ` WHERE channel = $1`
		args = append(args, channel)
	}
	sql += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Listing, error) {
	return scanListing(r.pool.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM marketplace_listings WHERE id = $1`, id))
}

func (r *PGRepository) Create(ctx context.Context, vehicleID int64, channel string) (Listing, error) {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM vehicles WHERE id = $1`, vehicleID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Listing{}, ErrNotFound
	}
	if err != nil {
		return Listing{}, err
	}
	if status != "available" {
		return Listing{}, ErrVehicleNotListed
	}

	l, err := scanListing(r.pool.QueryRow(ctx, `
		INSERT INTO marketplace_listings (vehicle_id, channel, status)
		VALUES ($1, $2, $3)
		RETURNING `+listingColumns, vehicleID, channel, StatusPending))
	if isPGError(err, pgUniqueViolation) {
		return Listing{}, ErrDuplicateListing
	}
	return l, err
}

func (r *PGRepository) PendingByChannel(ctx context.Context, channel string) ([]Listing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+listingColumns+` FROM marketplace_listings
		WHERE channel = $1 AND status IN ($2, $3)
		ORDER BY id`, channel, StatusPending, StatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGRepository) MarkListed(ctx context.Context, id int64, externalRef string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE marketplace_listings
		SET status = $2, external_ref = $3, last_error = '', last_synced_at = $4, updated_at = NOW()
		WHERE id = $1`, id, StatusListed, externalRef, at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE marketplace_listings
		SET status = $2, last_error = $3, updated_at = NOW()
		WHERE id = $1`, id, StatusFailed, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) MarkDelisted(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE marketplace_listings
		SET status = $2, updated_at = NOW()
		WHERE id = $1`, id, StatusDelisted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isPGError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

var _ Repository = (*PGRepository)(nil)
