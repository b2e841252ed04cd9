package vehicles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// Repository defines persistence operations for vehicle inventory.
type Repository interface {
	List(ctx context.Context, status string, page, perPage int) ([]Vehicle, int, error)
	Get(ctx context.Context, id int64) (Vehicle, error)
	Create(ctx context.Context, v Vehicle) (Vehicle, error)
	Update(ctx context.Context, id int64, updates map[string]any) (Vehicle, error)
	UpdateStatus(ctx context.Context, id int64, from, to string) error
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const vehicleColumns = `id, vin, make, model, year, mileage, price_cents, currency, status, created_by, created_at, updated_at`

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.VIN, &v.Make, &v.Model, &v.Year, &v.Mileage,
		&v.PriceCents, &v.Currency, &v.Status, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vehicle{}, ErrNotFound
	}
	return v, err
}

func (r *PGRepository) List(ctx context.Context, status string, page, perPage int) ([]Vehicle, int, error) {
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

	countSQL := `SELECT COUNT(*) FROM vehicles`
	if status != "" {
		countSQL += ` WHERE status = $1`
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM vehicles %s
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, vehicleColumns, where), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Vehicle, error) {
	return scanVehicle(r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM vehicles WHERE id = $1`, vehicleColumns), id))
}

func (r *PGRepository) Create(ctx context.Context, v Vehicle) (Vehicle, error) {
	created, err := scanVehicle(r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO vehicles (vin, make, model, year, mileage, price_cents, currency, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s`, vehicleColumns),
		v.VIN, v.Make, v.Model, v.Year, v.Mileage, v.PriceCents, v.Currency, v.Status, v.CreatedBy))
	if isPGError(err, pgUniqueViolation) {
		return Vehicle{}, ErrDuplicateVIN
	}
	return created, err
}

func (r *PGRepository) Update(ctx context.Context, id int64, updates map[string]any) (Vehicle, error) {
	if len(updates) == 0 {
		return r.Get(ctx, id)
	}
	sets := make([]string, 0, len(updates)+1)
	args := []any{id}
	i := 2
	for col, val := range updates {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}
	sets = append(sets, "updated_at = NOW()")

	return scanVehicle(r.pool.QueryRow(ctx, fmt.Sprintf(
		`UPDATE vehicles SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), vehicleColumns), args...))
}

// UpdateStatus moves the vehicle between statuses with the expected current
// status as a guard, so two concurrent transitions cannot both win.
func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, from, to string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE vehicles SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or someone transitioned first.
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
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
