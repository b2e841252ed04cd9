package customers

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

// Repository defines persistence operations for customer records.
type Repository interface {
	List(ctx context.Context, query string, page, perPage int) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, id int64, updates map[string]any) (Customer, error)
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

const customerColumns = `id, name, email, phone, notes, created_by, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *PGRepository) List(ctx context.Context, query string, page, perPage int) ([]Customer, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}

	where := ""
	args := []any{perPage, (page - 1) * perPage}
	countArgs := []any{}
	if query != "" {
		where = `WHERE name ILIKE '%' || $3 || '%' OR email ILIKE '%' || $3 || '%'`
		args = append(args, query)
		countArgs = append(countArgs, query)
	}

	countSQL := `SELECT COUNT(*) FROM customers`
	if query != "" {
		countSQL += ` WHERE name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'`
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM customers %s
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, customerColumns, where), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM customers WHERE id = $1`, customerColumns), id))
}

func (r *PGRepository) Create(ctx context.Context, c Customer) (Customer, error) {
	created, err := scanCustomer(r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO customers (name, email, phone, notes, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, customerColumns),
		c.Name, c.Email, c.Phone, c.Notes, c.CreatedBy))
	if isPGError(err, pgUniqueViolation) {
		return Customer{}, ErrDuplicateEmail
	}
	return created, err
}

func (r *PGRepository) Update(ctx context.Context, id int64, updates map[string]any) (Customer, error) {
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

	updated, err := scanCustomer(r.pool.QueryRow(ctx, fmt.Sprintf(
		`UPDATE customers SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), customerColumns), args...))
	if isPGError(err, pgUniqueViolation) {
		return Customer{}, ErrDuplicateEmail
	}
	return updated, err
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
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
