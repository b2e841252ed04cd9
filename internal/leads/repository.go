package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerdesk/dealerdesk/internal/platform/db"
)

const pgForeignKeyViolation = "23503"

// Repository defines persistence operations for leads.
type Repository interface {
	List(ctx context.Context, status string, assignedTo int64, page, perPage int) ([]Lead, int, error)
	Get(ctx context.Context, id int64) (Lead, error)
	Create(ctx context.Context, l Lead) (Lead, error)
	Update(ctx context.Context, id int64, updates map[string]any) (Lead, error)
	Assign(ctx context.Context, id, userID int64) error
	// Convert creates a customer from the lead and marks the lead converted
	// in one transaction. Returns the new customer's ID.
	Convert(ctx context.Context, id, actorID int64) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const leadColumns = `id, name, email, phone, source, vehicle_id, assigned_to, customer_id, status, notes, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Source, &l.VehicleID,
		&l.AssignedTo, &l.CustomerID, &l.Status, &l.Notes, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func (r *PGRepository) List(ctx context.Context, status string, assignedTo int64, page, perPage int) ([]Lead, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}

	conds := []string{}
	filterArgs := []any{}
	if status != "" {
		filterArgs = append(filterArgs, status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(filterArgs)))
	}
	if assignedTo > 0 {
		filterArgs = append(filterArgs, assignedTo)
		conds = append(conds, fmt.Sprintf("assigned_to = $%d", len(filterArgs)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads `+where, filterArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append(filterArgs, perPage, (page-1)*perPage)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM leads %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, leadColumns, where, len(filterArgs)+1, len(filterArgs)+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM leads WHERE id = $1`, leadColumns), id))
}

func (r *PGRepository) Create(ctx context.Context, l Lead) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO leads (name, email, phone, source, vehicle_id, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, leadColumns),
		l.Name, l.Email, l.Phone, l.Source, l.VehicleID, l.Status, l.Notes))
}

func (r *PGRepository) Update(ctx context.Context, id int64, updates map[string]any) (Lead, error) {
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

	return scanLead(r.pool.QueryRow(ctx, fmt.Sprintf(
		`UPDATE leads SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), leadColumns), args...))
}

func (r *PGRepository) Assign(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET assigned_to = $2, updated_at = NOW() WHERE id = $1`, id, userID)
	if isPGError(err, pgForeignKeyViolation) {
		return ErrUnknownAssignee
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Convert copies the lead's contact details into a new customer row and
// stamps the lead with the customer ID, all inside one transaction so a
// crash cannot leave a converted lead without its customer.
func (r *PGRepository) Convert(ctx context.Context, id, actorID int64) (int64, error) {
	var customerID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var status string
		var name, email, phone string
		err := tx.QueryRow(ctx, `
			SELECT status, name, email, phone FROM leads WHERE id = $1 FOR UPDATE`, id).
			Scan(&status, &name, &email, &phone)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		switch status {
		case StatusConverted:
			return ErrAlreadyConverted
		case StatusLost:
			return ErrLeadLost
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO customers (name, email, phone, created_by)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			name, email, phone, actorID).Scan(&customerID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE leads SET status = $2, customer_id = $3, updated_at = NOW()
			WHERE id = $1`, id, StatusConverted, customerID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return customerID, nil
}

func isPGError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

var _ Repository = (*PGRepository)(nil)
