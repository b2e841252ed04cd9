// Package audit exposes the audit trail for review.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerdesk/dealerdesk/internal/shared"
)

// Entry is one audit record as read back from storage.
type Entry struct {
	ID         int64          `json:"id"`
	ActorID    int64          `json:"actor_id"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id"`
	Meta       map[string]any `json:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Service reads the audit trail. Writes go through shared.AuditLogger.
type Service struct {
	pool *pgxpool.Pool
}

// NewService builds Service instance.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Filter narrows a trail listing.
type Filter struct {
	Entity  string
	ActorID int64
	Page    int
	PerPage int
}

// List returns a page of audit entries, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Entry, shared.Pagination, error) {
	if f.PerPage <= 0 {
		f.PerPage = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	conds := []string{}
	filterArgs := []any{}
	if f.Entity != "" {
		filterArgs = append(filterArgs, f.Entity)
		conds = append(conds, fmt.Sprintf("entity = $%d", len(filterArgs)))
	}
	if f.ActorID > 0 {
		filterArgs = append(filterArgs, f.ActorID)
		conds = append(conds, fmt.Sprintf("actor_id = $%d", len(filterArgs)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs `+where, filterArgs...).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}

	args := append(filterArgs, f.PerPage, (f.Page-1)*f.PerPage)
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, actor_id, action, entity, entity_id, meta, occurred_at
		FROM audit_logs %s
		ORDER BY occurred_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(filterArgs)+1, len(filterArgs)+2), args...)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &meta, &e.OccurredAt); err != nil {
			return nil, shared.Pagination{}, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Meta)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	return out, shared.NewPagination(f.Page, f.PerPage, total), nil
}
