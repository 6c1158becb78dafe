package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type criteriaRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &criteriaRepoPG{pool: pool}
}

func (r *criteriaRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const criteriaCols = `id, diagnosis, criterion, target_specialty_id, target_specialty_name,
	urgency_id, urgency_name, is_active, created_at, updated_at`

func scanCriteria(row pgx.Row) (*Criteria, error) {
	var c Criteria
	err := row.Scan(&c.ID, &c.Diagnosis, &c.Criterion, &c.TargetSpecialtyID, &c.TargetSpecialtyName,
		&c.UrgencyID, &c.UrgencyName, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *criteriaRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Criteria, error) {
	c, err := scanCriteria(r.conn(ctx).QueryRow(ctx, `SELECT `+criteriaCols+` FROM referral_criteria WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("referral criteria", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *criteriaRepoPG) List(ctx context.Context, f Filter) ([]*Criteria, error) {
	var where []string
	var args []interface{}
	if f.Diagnosis != "" {
		args = append(args, f.Diagnosis)
		where = append(where, fmt.Sprintf("lower(diagnosis) = lower($%d)", len(args)))
	}
	if f.ActiveOnly {
		where = append(where, "is_active")
	}
	q := `SELECT ` + criteriaCols + ` FROM referral_criteria`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY diagnosis, created_at, id"

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Criteria
	for rows.Next() {
		c, err := scanCriteria(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
