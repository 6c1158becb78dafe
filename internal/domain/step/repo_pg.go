package step

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

type stepRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &stepRepoPG{pool: pool}
}

func (r *stepRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const stepCols = `id, name, step_type, description, base_cost, cost_unit, duration_minutes,
	icon, color, is_active, category, tags, created_at, updated_at`

func scanStep(row pgx.Row) (*Step, error) {
	var s Step
	var tags string
	err := row.Scan(&s.ID, &s.Name, &s.StepType, &s.Description, &s.BaseCost, &s.CostUnit,
		&s.DurationMinutes, &s.Icon, &s.Color, &s.IsActive, &s.Category, &tags,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Tags = SplitTags(tags)
	return &s, nil
}

// mapWriteErr turns the active-name unique index violation into a
// duplicate name error.
func mapWriteErr(err error, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.DuplicateName("step", name)
	}
	return err
}

func (r *stepRepoPG) Create(ctx context.Context, s *Step) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO step (id, name, step_type, description, base_cost, cost_unit,
			duration_minutes, icon, color, is_active, category, tags)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.StepType, s.Description, s.BaseCost, s.CostUnit,
		s.DurationMinutes, s.Icon, s.Color, s.IsActive, s.Category, JoinTags(s.Tags),
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return mapWriteErr(err, s.Name)
}

func (r *stepRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Step, error) {
	s, err := scanStep(r.conn(ctx).QueryRow(ctx, `SELECT `+stepCols+` FROM step WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("step", id)
	}
	return s, err
}

func (r *stepRepoPG) Update(ctx context.Context, s *Step) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE step SET name=$2, step_type=$3, description=$4, base_cost=$5, cost_unit=$6,
			duration_minutes=$7, icon=$8, color=$9, is_active=$10, category=$11, tags=$12,
			updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Name, s.StepType, s.Description, s.BaseCost, s.CostUnit,
		s.DurationMinutes, s.Icon, s.Color, s.IsActive, s.Category, JoinTags(s.Tags),
	).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("step", s.ID)
	}
	return mapWriteErr(err, s.Name)
}

func (r *stepRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM step WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("step", id)
	}
	return nil
}

func (r *stepRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Step, int, error) {
	var where []string
	var args []interface{}
	if f.StepType != "" {
		args = append(args, f.StepType)
		where = append(where, fmt.Sprintf("step_type = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM step`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM step%s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		stepCols, clause, len(args)-1, len(args))
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Step
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *stepRepoPG) FindByName(ctx context.Context, name string, activeOnly bool) (*Step, error) {
	query := `SELECT ` + stepCols + ` FROM step WHERE lower(name) = lower($1)`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY is_active DESC, created_at LIMIT 1`
	s, err := scanStep(r.conn(ctx).QueryRow(ctx, query, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *stepRepoPG) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT category FROM step
		WHERE is_active AND category <> ''
		ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
