package clinical

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/apperr"
)

// summaryWindow bounds how many recent records feed each ranking.
const summaryWindow = 100

type summaryPG struct {
	pool *pgxpool.Pool
	top  int
}

// NewSummaryPG ranks recent clinical activity, keeping the top entries of
// each category.
func NewSummaryPG(pool *pgxpool.Pool, top int) SummaryProvider {
	return &summaryPG{pool: pool, top: top}
}

func (s *summaryPG) Summary(ctx context.Context) (*Summary, error) {
	var (
		out Summary
		err error
	)
	if out.Diagnoses, err = s.rank(ctx, "diagnosis_record", "diagnosis_id"); err != nil {
		return nil, err
	}
	if out.Procedures, err = s.rank(ctx, "procedure_record", "procedure_id"); err != nil {
		return nil, err
	}
	if out.Referrals, err = s.rank(ctx, "referral", "specialty_id"); err != nil {
		return nil, err
	}
	if out.LabOrders, err = s.count(ctx, "laboratory_order"); err != nil {
		return nil, err
	}
	if out.ImagingOrders, err = s.count(ctx, "imaging_order"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *summaryPG) rank(ctx context.Context, table, column string) ([]Frequency, error) {
	q := fmt.Sprintf(`
		SELECT %[2]s::text, COUNT(*) FROM (
			SELECT %[2]s FROM %[1]s WHERE %[2]s IS NOT NULL ORDER BY id DESC LIMIT %[3]d
		) recent
		GROUP BY %[2]s
		ORDER BY COUNT(*) DESC, %[2]s::text
		LIMIT $1`, table, column, summaryWindow)
	rows, err := s.pool.Query(ctx, q, s.top)
	if err != nil {
		return nil, apperr.ExternalLookup(err, "rank %s", table)
	}
	defer rows.Close()
	var out []Frequency
	for rows.Next() {
		var f Frequency
		if err := rows.Scan(&f.ID, &f.Count); err != nil {
			return nil, apperr.ExternalLookup(err, "rank %s", table)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.ExternalLookup(err, "rank %s", table)
	}
	return out, nil
}

func (s *summaryPG) count(ctx context.Context, table string) (int, error) {
	var n int
	q := fmt.Sprintf(`SELECT COUNT(*) FROM (SELECT 1 FROM %s ORDER BY id DESC LIMIT %d) recent`, table, summaryWindow)
	if err := s.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, apperr.ExternalLookup(err, "count %s", table)
	}
	return n, nil
}
