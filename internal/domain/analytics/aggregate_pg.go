package analytics

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type aggregatorPG struct{ pool *pgxpool.Pool }

func NewAggregatorPG(pool *pgxpool.Pool) Aggregator {
	return &aggregatorPG{pool: pool}
}

func (a *aggregatorPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return a.pool
}

// validFlows selects active flows with a real specialty name. Nodes are
// pre-aggregated per flow so flow averages are not weighted by node count.
// Flows without node rows count their legacy JSON nodes instead, matching
// what the flow repository decodes for them.
const validFlows = `
	WITH valid AS (
		SELECT f.id, COALESCE(NULLIF(f.specialty_id, ''), 'general') AS specialty_id,
		       f.specialty_name, f.average_duration, f.estimated_cost, f.legacy_nodes
		FROM flow f
		WHERE f.is_active
		  AND f.specialty_name IS NOT NULL
		  AND lower(btrim(f.specialty_name)) NOT IN ('', 'no specialty', 'sin especialidad')
	), steps AS (
		SELECT n.flow_id, COUNT(*)::bigint AS step_count, SUM(n.cost_avg)::float8 AS cost_sum
		FROM flow_node n JOIN valid v ON v.id = n.flow_id
		GROUP BY n.flow_id
		UNION ALL
		SELECT v.id, COUNT(*)::bigint,
		       SUM(CASE WHEN jsonb_typeof(ln->'cost') = 'number'
		                THEN (ln->>'cost')::float8 ELSE 0 END)::float8
		FROM valid v
		CROSS JOIN LATERAL jsonb_array_elements(
			CASE WHEN jsonb_typeof(v.legacy_nodes) = 'array' THEN v.legacy_nodes ELSE '[]'::jsonb END) ln
		WHERE NOT EXISTS (SELECT 1 FROM flow_node fn WHERE fn.flow_id = v.id)
		GROUP BY v.id
	)`

func (a *aggregatorPG) SpecialtyStats(ctx context.Context) ([]SpecialtyStats, error) {
	rows, err := a.conn(ctx).Query(ctx, validFlows+`
		SELECT v.specialty_id, v.specialty_name, COUNT(*),
		       COALESCE(SUM(s.step_count), 0)::bigint,
		       COALESCE(AVG(v.average_duration), 0)::float8,
		       COALESCE(AVG(v.estimated_cost), 0)::float8,
		       COALESCE(SUM(s.cost_sum) / NULLIF(SUM(s.step_count), 0), 0)::float8
		FROM valid v LEFT JOIN steps s ON s.flow_id = v.id
		GROUP BY v.specialty_id, v.specialty_name
		ORDER BY COUNT(*) DESC, v.specialty_name, v.specialty_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SpecialtyStats
	for rows.Next() {
		var s SpecialtyStats
		if err := rows.Scan(&s.SpecialtyID, &s.SpecialtyName, &s.FlowCount, &s.TotalSteps,
			&s.AvgDuration, &s.AvgCost, &s.AvgStepCost); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (a *aggregatorPG) Totals(ctx context.Context) (*Totals, error) {
	var t Totals
	err := a.conn(ctx).QueryRow(ctx, validFlows+`
		SELECT COUNT(DISTINCT v.specialty_name), COUNT(*),
		       COALESCE(SUM(s.step_count), 0)::bigint,
		       COALESCE(AVG(v.average_duration), 0)::float8,
		       COALESCE(AVG(v.estimated_cost), 0)::float8
		FROM valid v LEFT JOIN steps s ON s.flow_id = v.id`).
		Scan(&t.Specialties, &t.Flows, &t.Steps, &t.AvgDuration, &t.AvgCost)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
