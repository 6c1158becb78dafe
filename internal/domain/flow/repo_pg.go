package flow

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
	"github.com/careflow/careflow/internal/platform/reference"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type flowRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &flowRepoPG{pool: pool}
}

func (r *flowRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const flowCols = `id, name, specialty_id, specialty_name, description, source_system, source_id,
	flow_type, is_template, code, complexity_level, average_duration, estimated_cost,
	cost_explicit, duration_explicit, is_active, is_public, version, created_by, metadata,
	legacy_nodes, legacy_edges, created_at, updated_at`

func scanFlow(row pgx.Row) (*Flow, error) {
	var f Flow
	var legacyNodes, legacyEdges []byte
	err := row.Scan(&f.ID, &f.Name, &f.SpecialtyID, &f.SpecialtyName, &f.Description,
		&f.SourceSystem, &f.SourceID, &f.FlowType, &f.IsTemplate, &f.Code, &f.ComplexityLevel,
		&f.AverageDuration, &f.EstimatedCost, &f.CostExplicit, &f.DurationExplicit,
		&f.IsActive, &f.IsPublic, &f.Version, &f.CreatedBy, &f.Metadata,
		&legacyNodes, &legacyEdges, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if f.Metadata == nil {
		f.Metadata = map[string]interface{}{}
	}
	g, err := DecodeLegacy(legacyNodes, legacyEdges)
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", f.ID, err)
	}
	f.Legacy = g
	return &f, nil
}

func mapWriteErr(err error, f *Flow) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && f.Code != nil {
		return apperr.DuplicateName("flow code", *f.Code)
	}
	return err
}

func (r *flowRepoPG) Create(ctx context.Context, f *Flow) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		legacyNodes, legacyEdges, err := EncodeLegacy(LegacyFromGraph(f.Nodes, f.Edges))
		if err != nil {
			return err
		}
		err = r.conn(ctx).QueryRow(ctx, `
			INSERT INTO flow (id, name, specialty_id, specialty_name, description, source_system,
				source_id, flow_type, is_template, code, complexity_level, average_duration,
				estimated_cost, cost_explicit, duration_explicit, is_active, is_public, version,
				created_by, metadata, legacy_nodes, legacy_edges)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
			RETURNING created_at, updated_at`,
			f.ID, f.Name, f.SpecialtyID, f.SpecialtyName, f.Description, f.SourceSystem,
			f.SourceID, f.FlowType, f.IsTemplate, f.Code, f.ComplexityLevel, f.AverageDuration,
			f.EstimatedCost, f.CostExplicit, f.DurationExplicit, f.IsActive, f.IsPublic, f.Version,
			f.CreatedBy, f.Metadata, legacyNodes, legacyEdges,
		).Scan(&f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return mapWriteErr(err, f)
		}
		return r.insertGraph(ctx, f)
	})
}

func (r *flowRepoPG) insertGraph(ctx context.Context, f *Flow) error {
	q := r.conn(ctx)
	for _, n := range f.Nodes {
		err := q.QueryRow(ctx, `
			INSERT INTO flow_node (id, flow_id, step_type, step_id, label, description, order_index,
				duration_minutes, cost_min, cost_max, cost_avg, position_x, position_y, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13, COALESCE($14, now()))
			RETURNING created_at`,
			n.ID, f.ID, n.StepType, n.StepID, n.Label, n.Description, n.OrderIndex,
			n.DurationMinutes, n.CostMin, n.CostMax, n.CostAvg, n.Position.X, n.Position.Y,
			nullTime(n),
		).Scan(&n.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}
	for _, e := range f.Edges {
		err := q.QueryRow(ctx, `
			INSERT INTO flow_edge (id, flow_id, source_node_id, target_node_id, edge_type, created_at)
			VALUES ($1,$2,$3,$4,$5, COALESCE($6, now()))
			RETURNING created_at`,
			e.ID, f.ID, e.SourceNodeID, e.TargetNodeID, e.EdgeType, nullEdgeTime(e),
		).Scan(&e.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.ConstraintName == "flow_edge_uq" {
				return apperr.Validation("%v: %s -> %s", ErrDuplicateEdge, e.SourceNodeID, e.TargetNodeID)
			}
			return fmt.Errorf("insert edge %s: %w", e.ID, err)
		}
	}
	return nil
}

func nullTime(n *Node) interface{} {
	if n.CreatedAt.IsZero() {
		return nil
	}
	return n.CreatedAt
}

func nullEdgeTime(e *Edge) interface{} {
	if e.CreatedAt.IsZero() {
		return nil
	}
	return e.CreatedAt
}

func (r *flowRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Flow, error) {
	f, err := scanFlow(r.conn(ctx).QueryRow(ctx, `SELECT `+flowCols+` FROM flow WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("flow", id)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadGraphs(ctx, []*Flow{f}); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *flowRepoPG) List(ctx context.Context, flt Filter, limit, offset int) ([]*Flow, int, error) {
	var where []string
	var args []interface{}
	idx := 1
	if flt.ActiveOnly {
		where = append(where, "is_active")
	}
	if flt.SpecialtyID != nil {
		where = append(where, fmt.Sprintf("specialty_id = $%d", idx))
		args = append(args, *flt.SpecialtyID)
		idx++
	}
	if flt.SourceSystem != "" {
		where = append(where, fmt.Sprintf("source_system = $%d", idx))
		args = append(args, flt.SourceSystem)
		idx++
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, "SELECT COUNT(*) FROM flow"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM flow%s ORDER BY created_at, id LIMIT $%d OFFSET $%d",
		flowCols, clause, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Flow
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadGraphs(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// loadGraphs attaches nodes and edges to flows. Flows without node rows
// fall back to their legacy embedded graph.
func (r *flowRepoPG) loadGraphs(ctx context.Context, flows []*Flow) error {
	if len(flows) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(flows))
	byID := make(map[uuid.UUID]*Flow, len(flows))
	for _, f := range flows {
		f.Nodes = []*Node{}
		f.Edges = []*Edge{}
		ids = append(ids, f.ID)
		byID[f.ID] = f
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, flow_id, step_type, step_id, label, description, order_index, duration_minutes,
			cost_min, cost_max, cost_avg, position_x, position_y, created_at
		FROM flow_node WHERE flow_id = ANY($1) ORDER BY flow_id, order_index`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.FlowID, &n.StepType, &n.StepID, &n.Label, &n.Description,
			&n.OrderIndex, &n.DurationMinutes, &n.CostMin, &n.CostMax, &n.CostAvg,
			&n.Position.X, &n.Position.Y, &n.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		byID[n.FlowID].Nodes = append(byID[n.FlowID].Nodes, &n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.conn(ctx).Query(ctx, `
		SELECT id, flow_id, source_node_id, target_node_id, edge_type, created_at
		FROM flow_edge WHERE flow_id = ANY($1) ORDER BY created_at, id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.FlowID, &e.SourceNodeID, &e.TargetNodeID, &e.EdgeType, &e.CreatedAt); err != nil {
			return err
		}
		byID[e.FlowID].Edges = append(byID[e.FlowID].Edges, &e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, f := range flows {
		if len(f.Nodes) == 0 && f.Legacy != nil && len(f.Legacy.Nodes) > 0 {
			f.Nodes, f.Edges = f.Legacy.ToGraph(f.ID)
			f.LegacyOnly = true
		}
	}
	return nil
}

func (r *flowRepoPG) Update(ctx context.Context, f *Flow) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		legacyNodes, legacyEdges, err := EncodeLegacy(LegacyFromGraph(f.Nodes, f.Edges))
		if err != nil {
			return err
		}
		err = r.conn(ctx).QueryRow(ctx, `
			UPDATE flow SET name=$2, specialty_id=$3, specialty_name=$4, description=$5,
				source_system=$6, source_id=$7, flow_type=$8, is_template=$9, code=$10,
				complexity_level=$11, average_duration=$12, estimated_cost=$13, cost_explicit=$14,
				duration_explicit=$15, is_active=$16, is_public=$17, version=$18, metadata=$19,
				legacy_nodes=$20, legacy_edges=$21, updated_at=now()
			WHERE id = $1
			RETURNING updated_at`,
			f.ID, f.Name, f.SpecialtyID, f.SpecialtyName, f.Description, f.SourceSystem,
			f.SourceID, f.FlowType, f.IsTemplate, f.Code, f.ComplexityLevel, f.AverageDuration,
			f.EstimatedCost, f.CostExplicit, f.DurationExplicit, f.IsActive, f.IsPublic,
			f.Version, f.Metadata, legacyNodes, legacyEdges,
		).Scan(&f.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("flow", f.ID)
		}
		if err != nil {
			return mapWriteErr(err, f)
		}
		if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM flow_edge WHERE flow_id = $1`, f.ID); err != nil {
			return err
		}
		if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM flow_node WHERE flow_id = $1`, f.ID); err != nil {
			return err
		}
		f.LegacyOnly = false
		return r.insertGraph(ctx, f)
	})
}

func (r *flowRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE flow SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("flow", id)
	}
	return nil
}

// Delete removes the flow; node and edge rows go with it via ON DELETE CASCADE.
func (r *flowRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM flow WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("flow", id)
	}
	return nil
}

// CountStepReferences counts normalized nodes referencing the step plus
// legacy nodes of flows that have no normalized rows.
func (r *flowRepoPG) CountStepReferences(ctx context.Context, stepID uuid.UUID, stepType, category string) (int, error) {
	byType := reference.CategoryFor(stepType) == category
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM flow_node
				WHERE step_id = $1 OR ($3 AND step_id IS NULL AND step_type = $2))
			+
			(SELECT COUNT(*) FROM flow f, jsonb_array_elements(f.legacy_nodes) ln
				WHERE NOT EXISTS (SELECT 1 FROM flow_node fn WHERE fn.flow_id = f.id)
				AND (ln->'data'->>'step_id' = $4
					OR ($3 AND ln->'data'->>'step_id' IS NULL AND ln->>'type' = $2)))`,
		stepID, stepType, byType, stepID.String(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count step references: %w", err)
	}
	return n, nil
}
