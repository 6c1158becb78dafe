package clinical

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/apperr"
)

type lookupPG struct{ pool *pgxpool.Pool }

// NewLookupPG resolves names from the clinical catalog tables.
func NewLookupPG(pool *pgxpool.Pool) NameLookup {
	return &lookupPG{pool: pool}
}

var lookupQueries = map[Kind]string{
	KindDiagnosis: `SELECT COALESCE(code, ''), COALESCE(name, '') FROM diagnosis_catalog WHERE id::text = $1`,
	KindProcedure: `SELECT '', COALESCE(description, '') FROM procedure_catalog WHERE id::text = $1`,
	KindSpecialty: `SELECT '', COALESCE(name, '') FROM specialty_catalog WHERE id::text = $1`,
}

func (l *lookupPG) DisplayName(ctx context.Context, kind Kind, id string) (string, bool, error) {
	q, ok := lookupQueries[kind]
	if !ok {
		return "", false, apperr.Validation("unknown catalog kind %q", kind)
	}
	var code, name string
	err := l.pool.QueryRow(ctx, q, id).Scan(&code, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.ExternalLookup(err, "%s %s", kind, id)
	}
	return formatName(code, name), name != "" || code != "", nil
}

// formatName renders "code - name" when a code is present.
func formatName(code, name string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return name
	}
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s - %s", code, name)
}
