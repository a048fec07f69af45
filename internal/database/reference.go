package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"catastro/internal/types"
)

// Reference answers "which identifiers were touched in this period" from an
// administrative database. The query must select a single text column and
// take the period start and end as its two bind parameters.
type Reference struct {
	db     *Database
	name   string
	query  string
	lookup string
	// dateLayout, when set, binds the period bounds as formatted text.
	dateLayout string
}

// ReferenceQuery configures a Reference.
type ReferenceQuery struct {
	Name string
	// SQL selects the identifiers changed between two dates.
	SQL string
	// LookupSQL selects which of a list of identifiers exist. On postgres it
	// takes one array parameter, elsewhere a single identifier per call.
	LookupSQL  string
	DateLayout string
}

// Reference returns a reference source bound to this connection.
func (d *Database) Reference(q ReferenceQuery) *Reference {
	layout := q.DateLayout
	if layout == "" && d.config.DriverName() == DriverSQLite {
		layout = "2006-01-02"
	}
	return &Reference{
		db:         d,
		name:       q.Name,
		query:      q.SQL,
		lookup:     q.LookupSQL,
		dateLayout: layout,
	}
}

func (r *Reference) Name() string { return r.name }

func (r *Reference) bound(t time.Time) any {
	if r.dateLayout != "" {
		return t.Format(r.dateLayout)
	}
	return t
}

// ChangedIdentifiers runs the configured query for [from, to].
func (r *Reference) ChangedIdentifiers(ctx context.Context, from, to time.Time) (types.IDSet, error) {
	start := time.Now()
	rows, err := r.db.db.QueryContext(ctx, r.query, r.bound(from), r.bound(to))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.name, err)
	}
	defer rows.Close()

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", r.name, err)
	}

	r.db.logger.Debug("reference loaded",
		zap.String("reference", r.name),
		zap.Int("identifiers", ids.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return ids, nil
}

// Lookup returns the subset of ids known to the reference database.
func (r *Reference) Lookup(ctx context.Context, ids []string) (types.IDSet, error) {
	if r.lookup == "" {
		return nil, fmt.Errorf("reference %s has no lookup query", r.name)
	}
	found := types.NewIDSet()
	if len(ids) == 0 {
		return found, nil
	}

	if r.db.config.DriverName() == DriverPostgres {
		rows, err := r.db.db.QueryContext(ctx, r.lookup, pq.Array(ids))
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", r.name, err)
		}
		defer rows.Close()
		return scanIDs(rows)
	}

	stmt, err := r.db.db.PrepareContext(ctx, r.lookup)
	if err != nil {
		return nil, fmt.Errorf("prepare lookup %s: %w", r.name, err)
	}
	defer stmt.Close()

	for _, id := range ids {
		var got sql.NullString
		err := stmt.QueryRowContext(ctx, id).Scan(&got)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup %s %s: %w", r.name, id, err)
		}
		found.Add(strings.TrimSpace(got.String))
	}
	return found, nil
}

func scanIDs(rows *sql.Rows) (types.IDSet, error) {
	ids := types.NewIDSet()
	for rows.Next() {
		var id sql.NullString
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if id.Valid {
			ids.Add(strings.TrimSpace(id.String))
		}
	}
	return ids, rows.Err()
}
