// postgres.go — Postgres audit sink for deployments that already run the
// registry on Postgres. One INSERT per entry; the table carries no UPDATE or
// DELETE path.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Schema for reference (applied by migrations, not by this package):
//
//	CREATE TABLE audit_log (
//	    id         UUID PRIMARY KEY,
//	    admin_name TEXT NOT NULL,
//	    action     TEXT NOT NULL,
//	    details    JSONB NOT NULL DEFAULT '{}',
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);

// PostgresLog implements Log on a database/sql Postgres pool.
type PostgresLog struct {
	db *sql.DB
}

var _ Log = (*PostgresLog)(nil)

// NewPostgresLog wraps an open connection pool.
func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

// Append inserts one row.
func (l *PostgresLog) Append(ctx context.Context, admin, action string, details map[string]any) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, admin_name, action, details)
		VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), admin, action, string(detailsJSON))
	if err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}

// Entries returns rows in write order. A positive limit selects the newest
// window (same contract as FileLog): fetch DESC with the limit, then reverse
// back into write order.
func (l *PostgresLog) Entries(ctx context.Context, limit int) ([]Entry, error) {
	q := `
		SELECT id, admin_name, action, details, created_at
		FROM audit_log ORDER BY created_at ASC`
	args := []any{}
	if limit > 0 {
		q = `
			SELECT id, admin_name, action, details, created_at
			FROM audit_log ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var detailsJSON string
		if err := rows.Scan(&e.ID, &e.Admin, &e.Action, &detailsJSON, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		_ = json.Unmarshal([]byte(detailsJSON), &e.Details)
		entries = append(entries, e)
	}
	if entries == nil {
		entries = []Entry{}
	}
	if limit > 0 {
		reverseEntries(entries)
	}
	return entries, rows.Err()
}

// reverseEntries flips a newest-first window into write order.
func reverseEntries(entries []Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
