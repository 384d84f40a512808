// postgres.go — Postgres-backed registry store.
//
// One row per wallet; per-key atomicity comes from row-level locking on the
// primary key. The reviews handle lives in a single-row metadata table so
// "set at most once" is an INSERT … ON CONFLICT DO NOTHING.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Schema for reference (applied by migrations, not by this package):
//
//	CREATE TABLE object_registry (
//	    wallet           TEXT PRIMARY KEY,
//	    library_handle   TEXT NOT NULL,
//	    watchlist_handle TEXT NOT NULL,
//	    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE TABLE registry_meta (
//	    key   TEXT PRIMARY KEY,
//	    value TEXT NOT NULL
//	);

// PostgresStore implements Store on a database/sql Postgres pool.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the entry for wallet, or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, wallet string) (*Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx, `
		SELECT wallet, library_handle, watchlist_handle
		FROM object_registry WHERE wallet = $1`, wallet,
	).Scan(&e.Wallet, &e.LibraryHandle, &e.WatchlistHandle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry get: %w", err)
	}
	return &e, nil
}

// Create inserts a new entry; the primary-key conflict maps to
// ErrAlreadyExists without a separate existence check.
func (s *PostgresStore) Create(ctx context.Context, e Entry) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO object_registry (wallet, library_handle, watchlist_handle)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet) DO NOTHING`,
		e.Wallet, e.LibraryHandle, e.WatchlistHandle)
	if err != nil {
		return fmt.Errorf("registry create: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registry create: %w", err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Put upserts the entry. The single UPSERT statement is the atomic
// read-modify-write — concurrent Puts for the same wallet serialize on the
// row, so the stored entry is always exactly one caller's pair.
func (s *PostgresStore) Put(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO object_registry (wallet, library_handle, watchlist_handle)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet) DO UPDATE
		SET library_handle = EXCLUDED.library_handle,
		    watchlist_handle = EXCLUDED.watchlist_handle,
		    updated_at = now()`,
		e.Wallet, e.LibraryHandle, e.WatchlistHandle)
	if err != nil {
		return fmt.Errorf("registry put: %w", err)
	}
	return nil
}

// Delete removes the entry for wallet, or ErrNotFound.
func (s *PostgresStore) Delete(ctx context.Context, wallet string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM object_registry WHERE wallet = $1`, wallet)
	if err != nil {
		return fmt.Errorf("registry delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registry delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all entries keyed by wallet.
func (s *PostgresStore) List(ctx context.Context) (map[string]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wallet, library_handle, watchlist_handle
		FROM object_registry ORDER BY wallet`)
	if err != nil {
		return nil, fmt.Errorf("registry list: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Wallet, &e.LibraryHandle, &e.WatchlistHandle); err != nil {
			return nil, fmt.Errorf("registry list: %w", err)
		}
		entries[e.Wallet] = e
	}
	return entries, rows.Err()
}

// ReviewsHandle returns the global reviews handle, or "" if unset.
func (s *PostgresStore) ReviewsHandle(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM registry_meta WHERE key = 'reviews'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("registry reviews: %w", err)
	}
	return v, nil
}

// SetReviewsHandle sets the reviews handle at most once.
func (s *PostgresStore) SetReviewsHandle(ctx context.Context, handle string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO registry_meta (key, value) VALUES ('reviews', $1)
		ON CONFLICT (key) DO NOTHING`, handle)
	if err != nil {
		return fmt.Errorf("registry set reviews: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registry set reviews: %w", err)
	}
	if n == 0 {
		return ErrReviewsAlreadySet
	}
	return nil
}
