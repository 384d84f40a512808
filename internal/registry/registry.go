// Package registry is the durable mapping from wallet identity to on-chain
// resource handles (library, watchlist) plus the single global reviews
// handle. It is the source of truth for "which on-chain objects belong to
// which wallet" — entitlement data is only as trustworthy as this mapping.
//
// The abstract contract is atomic read-modify-write per wallet key. Three
// implementations: Postgres (production), an atomically-replaced JSON
// document on disk (single-node deployments), and an in-memory map (tests).
package registry

import (
	"context"
	"errors"
)

// Entry maps one onboarded wallet to its on-chain resource handles.
// Handles are immutable once created except through an explicit admin update.
type Entry struct {
	Wallet          string `json:"wallet"`
	LibraryHandle   string `json:"libraryHandle"`
	WatchlistHandle string `json:"watchlistHandle"`
}

var (
	// ErrNotFound — the wallet has no registry entry.
	ErrNotFound = errors.New("registry: wallet not found")

	// ErrAlreadyExists — Create was called for an already-onboarded wallet.
	ErrAlreadyExists = errors.New("registry: wallet already registered")

	// ErrReviewsAlreadySet — the global reviews handle is set at most once
	// per deployment.
	ErrReviewsAlreadySet = errors.New("registry: reviews handle already set")
)

// Store is the repository interface for the registry.
//
// Implementations must serialize mutations per wallet key: two concurrent
// mutations for the same wallet never interleave into a torn entry.
// Cross-wallet operations may proceed fully in parallel.
type Store interface {
	// Get returns the entry for wallet, or ErrNotFound.
	Get(ctx context.Context, wallet string) (*Entry, error)

	// Create persists a new entry; ErrAlreadyExists if the wallet is
	// already registered.
	Create(ctx context.Context, e Entry) error

	// Put overwrites (or creates) the entry for e.Wallet. This is the
	// administrative override path.
	Put(ctx context.Context, e Entry) error

	// Delete removes the entry for wallet, or ErrNotFound.
	Delete(ctx context.Context, wallet string) error

	// List returns all entries keyed by wallet.
	List(ctx context.Context) (map[string]Entry, error)

	// ReviewsHandle returns the global reviews handle, or "" if unset.
	ReviewsHandle(ctx context.Context) (string, error)

	// SetReviewsHandle sets the global reviews handle once;
	// ErrReviewsAlreadySet afterwards.
	SetReviewsHandle(ctx context.Context, handle string) error
}
