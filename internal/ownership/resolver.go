// Package ownership answers "does this wallet own this content" against the
// ledger, using the wallet's registered library handle.
//
// Ownership is permanent: a purchase recorded on the ledger never expires and
// always supersedes subscription state. A wallet with no registry entry has no
// library and therefore owns nothing — that is a definitive "no", not an
// error. A ledger read failure, by contrast, is "unknown" and surfaces as an
// error wrapping ledger.ErrUnavailable so callers can fail closed.
package ownership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/suistream/suistream/internal/entitlement"
	"github.com/suistream/suistream/internal/ledger"
	"github.com/suistream/suistream/internal/registry"
)

// Resolver fetches owned-content sets and answers point ownership queries.
type Resolver struct {
	client    ledger.Client
	store     registry.Store
	packageID string
	logger    *slog.Logger
}

// NewResolver creates a resolver bound to the deployed contract package.
func NewResolver(client ledger.Client, store registry.Store, packageID string, logger *slog.Logger) *Resolver {
	return &Resolver{client: client, store: store, packageID: packageID, logger: logger}
}

// Resolve returns the full set of content references the wallet owns.
// An unregistered wallet yields the empty set with no error.
func (r *Resolver) Resolve(ctx context.Context, wallet string) (entitlement.Ownership, error) {
	entry, err := r.store.Get(ctx, wallet)
	if errors.Is(err, registry.ErrNotFound) {
		return entitlement.NewOwnership(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up library handle: %w", err)
	}

	res, err := r.client.Call(ctx, r.packageID+"::content::get_owned_content",
		[]any{entry.LibraryHandle})
	if err != nil {
		return nil, fmt.Errorf("fetch owned content: %w", err)
	}
	refs, err := res.StringList()
	if err != nil {
		return nil, fmt.Errorf("decode owned content: %w", err)
	}
	return entitlement.NewOwnership(refs), nil
}

// IsOwned answers a point query for a single content reference.
//
// It prefers the targeted contract predicate; if the predicate's result does
// not decode as a boolean, it falls back to membership in the full owned set
// rather than guessing. Ledger unavailability propagates as an error — never
// as "not owned".
func (r *Resolver) IsOwned(ctx context.Context, wallet, contentRef string) (bool, error) {
	entry, err := r.store.Get(ctx, wallet)
	if errors.Is(err, registry.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up library handle: %w", err)
	}

	res, err := r.client.Call(ctx, r.packageID+"::content::owns_content",
		[]any{entry.LibraryHandle, contentRef})
	if err != nil {
		return false, fmt.Errorf("check ownership: %w", err)
	}
	owned, err := res.Bool()
	if err == nil {
		return owned, nil
	}

	// Predicate result had an unexpected shape. Resolve the full set instead
	// of treating an undecodable answer as a denial.
	r.logger.Warn("ownership predicate returned undecodable result, falling back to full set",
		"wallet", wallet, "error", err)
	set, err := r.Resolve(ctx, wallet)
	if err != nil {
		return false, err
	}
	return set.Contains(contentRef), nil
}
