// Package watchlist reads a wallet's on-chain watchlist and builds the
// unsigned mutation calls the wallet owner must sign themselves.
//
// The platform signer never signs watchlist mutations: the server's job ends
// at constructing the move call. Only onboarding creates run under the
// platform key.
package watchlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/suistream/suistream/internal/ledger"
	"github.com/suistream/suistream/internal/registry"
	"github.com/suistream/suistream/internal/validate"
)

// Mutation actions accepted by BuildMutation.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// UnsignedTx is a move call prepared for client-side signing.
type UnsignedTx struct {
	Sender string          `json:"sender"`
	Call   ledger.MoveCall `json:"call"`
}

// Service answers watchlist reads and builds mutation transactions.
type Service struct {
	client    ledger.Client
	store     registry.Store
	packageID string
	logger    *slog.Logger
}

// NewService wires the watchlist service.
func NewService(client ledger.Client, store registry.Store, packageID string, logger *slog.Logger) *Service {
	return &Service{client: client, store: store, packageID: packageID, logger: logger}
}

// Get returns the content references on the wallet's watchlist.
// An unregistered wallet surfaces registry.ErrNotFound — unlike ownership,
// a watchlist read is meaningless without an onboarded handle.
func (s *Service) Get(ctx context.Context, wallet string) ([]string, error) {
	entry, err := s.store.Get(ctx, wallet)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Call(ctx, s.packageID+"::suistream::get_watchlist",
		[]any{entry.WatchlistHandle})
	if err != nil {
		return nil, fmt.Errorf("fetch watchlist: %w", err)
	}
	refs, err := res.StringList()
	if err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}
	if refs == nil {
		refs = []string{}
	}
	return refs, nil
}

// BuildMutation constructs the unsigned add/remove call for the wallet's
// watchlist. The caller relays it to the wallet extension for signing.
func (s *Service) BuildMutation(ctx context.Context, wallet, action, contentRef string) (*UnsignedTx, error) {
	if err := validate.NonEmptyString("contentRef", contentRef); err != nil {
		return nil, err
	}

	var fn string
	switch action {
	case ActionAdd:
		fn = "add_to_watchlist"
	case ActionRemove:
		fn = "remove_from_watchlist"
	default:
		return nil, &validate.ValidationError{Field: "action", Message: "must be \"add\" or \"remove\""}
	}

	entry, err := s.store.Get(ctx, wallet)
	if err != nil {
		return nil, err
	}

	return &UnsignedTx{
		Sender: wallet,
		Call: ledger.MoveCall{
			Target:    s.packageID + "::suistream::" + fn,
			Arguments: []any{entry.WatchlistHandle, contentRef},
		},
	}, nil
}
