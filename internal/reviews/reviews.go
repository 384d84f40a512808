// Package reviews reads on-chain content reviews and builds the unsigned
// add-review calls the wallet owner must sign themselves.
//
// All reviews live under one global handle created once by an admin
// (POST /admin/reviews). Like watchlists, the platform signer never signs a
// review mutation: the server's job ends at constructing the move call.
package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/suistream/suistream/internal/ledger"
	"github.com/suistream/suistream/internal/registry"
	"github.com/suistream/suistream/internal/validate"
)

// ErrNotConfigured means no admin has created the reviews handle yet.
var ErrNotConfigured = errors.New("reviews: reviews handle not set")

// maxTextLength bounds review text; the move call would reject longer
// payloads anyway, so cut them off before building a transaction.
const maxTextLength = 2000

// UnsignedTx is a move call prepared for client-side signing.
type UnsignedTx struct {
	Sender string          `json:"sender"`
	Call   ledger.MoveCall `json:"call"`
}

// Service answers review reads and builds add-review transactions.
type Service struct {
	client    ledger.Client
	store     registry.Store
	packageID string
	logger    *slog.Logger
}

// NewService wires the reviews service.
func NewService(client ledger.Client, store registry.Store, packageID string, logger *slog.Logger) *Service {
	return &Service{client: client, store: store, packageID: packageID, logger: logger}
}

// handle returns the global reviews handle, or ErrNotConfigured.
func (s *Service) handle(ctx context.Context) (string, error) {
	h, err := s.store.ReviewsHandle(ctx)
	if err != nil {
		return "", fmt.Errorf("look up reviews handle: %w", err)
	}
	if h == "" {
		return "", ErrNotConfigured
	}
	return h, nil
}

// Get returns the raw review records for a content reference. The review
// shape is defined by the contract; the server passes it through untouched.
func (s *Service) Get(ctx context.Context, contentRef string) (json.RawMessage, error) {
	if err := validate.NonEmptyString("content_id", contentRef); err != nil {
		return nil, err
	}

	h, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Call(ctx, s.packageID+"::content::get_reviews",
		[]any{h, contentRef})
	if err != nil {
		return nil, fmt.Errorf("fetch reviews: %w", err)
	}
	if len(res.Raw) == 0 {
		return json.RawMessage("[]"), nil
	}
	return res.Raw, nil
}

// BuildMutation constructs the unsigned add-review call. The caller relays
// it to the wallet extension for signing.
func (s *Service) BuildMutation(ctx context.Context, wallet, contentRef, text string) (*UnsignedTx, error) {
	var errs validate.MultiError
	errs.Add(validate.NonEmptyString("content_id", contentRef))
	errs.Add(validate.NonEmptyString("text", text))
	errs.Add(validate.MaxLength("text", text, maxTextLength))
	if errs.HasErrors() {
		return nil, &errs
	}

	h, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	return &UnsignedTx{
		Sender: wallet,
		Call: ledger.MoveCall{
			Target:    s.packageID + "::content::add_review",
			Arguments: []any{h, contentRef, text},
		},
	}, nil
}
