// Package admin implements the privileged registry-mutation service:
// onboarding wallets onto the platform, overriding or removing registry
// entries, and setting the global reviews handle.
//
// Every mutation is audited. A mutation is not complete until its audit entry
// is durable — an audit append failure fails the operation even though the
// underlying state change may already be applied, and is reported loudly.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/suistream/suistream/internal/audit"
	"github.com/suistream/suistream/internal/ledger"
	"github.com/suistream/suistream/internal/metrics"
	"github.com/suistream/suistream/internal/registry"
	"github.com/suistream/suistream/internal/validate"
	"github.com/suistream/suistream/pkg/logging"
	"github.com/suistream/suistream/pkg/telemetry"
)

// ErrInconsistent means an onboarding run created on-chain objects but could
// not complete: the ledger objects exist with no registry entry pointing at
// them. Requires operator reconciliation — re-running Onboard for the same
// wallet would create duplicates.
var ErrInconsistent = errors.New("admin: onboarding left orphaned ledger objects")

// Service coordinates registry mutations, ledger object creation, and audit.
type Service struct {
	store     registry.Store
	log       audit.Log
	client    ledger.Client
	signer    ledger.Signer
	packageID string
	logger    *slog.Logger
}

// NewService wires the admin service. signer is the platform signing
// capability used for onboarding creates; it is never used to sign
// user-initiated mutations.
func NewService(store registry.Store, log audit.Log, client ledger.Client, signer ledger.Signer, packageID string, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		log:       log,
		client:    client,
		signer:    signer,
		packageID: packageID,
		logger:    logger,
	}
}

// Onboard provisions a new wallet: creates the wallet's on-chain library and
// watchlist objects under the platform signer, persists the handle pair in
// the registry, and audits the addition.
//
// An already-registered wallet is rejected with registry.ErrAlreadyExists
// before any ledger call — onboarding is not idempotent at the ledger level,
// so the guard runs first. A failure after the first create returns
// ErrInconsistent (wrapped) and is captured for reconciliation.
func (s *Service) Onboard(ctx context.Context, admin, wallet string) (*registry.Entry, error) {
	if err := validate.IsWalletAddress("wallet", wallet); err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, wallet); err == nil {
		return nil, registry.ErrAlreadyExists
	} else if !errors.Is(err, registry.ErrNotFound) {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}

	libHandle, err := s.createObject(ctx, "create_user_library", "UserLibrary", wallet)
	if err != nil {
		// Nothing durable was created; the wallet can be onboarded again.
		return nil, fmt.Errorf("create user library: %w", err)
	}

	watchHandle, err := s.createObject(ctx, "create_watchlist", "Watchlist", wallet)
	if err != nil {
		return nil, s.inconsistent(wallet, "create watchlist", err,
			map[string]string{"library_handle": libHandle})
	}

	entry := registry.Entry{Wallet: wallet, LibraryHandle: libHandle, WatchlistHandle: watchHandle}
	if err := s.store.Create(ctx, entry); err != nil {
		return nil, s.inconsistent(wallet, "persist registry entry", err,
			map[string]string{"library_handle": libHandle, "watchlist_handle": watchHandle})
	}

	if err := s.audited(ctx, admin, audit.ActionAddUser, map[string]any{
		"wallet":           wallet,
		"library_handle":   libHandle,
		"watchlist_handle": watchHandle,
	}); err != nil {
		return nil, err
	}

	metrics.AdminEvents.WithLabelValues(audit.ActionAddUser, "ok").Inc()
	s.logger.Info("wallet onboarded",
		"wallet", logging.RedactWallet(wallet), "admin", admin)
	return &entry, nil
}

// Remove deletes a wallet's registry entry. The on-chain objects survive —
// removal only severs the platform's mapping to them.
func (s *Service) Remove(ctx context.Context, admin, wallet string) error {
	entry, err := s.store.Get(ctx, wallet)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, wallet); err != nil {
		return err
	}
	if err := s.audited(ctx, admin, audit.ActionRemoveUser, map[string]any{
		"wallet":           wallet,
		"library_handle":   entry.LibraryHandle,
		"watchlist_handle": entry.WatchlistHandle,
	}); err != nil {
		return err
	}
	metrics.AdminEvents.WithLabelValues(audit.ActionRemoveUser, "ok").Inc()
	s.logger.Info("wallet removed", "wallet", logging.RedactWallet(wallet), "admin", admin)
	return nil
}

// Update overwrites (or creates) a registry entry with admin-supplied
// handles. This is the manual override path for reconciliation: the handles
// are validated for shape, not for on-chain existence.
func (s *Service) Update(ctx context.Context, admin string, entry registry.Entry) error {
	var errs validate.MultiError
	errs.Add(validate.IsWalletAddress("wallet", entry.Wallet))
	errs.Add(validate.IsObjectHandle("libraryHandle", entry.LibraryHandle))
	errs.Add(validate.IsObjectHandle("watchlistHandle", entry.WatchlistHandle))
	if errs.HasErrors() {
		return &errs
	}

	if err := s.store.Put(ctx, entry); err != nil {
		return err
	}
	if err := s.audited(ctx, admin, audit.ActionUpdateUser, map[string]any{
		"wallet":           entry.Wallet,
		"library_handle":   entry.LibraryHandle,
		"watchlist_handle": entry.WatchlistHandle,
	}); err != nil {
		return err
	}
	metrics.AdminEvents.WithLabelValues(audit.ActionUpdateUser, "ok").Inc()
	return nil
}

// List returns all registry entries. Reads are not audited.
func (s *Service) List(ctx context.Context) (map[string]registry.Entry, error) {
	return s.store.List(ctx)
}

// SetReviews records the global reviews handle, once per deployment.
func (s *Service) SetReviews(ctx context.Context, admin, handle string) error {
	if err := validate.IsObjectHandle("reviewsHandle", handle); err != nil {
		return err
	}
	if err := s.store.SetReviewsHandle(ctx, handle); err != nil {
		return err
	}
	if err := s.audited(ctx, admin, audit.ActionSetReviews, map[string]any{
		"reviews_handle": handle,
	}); err != nil {
		return err
	}
	metrics.AdminEvents.WithLabelValues(audit.ActionSetReviews, "ok").Inc()
	return nil
}

// AuditEntries returns the most recent audit entries, newest window first.
func (s *Service) AuditEntries(ctx context.Context, limit int) ([]audit.Entry, error) {
	return s.log.Entries(ctx, limit)
}

// createObject executes one onboarding create call and extracts the created
// object's handle by type name.
func (s *Service) createObject(ctx context.Context, fn, typeName, wallet string) (string, error) {
	call := ledger.MoveCall{
		Target:    s.packageID + "::suistream::" + fn,
		Arguments: []any{wallet},
	}
	result, err := s.client.SignAndExecute(ctx, call, s.signer)
	if err != nil {
		metrics.LedgerWrites.WithLabelValues(fn, writeOutcome(err)).Inc()
		return "", err
	}
	metrics.LedgerWrites.WithLabelValues(fn, "success").Inc()

	handle := result.FindCreated(typeName)
	if handle == "" {
		return "", fmt.Errorf("transaction %s created no %s object", result.Digest, typeName)
	}
	return handle, nil
}

// inconsistent records a partial-onboarding failure: high-severity log,
// Sentry capture, metric, and a wrapped ErrInconsistent for the caller.
func (s *Service) inconsistent(wallet, step string, cause error, created map[string]string) error {
	metrics.OnboardInconsistent.Inc()

	tags := map[string]string{
		"operation": "onboard",
		"step":      step,
		"wallet":    logging.RedactWallet(wallet),
	}
	for k, v := range created {
		tags[k] = v
	}
	telemetry.CaptureError(cause, tags)

	s.logger.Error("onboarding left orphaned ledger objects",
		"wallet", logging.RedactWallet(wallet), "step", step,
		"created", created, "error", cause)
	return fmt.Errorf("%w: %s: %v", ErrInconsistent, step, cause)
}

// audited appends the audit entry that completes a mutation. A failure here
// means the state change is applied but unrecorded, which operators must know
// about immediately.
func (s *Service) audited(ctx context.Context, admin, action string, details map[string]any) error {
	if err := s.log.Append(ctx, admin, action, details); err != nil {
		metrics.AdminEvents.WithLabelValues(action, "audit_failed").Inc()
		telemetry.CaptureError(err, map[string]string{
			"operation": "audit_append",
			"action":    action,
		})
		s.logger.Error("mutation applied but audit append failed",
			"action", action, "admin", admin, "error", err)
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

func writeOutcome(err error) string {
	switch {
	case errors.Is(err, ledger.ErrRejected):
		return "rejected"
	case errors.Is(err, ledger.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
