// Package subscription resolves the current subscription record for a wallet
// from the ledger and normalizes it into the evaluator's input shape.
//
// The ledger exposes subscription state as loosely-typed object JSON. The
// decode step here is the explicit boundary conversion: it validates shapes
// and fails closed (skips the record) on mismatch rather than propagating
// missing fields into the decision logic.
package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/suistream/suistream/internal/entitlement"
	"github.com/suistream/suistream/internal/ledger"
)

// Resolver fetches and reduces subscription records.
type Resolver struct {
	client    ledger.Client
	packageID string
	logger    *slog.Logger
}

// NewResolver creates a resolver bound to the deployed contract package.
func NewResolver(client ledger.Client, packageID string, logger *slog.Logger) *Resolver {
	return &Resolver{client: client, packageID: packageID, logger: logger}
}

// subscriptionStructType is the on-chain type holding subscription state.
func (r *Resolver) subscriptionStructType() string {
	return r.packageID + "::suistream::Subscription"
}

// Resolve returns the wallet's effective subscription record, or nil when the
// wallet has never subscribed.
//
// Reduction rule when multiple records exist (one active record per wallet is
// expected, but the ledger cannot enforce it): the highest-tier record among
// the effectively active ones wins; if none are active, the most-recently
// expired record is returned so callers can report "expired" rather than
// "never subscribed". The evaluator always receives at most one record.
//
// Ledger failures surface as an error wrapping ledger.ErrUnavailable —
// distinct from the nil "no subscription" answer.
func (r *Resolver) Resolve(ctx context.Context, wallet string) (*entitlement.SubscriptionRecord, error) {
	if wallet == "" {
		return nil, nil
	}

	objs, err := r.client.GetOwnedObjects(ctx, wallet, r.subscriptionStructType())
	if err != nil {
		return nil, fmt.Errorf("resolve subscription for wallet: %w", err)
	}

	var records []*entitlement.SubscriptionRecord
	for _, obj := range objs {
		rec, err := decodeRecord(obj)
		if err != nil {
			r.logger.Warn("skipping undecodable subscription object",
				"object", obj.ObjectID, "error", err)
			continue
		}
		if rec.UserAddress == "" {
			rec.UserAddress = wallet
		}
		records = append(records, rec)
	}
	return Reduce(records), nil
}

// Reduce applies the multi-record reduction rule at the current wall-clock
// time. Exported so the gateway tests can exercise it directly against
// crafted record sets.
func Reduce(records []*entitlement.SubscriptionRecord) *entitlement.SubscriptionRecord {
	return ReduceAt(records, time.Now())
}

// ReduceAt is Reduce evaluated at a fixed instant. Activity uses the
// canonical conjunctive predicate, so a record flagged active but already
// expired by wall clock does not shadow a genuinely active lower-tier one.
func ReduceAt(records []*entitlement.SubscriptionRecord, now time.Time) *entitlement.SubscriptionRecord {
	if len(records) == 0 {
		return nil
	}

	var best *entitlement.SubscriptionRecord
	for _, rec := range records {
		if !entitlement.EffectiveActiveAt(rec, now) {
			continue
		}
		if best == nil || rec.Tier > best.Tier ||
			(rec.Tier == best.Tier && rec.ExpiresAt > best.ExpiresAt) {
			best = rec
		}
	}
	if best != nil {
		return best
	}

	// No active record: return the most recently expired one.
	for _, rec := range records {
		if best == nil || rec.ExpiresAt > best.ExpiresAt {
			best = rec
		}
	}
	return best
}

// rawFields is the loosely-typed on-chain field shape. Timestamps arrive as
// JSON numbers or decimal strings depending on fullnode version.
type rawFields struct {
	ID          string    `json:"id"`
	Tier        flexInt64 `json:"tier"`
	UserAddress string    `json:"user_address"`
	StartDate   flexInt64 `json:"start_date"`
	ExpiresAt   flexInt64 `json:"expiry_date"`
	IsActive    *bool     `json:"is_active"`
	AutoRenew   bool      `json:"auto_renew"`
}

// decodeRecord converts one owned object into a SubscriptionRecord,
// validating required fields.
func decodeRecord(obj ledger.OwnedObject) (*entitlement.SubscriptionRecord, error) {
	if len(obj.Fields) == 0 {
		return nil, fmt.Errorf("object has no content fields")
	}
	var raw rawFields
	if err := json.Unmarshal(obj.Fields, &raw); err != nil {
		return nil, fmt.Errorf("malformed fields: %w", err)
	}

	tier := entitlement.Tier(raw.Tier)
	if !tier.Valid() {
		return nil, fmt.Errorf("tier %d out of range", raw.Tier)
	}
	if raw.ExpiresAt <= 0 {
		return nil, fmt.Errorf("missing expiry")
	}
	if raw.IsActive == nil {
		return nil, fmt.Errorf("missing is_active flag")
	}

	id := raw.ID
	if id == "" {
		id = obj.ObjectID
	}
	return &entitlement.SubscriptionRecord{
		ID:          id,
		Tier:        tier,
		UserAddress: raw.UserAddress,
		StartDate:   int64(raw.StartDate),
		ExpiresAt:   int64(raw.ExpiresAt),
		IsActive:    *raw.IsActive,
		AutoRenew:   raw.AutoRenew,
	}, nil
}

// flexInt64 decodes a JSON number or a decimal string.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	if len(b) > 1 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("not a decimal string: %q", s)
		}
		*f = flexInt64(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexInt64(n)
	return nil
}
