// types.go — Core entitlement data shapes shared by the resolvers and the
// access gateway.
package entitlement

// Tier is a subscription tier level. Tiers are totally ordered: a higher tier
// grants a superset of a lower tier's access.
type Tier int

const (
	TierBasic    Tier = 1
	TierPremium  Tier = 2
	TierUltimate Tier = 3
)

// Valid reports whether t is a known tier level.
func (t Tier) Valid() bool { return t >= TierBasic && t <= TierUltimate }

// String returns the display name for a tier.
func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "Basic"
	case TierPremium:
		return "Premium"
	case TierUltimate:
		return "Ultimate"
	default:
		return "Unknown"
	}
}

// TierPriceMist returns the subscription price for a tier in MIST
// (1 SUI = 10^9 MIST). Unknown tiers price at 0 — the ledger contract
// rejects those before payment anyway.
func TierPriceMist(t Tier) uint64 {
	switch t {
	case TierBasic:
		return 5_000_000_000
	case TierPremium:
		return 10_000_000_000
	case TierUltimate:
		return 15_000_000_000
	default:
		return 0
	}
}

// SubscriptionRecord is the normalized projection of an on-chain subscription
// object. It is fetched live from the ledger on each evaluation — this system
// never owns or caches it beyond the request.
//
// IsActive is the ledger-side flag; it is necessary but NOT sufficient for
// access. The canonical activity predicate is IsActive combined with
// ExpiresAt still being in the future (see EffectiveActiveAt).
type SubscriptionRecord struct {
	ID          string `json:"id"`
	Tier        Tier   `json:"tier"`
	UserAddress string `json:"userAddress"`
	StartDate   int64  `json:"startDate"` // unix seconds
	ExpiresAt   int64  `json:"expiresAt"` // unix seconds
	IsActive    bool   `json:"isActive"`
	AutoRenew   bool   `json:"autoRenew"`
}

// Ownership is the set of content references a wallet owns outright
// (purchases, not subscriptions).
type Ownership map[string]struct{}

// NewOwnership builds an Ownership set from a slice of content references.
func NewOwnership(refs []string) Ownership {
	o := make(Ownership, len(refs))
	for _, ref := range refs {
		o[ref] = struct{}{}
	}
	return o
}

// Contains reports whether content is in the owned set.
func (o Ownership) Contains(content string) bool {
	_, ok := o[content]
	return ok
}

// Refs returns the owned content references as a slice. Order is unspecified.
func (o Ownership) Refs() []string {
	refs := make([]string, 0, len(o))
	for ref := range o {
		refs = append(refs, ref)
	}
	return refs
}

// Reason explains an access verdict.
type Reason string

const (
	// ReasonOwned — the wallet owns the content outright; subscription state
	// is irrelevant.
	ReasonOwned Reason = "owned"

	// ReasonSubscribed — an active subscription of sufficient tier covers the
	// content.
	ReasonSubscribed Reason = "subscribed_sufficient_tier"

	// ReasonNoSubscription — the wallet has no subscription record at all
	// (or no wallet was connected).
	ReasonNoSubscription Reason = "no_wallet_or_no_subscription"

	// ReasonExpired — a subscription record exists but is no longer
	// effectively active.
	ReasonExpired Reason = "subscription_expired"

	// ReasonInsufficientTier — the subscription is active but below the tier
	// the content requires.
	ReasonInsufficientTier Reason = "insufficient_tier"
)

// Verdict is the result of an access evaluation.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}
