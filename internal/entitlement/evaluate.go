// evaluate.go — Pure access decision logic.
//
// Evaluate performs no I/O and never panics; absence of data is modeled as
// nil, not as a failure. The resolvers are responsible for reducing multiple
// subscription-like records to the single effective record passed here.
package entitlement

import "time"

// EffectiveActiveAt is the canonical subscription activity predicate:
// the ledger-side IsActive flag AND a wall-clock expiry check. A record may
// be flagged active but already expired by wall-clock time.
func EffectiveActiveAt(sub *SubscriptionRecord, now time.Time) bool {
	if sub == nil {
		return false
	}
	return sub.IsActive && sub.ExpiresAt*1000 > now.UnixMilli()
}

// Evaluate decides whether access to content is granted, evaluated at the
// current wall-clock time. See EvaluateAt for the decision order.
func Evaluate(owned Ownership, sub *SubscriptionRecord, content string, required Tier) Verdict {
	return EvaluateAt(owned, sub, content, required, time.Now())
}

// EvaluateAt decides whether access to content is granted at the given
// evaluation time. Decision order:
//
//  1. Outright ownership always grants access, regardless of subscription
//     state (even nil).
//  2. No subscription record → denied.
//  3. Flagged-inactive or wall-clock-expired subscription → denied as expired.
//  4. Active subscription below the required tier → denied as insufficient.
//  5. Otherwise → granted.
func EvaluateAt(owned Ownership, sub *SubscriptionRecord, content string, required Tier, now time.Time) Verdict {
	if owned.Contains(content) {
		return Verdict{Allowed: true, Reason: ReasonOwned}
	}
	if sub == nil {
		return Verdict{Allowed: false, Reason: ReasonNoSubscription}
	}
	if !EffectiveActiveAt(sub, now) {
		return Verdict{Allowed: false, Reason: ReasonExpired}
	}
	if sub.Tier < required {
		return Verdict{Allowed: false, Reason: ReasonInsufficientTier}
	}
	return Verdict{Allowed: true, Reason: ReasonSubscribed}
}
