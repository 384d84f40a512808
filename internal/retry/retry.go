// Package retry provides the uniform retry-with-backoff policy applied to all
// outbound collaborator calls (ledger reads, catalog proxy, watch-URL
// resolver).
//
// A Policy is exhausted, not bypassed: after MaxAttempts failures Do returns
// the last error wrapped so callers can surface a typed failure instead of
// letting a transient network error escape into a request handler.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy configures retry behavior for a class of outbound calls.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration
	// BackoffMultiplier scales the delay after each failed attempt.
	BackoffMultiplier float64
}

// DefaultPolicy mirrors the client-side behavior the platform has always
// shipped: 3 attempts, 1s initial delay, 1.5x backoff.
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: time.Second, BackoffMultiplier: 1.5}

// Permanent wraps an error to tell Do that retrying cannot help
// (e.g. a 4xx response or a schema mismatch).
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Do runs fn up to p.MaxAttempts times, sleeping between attempts with
// exponential backoff. It returns nil on the first success. Context
// cancellation aborts the wait immediately and returns ctx.Err().
//
// A *Permanent error stops retrying and is returned unwrapped.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if p.BackoffMultiplier > 0 {
				delay = time.Duration(float64(delay) * p.BackoffMultiplier)
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		lastErr = err
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
