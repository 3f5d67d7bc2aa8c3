// Package retry provides the bounded retry combinator used to wait for
// guest readiness: a fixed attempt budget with linear backoff between
// attempts, surfacing the last failure when the budget is exhausted.
package retry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// LinearBackOff waits base*n before attempt n+1. It implements
// backoff.BackOff so it plugs into the backoff retry machinery.
type LinearBackOff struct {
	// Base is the backoff unit. The wait after the n-th failed attempt
	// is Base * n.
	Base time.Duration

	attempt atomic.Uint32
}

// Linear creates a LinearBackOff with the given base duration.
func Linear(base time.Duration) *LinearBackOff {
	return &LinearBackOff{Base: base}
}

// NextBackOff implements backoff.BackOff.
func (l *LinearBackOff) NextBackOff() time.Duration {
	n := l.attempt.Add(1)
	return l.Base * time.Duration(n)
}

// Reset implements backoff.BackOff.
func (l *LinearBackOff) Reset() {
	l.attempt.Store(0)
}

// Do runs op until it succeeds or maxAttempts attempts have failed,
// sleeping according to b between attempts. Exactly maxAttempts calls are
// made in the failure case, and the error of the final attempt is
// returned unwrapped so callers can inspect its kind.
func Do[T any](
	ctx context.Context,
	maxAttempts uint,
	b backoff.BackOff,
	op func() (T, error),
) (T, error) {
	return backoff.Retry(
		ctx,
		backoff.Operation[T](op),
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxAttempts),
	)
}
