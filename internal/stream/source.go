// Package stream supervises live subscriptions to the upstream feed.
//
// A Session owns at most one Subscription at a time. It runs a single delivery
// goroutine per subscription, forwards status posts to its Handler in arrival
// order, and reopens the subscription on delivery errors under a retry policy.
//
// # Stopping
//
// Stop is the only cancellation primitive. It cancels the delivery context,
// closes the live subscription to unblock a pending read, and waits for the
// delivery goroutine to exit. Once Stop returns, the Handler is never called
// again for that subscription. Stop must not be called from inside the Handler.
//
// # Reconnecting
//
// Delivery errors are retried, but a reopen rejected with auth.ErrUnauthorized
// (for example after the token was revoked mid-stream) is not: the session
// reports StateFailed and waits for new credentials.
package stream

import (
	"context"

	"github.com/abelbrown/marquee/internal/auth"
	"github.com/abelbrown/marquee/internal/feed"
)

// Query selects what a subscription delivers. Keyword is empty for timeline
// subscriptions.
type Query struct {
	Kind    feed.Kind
	Keyword string
}

// Source opens subscriptions. Implementations must return an error wrapping
// auth.ErrUnauthorized when the upstream rejects the session.
type Source interface {
	Subscribe(ctx context.Context, sess *auth.Session, q Query) (Subscription, error)
}

// Subscription is one live connection to the upstream feed.
//
// Next blocks until the next event arrives or the connection fails. Close
// must be idempotent and must unblock a concurrent Next.
type Subscription interface {
	Next(ctx context.Context) (feed.RawEvent, error)
	Close() error
}
