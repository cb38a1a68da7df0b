package stream

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/abelbrown/marquee/internal/auth"
	"github.com/abelbrown/marquee/internal/feed"
)

// ReconnectPolicy bounds how a Session reopens its subscription after a
// delivery error.
type ReconnectPolicy struct {
	// BaseDelay is the wait before the second reopen attempt; the first
	// attempt is immediate. Doubles per attempt up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter randomizes each delay by up to this fraction (0 to 1).
	Jitter float64

	// MaxRetries caps reopen attempts per delivery error. -1 means unbounded.
	MaxRetries int
}

// DefaultReconnectPolicy retries forever with 1s..60s backoff and 25% jitter.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Jitter:     0.25,
		MaxRetries: -1,
	}
}

func (p ReconnectPolicy) normalize() ReconnectPolicy {
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Millisecond
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	if p.MaxRetries < -1 {
		p.MaxRetries = -1
	}
	return p
}

// build turns the policy into a failsafe retry policy. Rejected credentials
// abort immediately: retrying them only hammers the upstream.
func (p ReconnectPolicy) build(kind feed.Kind, logger *log.Logger) retrypolicy.RetryPolicy[Subscription] {
	p = p.normalize()

	builder := retrypolicy.NewBuilder[Subscription]().
		WithBackoff(p.BaseDelay, p.MaxDelay).
		WithMaxRetries(p.MaxRetries).
		AbortOnErrors(auth.ErrUnauthorized, ErrEmptyKeyword).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[Subscription]) {
			logger.Debug("reopen attempt failed", "kind", kind, "attempts", e.Attempts(), "err", e.LastError())
		})
	if p.Jitter > 0 {
		builder = builder.WithJitterFactor(p.Jitter)
	}

	return builder.Build()
}
