package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"

	"github.com/abelbrown/marquee/internal/auth"
	"github.com/abelbrown/marquee/internal/feed"
	"github.com/abelbrown/marquee/internal/logging"
)

var (
	// ErrEmptyKeyword is returned when a keyword session is started without one.
	ErrEmptyKeyword = errors.New("empty keyword")

	// ErrNoSession is returned when Start is called without an authorized session.
	ErrNoSession = errors.New("no authorized session")
)

// State is the lifecycle state reported through Config.OnState.
type State int

const (
	StateInactive State = iota
	StateActive
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handler receives each status post, on the session's delivery goroutine.
type Handler func(kind feed.Kind, post feed.Post)

// StateFunc is notified of lifecycle transitions. err is set for
// StateReconnecting (the delivery error) and StateFailed (the reason).
type StateFunc func(kind feed.Kind, state State, err error)

// Config configures a Session.
type Config struct {
	Kind      feed.Kind
	Source    Source
	Handler   Handler
	OnState   StateFunc     // optional
	Reconnect ReconnectPolicy
	Limiter   *rate.Limiter // optional; shared across sessions to cap reconnect rate
	Logger    *log.Logger   // optional
}

// Session manages one live subscription of a given kind.
//
// Invariant: Active() is true iff a live Subscription is held.
type Session struct {
	kind    feed.Kind
	source  Source
	handler Handler
	onState StateFunc
	retry   retrypolicy.RetryPolicy[Subscription]
	limiter *rate.Limiter
	logger  *log.Logger

	// opMu serializes Start and Stop so two subscriptions never coexist.
	opMu sync.Mutex

	mu     sync.Mutex
	query  Query
	sub    Subscription
	active bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession creates an inactive session.
func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithPrefix("stream")
	}
	handler := cfg.Handler
	if handler == nil {
		handler = func(feed.Kind, feed.Post) {}
	}

	return &Session{
		kind:    cfg.Kind,
		source:  cfg.Source,
		handler: handler,
		onState: cfg.OnState,
		retry:   cfg.Reconnect.build(cfg.Kind, logger),
		limiter: cfg.Limiter,
		logger:  logger,
	}
}

// Kind returns the subscription kind.
func (s *Session) Kind() feed.Kind {
	return s.kind
}

// Active reports whether a live subscription is held.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Keyword returns the keyword of the current (or last) keyword subscription.
func (s *Session) Keyword() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query.Keyword
}

// Start opens a subscription and begins delivery on a background goroutine.
// A running subscription is stopped first. On error the session is left
// inactive; rejected credentials surface as auth.ErrUnauthorized.
func (s *Session) Start(ctx context.Context, sess *auth.Session, keyword string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.stopLocked()

	q := Query{Kind: s.kind}
	if s.kind == feed.KindKeyword {
		if keyword == "" {
			return ErrEmptyKeyword
		}
		q.Keyword = keyword
	}
	if !sess.Valid() {
		return ErrNoSession
	}

	sub, err := s.source.Subscribe(ctx, sess, q)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.kind, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.query = q
	s.sub = sub
	s.active = true
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	s.logger.Info("subscription opened", "kind", s.kind, "keyword", q.Keyword)
	s.notify(StateActive, nil)

	go s.run(runCtx, sess, q, sub, done)
	return nil
}

// Stop releases the subscription and waits for delivery to end. It is a no-op
// when nothing is running.
func (s *Session) Stop() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done

	s.mu.Lock()
	s.sub = nil
	s.active = false
	s.mu.Unlock()

	s.logger.Info("subscription stopped", "kind", s.kind)
	s.notify(StateInactive, nil)
}

// run is the delivery goroutine. It owns sub until it returns.
func (s *Session) run(ctx context.Context, sess *auth.Session, q Query, sub Subscription, done chan struct{}) {
	defer close(done)

	for {
		err := s.deliver(ctx, sub)
		if ctx.Err() != nil {
			return
		}

		s.setSub(nil)
		s.logger.Warn("delivery error, reconnecting", "kind", q.Kind, "keyword", q.Keyword, "err", err)
		s.notify(StateReconnecting, err)

		next, err := s.reopen(ctx, sess, q)
		if ctx.Err() != nil {
			if next != nil {
				_ = next.Close()
			}
			return
		}
		if err != nil {
			s.logger.Error("giving up on subscription", "kind", q.Kind, "keyword", q.Keyword, "err", err)
			s.notify(StateFailed, err)
			return
		}

		sub = next
		s.setSub(sub)
		s.logger.Info("subscription reopened", "kind", q.Kind, "keyword", q.Keyword)
		s.notify(StateActive, nil)
	}
}

// deliver reads from sub until it fails or ctx is cancelled. sub is always
// closed on return.
func (s *Session) deliver(ctx context.Context, sub Subscription) error {
	stop := context.AfterFunc(ctx, func() { _ = sub.Close() })
	defer func() {
		stop()
		_ = sub.Close()
	}()

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		if !ev.IsStatus() {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.handler(s.kind, *ev.Status)
	}
}

func (s *Session) reopen(ctx context.Context, sess *auth.Session, q Query) (Subscription, error) {
	return failsafe.With(s.retry).WithContext(ctx).Get(func() (Subscription, error) {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return s.source.Subscribe(ctx, sess, q)
	})
}

func (s *Session) setSub(sub Subscription) {
	s.mu.Lock()
	s.sub = sub
	s.active = sub != nil
	s.mu.Unlock()
}

func (s *Session) notify(state State, err error) {
	if s.onState != nil {
		s.onState(s.kind, state, err)
	}
}
