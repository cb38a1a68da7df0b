// Package controller decides which stream subscriptions run and routes their
// posts to the display.
//
// # Architecture
//
//	┌──────────┐     ┌────────────────┐     ┌───────────┐
//	│ Sessions │ ──> │ FeedController │ ──> │ Presenter │
//	│ (stream) │     │    (intake)    │     │   (UI)    │
//	└──────────┘     └────────────────┘     └───────────┘
//
// # Sessions
//
// The controller owns two stream sessions:
//   - timeline: the account's own feed, toggled by Settings.Timeline
//   - keyword: posts matching Settings.FilterWord, running while it is non-empty
//
// External triggers (authorization, filter word, settings) start, stop or
// restart them. Operations are serialized and idempotent.
//
// # Intake
//
// Each session delivers on its own goroutine. Intake drops posts whose author
// locale differs from Settings.Locale, normalizes the rest, optionally speaks
// them and hands them to the Presenter. The Presenter is responsible for
// moving the event onto the foreground goroutine.
//
// # Concurrency
//
// Operations block while subscriptions open and close, so they must not be
// called from the Presenter or from the foreground loop it feeds.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/abelbrown/marquee/internal/auth"
	"github.com/abelbrown/marquee/internal/feed"
	"github.com/abelbrown/marquee/internal/logging"
	"github.com/abelbrown/marquee/internal/metrics"
	"github.com/abelbrown/marquee/internal/speech"
	"github.com/abelbrown/marquee/internal/stream"
)

// ErrNotAuthenticated is returned when a subscription is started before a
// valid session is known.
var ErrNotAuthenticated = errors.New("not authenticated")

// Presenter receives accepted events and session state changes. Both are
// called from background goroutines.
type Presenter interface {
	Present(ev feed.NormalizedEvent)
	SessionState(kind feed.Kind, state stream.State, err error)
}

// Settings is the controller's view of the user configuration.
type Settings struct {
	Locale     string
	Timeline   bool
	FilterWord string
	Newline    feed.NewlineMode
	Speech     bool
}

// Options configures a FeedController.
type Options struct {
	Source    stream.Source
	Presenter Presenter
	Speaker   speech.Speaker // optional
	Metrics   *metrics.Feed  // optional
	Reconnect stream.ReconnectPolicy
	Limiter   *rate.Limiter // optional; shared by both sessions
	Logger    *log.Logger   // optional
	Settings  Settings
}

// SessionStatus is a snapshot of one session.
type SessionStatus struct {
	State   stream.State
	Keyword string
	Err     error
}

// Status is a snapshot of the controller.
type Status struct {
	Authenticated bool
	Profile       auth.Profile
	Settings      Settings
	Timeline      SessionStatus
	Keyword       SessionStatus
}

// FeedController supervises the timeline and keyword sessions.
type FeedController struct {
	presenter Presenter
	speaker   speech.Speaker
	metrics   *metrics.Feed
	logger    *log.Logger

	timeline *stream.Session
	keyword  *stream.Session

	// opMu serializes operations so restarts never interleave.
	opMu sync.Mutex

	mu       sync.RWMutex
	settings Settings
	session  *auth.Session
	states   map[feed.Kind]SessionStatus
}

// New creates a controller with both sessions inactive.
func New(opts Options) *FeedController {
	logger := opts.Logger
	if logger == nil {
		logger = logging.WithPrefix("controller")
	}
	speaker := opts.Speaker
	if speaker == nil {
		speaker = speech.Nop{}
	}
	policy := opts.Reconnect
	if policy == (stream.ReconnectPolicy{}) {
		policy = stream.DefaultReconnectPolicy()
	}

	c := &FeedController{
		presenter: opts.Presenter,
		speaker:   speaker,
		metrics:   opts.Metrics,
		logger:    logger,
		settings:  opts.Settings,
		states: map[feed.Kind]SessionStatus{
			feed.KindTimeline: {State: stream.StateInactive},
			feed.KindKeyword:  {State: stream.StateInactive},
		},
	}

	newSession := func(kind feed.Kind) *stream.Session {
		return stream.NewSession(stream.Config{
			Kind:      kind,
			Source:    opts.Source,
			Handler:   c.intake,
			OnState:   c.onState,
			Reconnect: policy,
			Limiter:   opts.Limiter,
			Logger:    logger.WithPrefix(string(kind)),
		})
	}
	c.timeline = newSession(feed.KindTimeline)
	c.keyword = newSession(feed.KindKeyword)
	return c
}

// StartTimeline (re)starts the timeline subscription.
func (c *FeedController) StartTimeline(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.startTimeline(ctx)
}

// StopTimeline stops the timeline subscription.
func (c *FeedController) StopTimeline() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.timeline.Stop()
}

// StartKeyword (re)starts the keyword subscription with word.
func (c *FeedController) StartKeyword(ctx context.Context, word string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.startKeyword(ctx, word)
}

// StopKeyword stops the keyword subscription.
func (c *FeedController) StopKeyword() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.keyword.Stop()
}

// OnAuthChanged reacts to a new authorization. An invalid or nil session
// stops everything and forgets the previous one. A new valid session starts
// the timeline (if enabled) and the keyword session (if a filter word is
// set). Re-announcing the current session is a no-op.
func (c *FeedController) OnAuthChanged(ctx context.Context, sess *auth.Session) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	current := c.session
	if !sess.Valid() {
		c.session = nil
		c.mu.Unlock()
		c.timeline.Stop()
		c.keyword.Stop()
		if current != nil {
			c.logger.Info("session cleared")
		}
		return nil
	}
	if current != nil && current.AccessToken() == sess.AccessToken() {
		c.mu.Unlock()
		return nil
	}
	c.session = sess
	set := c.settings
	c.mu.Unlock()

	c.logger.Info("session changed", "screen_name", sess.Profile().ScreenName)

	g, gctx := errgroup.WithContext(ctx)
	if set.Timeline {
		g.Go(func() error { return c.startTimeline(gctx) })
	} else {
		c.timeline.Stop()
	}
	if set.FilterWord != "" {
		g.Go(func() error { return c.startKeyword(gctx, set.FilterWord) })
	} else {
		c.keyword.Stop()
	}
	return g.Wait()
}

// OnFilterWordChanged records word and restarts the keyword subscription
// with it, or stops the subscription when word is empty. Without a session
// the word is only recorded.
func (c *FeedController) OnFilterWordChanged(ctx context.Context, word string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.settings.FilterWord = word
	c.mu.Unlock()

	return c.applyKeyword(ctx, word)
}

// OnConfigChanged applies new settings. Locale, newline and speech changes
// take effect on the next post; timeline and filter word changes start or
// stop the affected subscription.
func (c *FeedController) OnConfigChanged(ctx context.Context, s Settings) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	old := c.settings
	c.settings = s
	authed := c.session != nil
	c.mu.Unlock()

	var errs []error
	switch {
	case !s.Timeline:
		c.timeline.Stop()
	case authed && (!old.Timeline || c.idle(feed.KindTimeline)):
		if err := c.startTimeline(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.FilterWord != old.FilterWord || (s.FilterWord != "" && c.idle(feed.KindKeyword)) {
		if err := c.applyKeyword(ctx, s.FilterWord); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Settings returns the current settings.
func (c *FeedController) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Status returns a snapshot of the sessions and settings.
func (c *FeedController) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	timeline := c.states[feed.KindTimeline]
	keyword := c.states[feed.KindKeyword]
	keyword.Keyword = c.keyword.Keyword()
	return Status{
		Authenticated: c.session != nil,
		Profile:       c.session.Profile(),
		Settings:      c.settings,
		Timeline:      timeline,
		Keyword:       keyword,
	}
}

// Close stops both subscriptions.
func (c *FeedController) Close() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.timeline.Stop()
	c.keyword.Stop()
}

// idle reports whether the session of kind is neither running nor retrying.
func (c *FeedController) idle(kind feed.Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.states[kind].State
	return st == stream.StateInactive || st == stream.StateFailed
}

func (c *FeedController) currentSession() *auth.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *FeedController) startTimeline(ctx context.Context) error {
	sess := c.currentSession()
	if sess == nil {
		return ErrNotAuthenticated
	}
	if err := c.timeline.Start(ctx, sess, ""); err != nil {
		return fmt.Errorf("start timeline: %w", err)
	}
	return nil
}

func (c *FeedController) startKeyword(ctx context.Context, word string) error {
	sess := c.currentSession()
	if sess == nil {
		return ErrNotAuthenticated
	}
	if err := c.keyword.Start(ctx, sess, word); err != nil {
		return fmt.Errorf("start keyword %q: %w", word, err)
	}
	return nil
}

func (c *FeedController) applyKeyword(ctx context.Context, word string) error {
	if word == "" {
		c.keyword.Stop()
		return nil
	}
	if c.currentSession() == nil {
		return nil
	}
	if c.keyword.Active() && c.keyword.Keyword() == word {
		return nil
	}
	return c.startKeyword(ctx, word)
}

// intake runs on a session's delivery goroutine.
func (c *FeedController) intake(kind feed.Kind, post feed.Post) {
	c.mu.RLock()
	set := c.settings
	c.mu.RUnlock()

	ev, ok := feed.Accept(kind, post, set.Locale, set.Newline)
	if !ok {
		c.metrics.Post(string(kind), metrics.OutcomeDroppedLocale)
		return
	}
	c.metrics.Post(string(kind), metrics.OutcomeAccepted)

	if set.Speech {
		c.speaker.Speak(ev.Author + "、" + ev.Body)
	}
	if c.presenter != nil {
		c.presenter.Present(ev)
	}
}

func (c *FeedController) onState(kind feed.Kind, state stream.State, err error) {
	c.mu.Lock()
	c.states[kind] = SessionStatus{State: state, Err: err}
	c.mu.Unlock()

	switch state {
	case stream.StateReconnecting:
		c.metrics.Reconnect(string(kind))
	case stream.StateFailed:
		c.metrics.Failed(string(kind))
		c.logger.Error("subscription failed", "kind", kind, "err", err)
	}
	c.metrics.SetActive(string(kind), state == stream.StateActive)

	if c.presenter != nil {
		c.presenter.SessionState(kind, state, err)
	}
}
