// Package metrics exposes Prometheus counters for the stream sessions and the
// display pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Post outcomes recorded by Feed.Posts.
const (
	OutcomeAccepted      = "accepted"
	OutcomeDroppedLocale = "dropped_locale"
)

// Feed holds the collectors. A nil *Feed is valid and records nothing.
type Feed struct {
	posts      *prometheus.CounterVec
	reconnects *prometheus.CounterVec
	active     *prometheus.GaugeVec
	failures   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Feed {
	f := &Feed{
		posts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marquee_posts_total",
				Help: "Status posts received, by subscription kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marquee_reconnects_total",
				Help: "Subscription reopen attempts after a delivery error",
			},
			[]string{"kind"},
		),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marquee_session_active",
				Help: "1 while the subscription of this kind holds a live connection",
			},
			[]string{"kind"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marquee_session_failures_total",
				Help: "Sessions that gave up reconnecting",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(f.posts, f.reconnects, f.active, f.failures)
	return f
}

// Post records the outcome of one status post.
func (f *Feed) Post(kind, outcome string) {
	if f == nil {
		return
	}
	f.posts.WithLabelValues(kind, outcome).Inc()
}

// Reconnect records a reopen attempt.
func (f *Feed) Reconnect(kind string) {
	if f == nil {
		return
	}
	f.reconnects.WithLabelValues(kind).Inc()
}

// Failed records a session giving up.
func (f *Feed) Failed(kind string) {
	if f == nil {
		return
	}
	f.failures.WithLabelValues(kind).Inc()
}

// SetActive records whether a session holds a live subscription.
func (f *Feed) SetActive(kind string, active bool) {
	if f == nil {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	f.active.WithLabelValues(kind).Set(v)
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
