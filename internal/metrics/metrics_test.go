package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFeedCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := New(reg)

	f.Post("timeline", OutcomeAccepted)
	f.Post("timeline", OutcomeAccepted)
	f.Post("keyword", OutcomeDroppedLocale)
	f.Reconnect("keyword")
	f.Failed("keyword")
	f.SetActive("timeline", true)

	if got := testutil.ToFloat64(f.posts.WithLabelValues("timeline", OutcomeAccepted)); got != 2 {
		t.Errorf("accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(f.posts.WithLabelValues("keyword", OutcomeDroppedLocale)); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(f.reconnects.WithLabelValues("keyword")); got != 1 {
		t.Errorf("reconnects = %v, want 1", got)
	}
	if got := testutil.ToFloat64(f.failures.WithLabelValues("keyword")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(f.active.WithLabelValues("timeline")); got != 1 {
		t.Errorf("active = %v, want 1", got)
	}

	f.SetActive("timeline", false)
	if got := testutil.ToFloat64(f.active.WithLabelValues("timeline")); got != 0 {
		t.Errorf("active = %v, want 0", got)
	}
}

func TestNilFeedIsSafe(t *testing.T) {
	var f *Feed
	f.Post("timeline", OutcomeAccepted)
	f.Reconnect("timeline")
	f.Failed("timeline")
	f.SetActive("timeline", true)
}
