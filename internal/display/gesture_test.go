package display

import (
	"testing"
	"time"
)

// presentAt returns a scheduler with one item whose left edge is at x=0 on
// row y for the whole test (zero-width surface, long duration).
func presentAt(t *testing.T, mode OpenMode, link string) (*Scheduler, *Item) {
	t.Helper()
	set := DefaultSettings()
	set.OpenMode = mode
	set.MinDuration = time.Hour
	set.MaxDuration = time.Hour + 1
	s := newTestScheduler(newFakeSurface(0, 1), set)
	it := s.Present(event(7, link), t0)
	if it.X(t0) != 0 || it.Y != 1 {
		t.Fatalf("unexpected placement x=%d y=%d", it.X(t0), it.Y)
	}
	return s, it
}

func TestReleaseModeFiresOnPressThenRelease(t *testing.T) {
	s, it := presentAt(t, OpenRelease, "")

	if url := s.Press(2, 1, t0); url != "" {
		t.Errorf("press should not open in release mode, got %q", url)
	}
	if it.Gesture() != GesturePressed {
		t.Fatalf("gesture = %v, want pressed", it.Gesture())
	}

	url := s.Release(3, 1, t0)
	if url != "https://twitter.com/alice/status/7" {
		t.Errorf("Release() = %q", url)
	}
	if it.Gesture() != GestureFired {
		t.Errorf("gesture = %v, want fired", it.Gesture())
	}
}

func TestReleaseOutsideResetsGesture(t *testing.T) {
	s, it := presentAt(t, OpenRelease, "")

	s.Press(2, 1, t0)
	if url := s.Release(2, 5, t0); url != "" {
		t.Errorf("release outside should not open, got %q", url)
	}
	if it.Gesture() != GestureIdle {
		t.Errorf("gesture = %v, want idle", it.Gesture())
	}

	// A later release inside without a new press does nothing.
	if url := s.Release(2, 1, t0); url != "" {
		t.Errorf("release without press opened %q", url)
	}
}

func TestCancelResetsGesture(t *testing.T) {
	s, it := presentAt(t, OpenRelease, "")

	s.Press(2, 1, t0)
	s.Cancel()
	if it.Gesture() != GestureIdle {
		t.Errorf("gesture = %v, want idle", it.Gesture())
	}
	if url := s.Release(2, 1, t0); url != "" {
		t.Errorf("release after cancel opened %q", url)
	}
}

func TestGesturesArePerItem(t *testing.T) {
	set := DefaultSettings()
	set.MinDuration = time.Hour
	set.MaxDuration = time.Hour + 1
	surface := newFakeSurface(0, 1)
	s := newTestScheduler(surface, set)

	a := s.Present(event(1, ""), t0)
	b := s.Present(event(2, ""), t0)
	// Both items land on row 1; move b to another row so it can be targeted alone.
	b.Y = 3

	s.Press(1, a.Y, t0)
	if a.Gesture() != GesturePressed || b.Gesture() != GestureIdle {
		t.Fatalf("gestures a=%v b=%v", a.Gesture(), b.Gesture())
	}

	// Releasing on b must not fire a's press or b.
	if url := s.Release(1, b.Y, t0); url != "" {
		t.Errorf("release on a different item opened %q", url)
	}
	if a.Gesture() != GestureIdle || b.Gesture() != GestureIdle {
		t.Errorf("gestures after release a=%v b=%v", a.Gesture(), b.Gesture())
	}
}

func TestClickModeOpensLinkOnPress(t *testing.T) {
	s, it := presentAt(t, OpenClick, "https://example.com/x")

	if url := s.Press(1, 1, t0); url != "" {
		t.Errorf("press on label opened %q", url)
	}
	if url := s.Press(it.LabelWidth+1, 1, t0); url != "https://example.com/x" {
		t.Errorf("press on link = %q", url)
	}
	if url := s.Release(it.LabelWidth+1, 1, t0); url != "" {
		t.Errorf("release in click mode opened %q", url)
	}
}

func TestClickModeWithoutLink(t *testing.T) {
	s, it := presentAt(t, OpenClick, "")
	if url := s.Press(it.Width-1, 1, t0); url != "" {
		t.Errorf("item without link opened %q", url)
	}
}

func TestOffModeIgnoresPointer(t *testing.T) {
	s, it := presentAt(t, OpenOff, "https://example.com/x")

	if url := s.Press(it.LabelWidth+1, 1, t0); url != "" {
		t.Errorf("press opened %q", url)
	}
	if url := s.Release(it.LabelWidth+1, 1, t0); url != "" {
		t.Errorf("release opened %q", url)
	}
	if it.Gesture() != GestureIdle {
		t.Errorf("gesture = %v", it.Gesture())
	}
}

func TestHitTestPrefersNewest(t *testing.T) {
	set := DefaultSettings()
	set.MinDuration = time.Hour
	set.MaxDuration = time.Hour + 1
	s := newTestScheduler(newFakeSurface(0, 1), set)

	s.Present(event(1, ""), t0)
	newer := s.Present(event(2, ""), t0)

	if got := s.HitTest(1, 1, t0); got != newer {
		t.Errorf("HitTest returned %+v, want newest item", got)
	}
	if got := s.HitTest(1, 9, t0); got != nil {
		t.Errorf("HitTest on empty row returned %+v", got)
	}
}

func TestParseOpenMode(t *testing.T) {
	for _, m := range []OpenMode{OpenOff, OpenClick, OpenRelease} {
		got, err := ParseOpenMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseOpenMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseOpenMode("sideways"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if OpenOff.Next() != OpenClick || OpenClick.Next() != OpenRelease || OpenRelease.Next() != OpenOff {
		t.Error("Next() does not cycle off, click, release")
	}
}
