package display

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/abelbrown/marquee/internal/feed"
)

type animation struct {
	fromX, toX int
	start      time.Time
	d          time.Duration
}

// fakeSurface records every call made by the scheduler.
type fakeSurface struct {
	w, h    int
	nodes   map[NodeID]Node
	y       map[NodeID]int
	anim    map[NodeID]animation
	removed []NodeID
}

func newFakeSurface(w, h int) *fakeSurface {
	return &fakeSurface{
		w: w, h: h,
		nodes: make(map[NodeID]Node),
		y:     make(map[NodeID]int),
		anim:  make(map[NodeID]animation),
	}
}

func (f *fakeSurface) Size() (int, int) { return f.w, f.h }

func (f *fakeSurface) AddNode(n Node) NodeID {
	f.nodes[n.ID] = n
	return n.ID
}

func (f *fakeSurface) SetVerticalOffset(id NodeID, y int) { f.y[id] = y }

func (f *fakeSurface) Animate(id NodeID, fromX, toX int, start time.Time, d time.Duration) {
	f.anim[id] = animation{fromX, toX, start, d}
}

func (f *fakeSurface) RemoveNode(id NodeID) {
	delete(f.nodes, id)
	f.removed = append(f.removed, id)
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler(surface Surface, settings Settings) *Scheduler {
	return New(surface, settings, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func event(id int64, link string) feed.NormalizedEvent {
	return feed.NormalizedEvent{
		Kind:   feed.KindTimeline,
		Author: "Alice",
		Handle: "alice",
		ID:     id,
		Body:   "hello",
		Link:   link,
	}
}

func TestPresentPlacesAndAnimates(t *testing.T) {
	surface := newFakeSurface(100, 40)
	s := newTestScheduler(surface, DefaultSettings())

	it := s.Present(event(1, ""), t0)

	if it.Label != "Alice @ alice : hello " {
		t.Errorf("Label = %q", it.Label)
	}
	if it.Width != len("Alice @ alice : hello ") {
		t.Errorf("Width = %d", it.Width)
	}
	node, ok := surface.nodes[it.ID]
	if !ok {
		t.Fatal("node not added to surface")
	}
	if len(node.Spans) != 1 || node.Height != 1 {
		t.Errorf("unexpected node %+v", node)
	}

	if surface.y[it.ID] != it.Y {
		t.Errorf("surface y = %d, item y = %d", surface.y[it.ID], it.Y)
	}
	a := surface.anim[it.ID]
	if a.fromX != 100 || a.toX != -(it.Width+10) {
		t.Errorf("animation from %d to %d, want 100 to %d", a.fromX, a.toX, -(it.Width + 10))
	}
	if !a.start.Equal(t0) || a.d != it.Duration {
		t.Errorf("animation timing %v/%v, item %v/%v", a.start, a.d, t0, it.Duration)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d", s.Len())
	}
}

func TestPresentRandomRanges(t *testing.T) {
	surface := newFakeSurface(80, 30)
	s := newTestScheduler(surface, DefaultSettings())

	maxY := int(0.9 * 30)
	for i := 0; i < 500; i++ {
		it := s.Present(event(int64(i), ""), t0)
		if it.Y < 1 || it.Y >= maxY {
			t.Fatalf("y = %d outside [1, %d)", it.Y, maxY)
		}
		if it.Duration < 9*time.Second || it.Duration >= 13*time.Second {
			t.Fatalf("duration = %v outside [9s, 13s)", it.Duration)
		}
	}
}

func TestPresentDegenerateSurface(t *testing.T) {
	for _, h := range []int{0, 1, 2} {
		surface := newFakeSurface(0, h)
		s := newTestScheduler(surface, DefaultSettings())
		it := s.Present(event(1, ""), t0)
		if it.Y != 1 {
			t.Errorf("h=%d: y = %d, want 1", h, it.Y)
		}
		if it.FromX != 0 {
			t.Errorf("h=%d: FromX = %d, want 0", h, it.FromX)
		}
	}
}

func TestPresentRereadsSurfaceSize(t *testing.T) {
	surface := newFakeSurface(50, 20)
	s := newTestScheduler(surface, DefaultSettings())

	first := s.Present(event(1, ""), t0)
	surface.w = 120
	second := s.Present(event(2, ""), t0)

	if first.FromX != 50 || second.FromX != 120 {
		t.Errorf("FromX = %d, %d; want 50, 120", first.FromX, second.FromX)
	}
}

func TestPresentWithLinkAddsSpan(t *testing.T) {
	surface := newFakeSurface(100, 40)
	s := newTestScheduler(surface, DefaultSettings())

	it := s.Present(event(7, "https://example.com/x"), t0)
	node := surface.nodes[it.ID]
	if len(node.Spans) != 2 || !node.Spans[1].Link || node.Spans[1].Text != "https://example.com/x" {
		t.Fatalf("unexpected spans %+v", node.Spans)
	}
	if it.Width != it.LabelWidth+len("https://example.com/x") {
		t.Errorf("Width = %d, LabelWidth = %d", it.Width, it.LabelWidth)
	}
}

func TestPresentWideCharacters(t *testing.T) {
	surface := newFakeSurface(100, 40)
	s := newTestScheduler(surface, DefaultSettings())

	ev := event(1, "")
	ev.Body = "こんにちは"
	it := s.Present(ev, t0)

	// "Alice @ alice : " is 16 cells, five wide runes are 10, plus the trailing space.
	if it.Width != 27 {
		t.Errorf("Width = %d, want 27", it.Width)
	}
}

func TestTargetsByOpenMode(t *testing.T) {
	tests := []struct {
		mode OpenMode
		want string
	}{
		{OpenOff, ""},
		{OpenClick, "https://example.com/x"},
		{OpenRelease, "https://twitter.com/alice/status/7"},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			set := DefaultSettings()
			set.OpenMode = tt.mode
			s := newTestScheduler(newFakeSurface(100, 40), set)
			it := s.Present(event(7, "https://example.com/x"), t0)
			if it.Target != tt.want {
				t.Errorf("Target = %q, want %q", it.Target, tt.want)
			}
		})
	}
}

func TestExpireNeverEarly(t *testing.T) {
	surface := newFakeSurface(100, 40)
	s := newTestScheduler(surface, DefaultSettings())
	it := s.Present(event(1, ""), t0)

	if s.Expire(it.ID, t0.Add(it.Duration-time.Millisecond)) {
		t.Fatal("expired before its duration")
	}
	if _, ok := surface.nodes[it.ID]; !ok {
		t.Fatal("node removed early")
	}

	if !s.Expire(it.ID, t0.Add(it.Duration)) {
		t.Fatal("did not expire at its deadline")
	}
	if _, ok := surface.nodes[it.ID]; ok {
		t.Error("node still on surface after expiry")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d", s.Len())
	}
	if s.Expire(it.ID, t0.Add(time.Hour)) {
		t.Error("second expiry should report false")
	}
}

func TestSweepRemovesOnlyDue(t *testing.T) {
	surface := newFakeSurface(100, 40)
	set := DefaultSettings()
	set.MinDuration = time.Second
	set.MaxDuration = time.Second + 1
	s := newTestScheduler(surface, set)

	old := s.Present(event(1, ""), t0)
	young := s.Present(event(2, ""), t0.Add(5*time.Second))

	if n := s.Sweep(t0.Add(2 * time.Second)); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := s.Item(old.ID); ok {
		t.Error("due item survived sweep")
	}
	if _, ok := s.Item(young.ID); !ok {
		t.Error("young item removed by sweep")
	}
}

func TestMaxItemsEvictsOldest(t *testing.T) {
	surface := newFakeSurface(100, 40)
	set := DefaultSettings()
	set.MaxItems = 2
	s := newTestScheduler(surface, set)

	first := s.Present(event(1, ""), t0)
	s.Present(event(2, ""), t0)
	s.Present(event(3, ""), t0)

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if _, ok := s.Item(first.ID); ok {
		t.Error("oldest item should have been evicted")
	}
	items := s.Items()
	if items[0].Event.ID != 2 || items[1].Event.ID != 3 {
		t.Errorf("unexpected order: %d, %d", items[0].Event.ID, items[1].Event.ID)
	}
}

func TestClear(t *testing.T) {
	surface := newFakeSurface(100, 40)
	s := newTestScheduler(surface, DefaultSettings())
	s.Present(event(1, ""), t0)
	s.Present(event(2, ""), t0)

	if n := s.Clear(); n != 2 {
		t.Errorf("Clear() = %d", n)
	}
	if s.Len() != 0 || len(surface.nodes) != 0 || len(surface.removed) != 2 {
		t.Errorf("items left after Clear: %d, nodes %d", s.Len(), len(surface.nodes))
	}
}

func TestSetSettingsAppliesToLaterItems(t *testing.T) {
	s := newTestScheduler(newFakeSurface(100, 40), DefaultSettings())
	before := s.Present(event(1, "https://example.com"), t0)

	set := s.Settings()
	set.OpenMode = OpenClick
	set.MinDuration = time.Second
	set.MaxDuration = 2 * time.Second
	s.SetSettings(set)
	after := s.Present(event(2, "https://example.com"), t0)

	if before.Mode != OpenRelease || after.Mode != OpenClick {
		t.Errorf("modes = %v, %v", before.Mode, after.Mode)
	}
	if before.Duration < 9*time.Second {
		t.Errorf("existing item duration changed: %v", before.Duration)
	}
	if after.Duration < time.Second || after.Duration >= 2*time.Second {
		t.Errorf("new item duration %v outside new range", after.Duration)
	}
}

func TestItemX(t *testing.T) {
	it := &Item{FromX: 100, ToX: -20, Duration: 12 * time.Second, Born: t0}

	if got := it.X(t0.Add(-time.Second)); got != 100 {
		t.Errorf("X before born = %d", got)
	}
	if got := it.X(t0.Add(6 * time.Second)); got != 40 {
		t.Errorf("X at half = %d, want 40", got)
	}
	if got := it.X(t0.Add(time.Minute)); got != -20 {
		t.Errorf("X after end = %d", got)
	}
}
