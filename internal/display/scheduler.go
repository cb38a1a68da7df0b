package display

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/marquee/internal/feed"
)

const (
	// trailMargin keeps an item moving until it is fully off the left edge.
	trailMargin = 10

	// usableHeight is the fraction of the surface rows items may land on.
	usableHeight = 0.9
)

// Settings controls items presented after they are applied.
type Settings struct {
	MinDuration   time.Duration
	MaxDuration   time.Duration
	OpenMode      OpenMode
	PermalinkBase string
	MaxItems      int // 0 means unbounded
}

// DefaultSettings matches the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		MinDuration:   9 * time.Second,
		MaxDuration:   13 * time.Second,
		OpenMode:      OpenRelease,
		PermalinkBase: "https://twitter.com",
		MaxItems:      200,
	}
}

func (s Settings) normalize() Settings {
	if s.MinDuration <= 0 {
		s.MinDuration = time.Millisecond
	}
	if s.MaxDuration < s.MinDuration {
		s.MaxDuration = s.MinDuration
	}
	if s.MaxItems < 0 {
		s.MaxItems = 0
	}
	return s
}

// Scheduler owns the items on a surface.
type Scheduler struct {
	surface  Surface
	settings Settings
	rng      *rand.Rand
	newID    func() NodeID

	items map[NodeID]*Item
	order []NodeID // oldest first
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRand sets the source for vertical placement and duration.
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = r }
}

// New creates a Scheduler drawing on surface.
func New(surface Surface, settings Settings, opts ...Option) *Scheduler {
	s := &Scheduler{
		surface:  surface,
		settings: settings.normalize(),
		newID:    func() NodeID { return NodeID(uuid.NewString()) },
		items:    make(map[NodeID]*Item),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Settings returns the current settings.
func (s *Scheduler) Settings() Settings {
	return s.settings
}

// SetSettings replaces the settings. Items already on screen keep theirs.
func (s *Scheduler) SetSettings(settings Settings) {
	s.settings = settings.normalize()
}

// Len returns the number of items on screen.
func (s *Scheduler) Len() int {
	return len(s.order)
}

// Items returns the items on screen, oldest first.
func (s *Scheduler) Items() []*Item {
	out := make([]*Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Item looks up an item by ID.
func (s *Scheduler) Item(id NodeID) (*Item, bool) {
	it, ok := s.items[id]
	return it, ok
}

// Present creates an item for ev, places it at a random row and starts its
// traversal from the right edge to just past the left edge. The caller
// arranges for Expire to run after the returned item's Duration.
func (s *Scheduler) Present(ev feed.NormalizedEvent, now time.Time) *Item {
	w, h := s.surface.Size()
	set := s.settings

	label := ev.Label()
	labelWidth := runewidth.StringWidth(label)
	width := labelWidth + runewidth.StringWidth(ev.Link)

	spans := []Span{{Text: label}}
	if ev.Link != "" {
		spans = append(spans, Span{Text: ev.Link, Link: true})
	}

	it := &Item{
		Event:      ev,
		Label:      label,
		Link:       ev.Link,
		Mode:       set.OpenMode,
		Y:          s.row(h),
		Width:      width,
		LabelWidth: labelWidth,
		FromX:      w,
		ToX:        -(width + trailMargin),
		Duration:   s.duration(),
		Born:       now,
	}
	switch set.OpenMode {
	case OpenClick:
		it.Target = ev.Link
	case OpenRelease:
		it.Target = feed.Permalink(set.PermalinkBase, ev.Handle, ev.ID)
	}

	it.ID = s.surface.AddNode(Node{ID: s.newID(), Spans: spans, Width: width, Height: 1})
	s.surface.SetVerticalOffset(it.ID, it.Y)
	s.surface.Animate(it.ID, it.FromX, it.ToX, it.Born, it.Duration)

	s.items[it.ID] = it
	s.order = append(s.order, it.ID)

	if set.MaxItems > 0 {
		for len(s.order) > set.MaxItems {
			s.remove(s.order[0])
		}
	}
	return it
}

// row picks y uniformly from [1, floor(0.9*h)), or 1 when that range is empty.
func (s *Scheduler) row(h int) int {
	hi := int(float64(h) * usableHeight)
	if hi <= 1 {
		return 1
	}
	return 1 + s.rng.IntN(hi-1)
}

// duration picks uniformly from [MinDuration, MaxDuration).
func (s *Scheduler) duration() time.Duration {
	lo, hi := s.settings.MinDuration, s.settings.MaxDuration
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.rng.Int64N(int64(hi-lo)))
}

// Expire removes the item if its lifetime has ended. It reports whether the
// item was removed; an unknown or not-yet-due item is left alone.
func (s *Scheduler) Expire(id NodeID, now time.Time) bool {
	it, ok := s.items[id]
	if !ok || !it.Due(now) {
		return false
	}
	s.remove(id)
	return true
}

// Sweep removes every due item and returns how many were removed.
func (s *Scheduler) Sweep(now time.Time) int {
	var due []NodeID
	for _, id := range s.order {
		if s.items[id].Due(now) {
			due = append(due, id)
		}
	}
	for _, id := range due {
		s.remove(id)
	}
	return len(due)
}

// Clear removes every item regardless of lifetime.
func (s *Scheduler) Clear() int {
	n := len(s.order)
	for len(s.order) > 0 {
		s.remove(s.order[0])
	}
	return n
}

func (s *Scheduler) remove(id NodeID) {
	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.surface.RemoveNode(id)
}

// HitTest returns the topmost (newest) item under (x, y), or nil.
func (s *Scheduler) HitTest(x, y int, now time.Time) *Item {
	for i := len(s.order) - 1; i >= 0; i-- {
		it := s.items[s.order[i]]
		if it.Contains(x, y, now) {
			return it
		}
	}
	return nil
}

// Press handles a pointer press. It returns a URL to open now, which only
// happens for a press on the link span of a click-mode item.
func (s *Scheduler) Press(x, y int, now time.Time) string {
	it := s.HitTest(x, y, now)
	if it == nil {
		return ""
	}
	switch it.Mode {
	case OpenClick:
		if it.Target != "" && it.OnLink(x, y, now) {
			it.gesture = GestureFired
			return it.Target
		}
	case OpenRelease:
		it.gesture = GesturePressed
	}
	return ""
}

// Release handles a pointer release. A release inside an item that was
// pressed fires it and returns its target. Every other pressed item returns
// to idle.
func (s *Scheduler) Release(x, y int, now time.Time) string {
	var url string
	if it := s.HitTest(x, y, now); it != nil && it.gesture == GesturePressed && it.Target != "" {
		it.gesture = GestureFired
		url = it.Target
	}
	s.Cancel()
	return url
}

// Cancel returns every pressed item to idle.
func (s *Scheduler) Cancel() {
	for _, it := range s.items {
		if it.gesture == GesturePressed {
			it.gesture = GestureIdle
		}
	}
}
