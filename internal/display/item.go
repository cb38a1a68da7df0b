// Package display places accepted posts on a rendering surface, animates them
// right to left and removes them when their lifetime ends.
//
// A Scheduler is not safe for concurrent use. It is meant to be driven from
// the single goroutine that owns the surface (the Bubble Tea Update loop).
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/marquee/internal/feed"
)

// NodeID identifies a node on the surface.
type NodeID string

// Span is a run of text within a node. Link spans are rendered and hit-tested
// separately from the label.
type Span struct {
	Text string
	Link bool
}

// Node is what the surface draws. Width is in terminal cells.
type Node struct {
	ID     NodeID
	Spans  []Span
	Width  int
	Height int
}

// Surface is the rendering target. Coordinates are cells with the origin at
// the top left.
type Surface interface {
	Size() (w, h int)
	AddNode(n Node) NodeID
	SetVerticalOffset(id NodeID, y int)
	Animate(id NodeID, fromX, toX int, start time.Time, d time.Duration)
	RemoveNode(id NodeID)
}

// OpenMode selects what a pointer gesture on an item opens.
type OpenMode int

const (
	// OpenOff ignores pointer input.
	OpenOff OpenMode = iota
	// OpenClick opens the embedded link as soon as its span is pressed.
	OpenClick
	// OpenRelease opens the post's permalink on press then release inside
	// the item.
	OpenRelease
)

func (m OpenMode) String() string {
	switch m {
	case OpenClick:
		return "click"
	case OpenRelease:
		return "release"
	default:
		return "off"
	}
}

// Next cycles off, click, release.
func (m OpenMode) Next() OpenMode {
	switch m {
	case OpenOff:
		return OpenClick
	case OpenClick:
		return OpenRelease
	default:
		return OpenOff
	}
}

// ParseOpenMode parses "off", "click" or "release".
func ParseOpenMode(s string) (OpenMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return OpenOff, nil
	case "click":
		return OpenClick, nil
	case "release":
		return OpenRelease, nil
	default:
		return OpenOff, fmt.Errorf("unknown open mode %q", s)
	}
}

// Gesture is the pointer state of a single item.
type Gesture int

const (
	GestureIdle Gesture = iota
	GesturePressed
	GestureFired
)

func (g Gesture) String() string {
	switch g {
	case GesturePressed:
		return "pressed"
	case GestureFired:
		return "fired"
	default:
		return "idle"
	}
}

// Item is one post on screen. The scheduler owns it until it is removed.
type Item struct {
	ID    NodeID
	Event feed.NormalizedEvent

	Label string
	Link  string

	// Target is what a completed gesture opens: the link in click mode, the
	// permalink in release mode, empty when pointer input is off.
	Target string
	Mode   OpenMode

	Y          int
	Width      int // label plus link, in cells
	LabelWidth int
	FromX      int
	ToX        int
	Duration   time.Duration
	Born       time.Time

	gesture Gesture
}

// Gesture returns the item's pointer state.
func (it *Item) Gesture() Gesture {
	return it.gesture
}

// Deadline is the earliest time the item may be removed.
func (it *Item) Deadline() time.Time {
	return it.Born.Add(it.Duration)
}

// Due reports whether the item's lifetime has ended.
func (it *Item) Due(now time.Time) bool {
	return !now.Before(it.Deadline())
}

// X is the item's left edge at now, interpolated linearly from FromX to ToX.
func (it *Item) X(now time.Time) int {
	if it.Duration <= 0 {
		return it.ToX
	}
	elapsed := now.Sub(it.Born)
	switch {
	case elapsed <= 0:
		return it.FromX
	case elapsed >= it.Duration:
		return it.ToX
	}
	p := float64(elapsed) / float64(it.Duration)
	return it.FromX + int(float64(it.ToX-it.FromX)*p)
}

// Contains reports whether cell (x, y) lies on the item at now.
func (it *Item) Contains(x, y int, now time.Time) bool {
	if y != it.Y {
		return false
	}
	left := it.X(now)
	return x >= left && x < left+it.Width
}

// OnLink reports whether cell (x, y) lies on the item's link span at now.
func (it *Item) OnLink(x, y int, now time.Time) bool {
	if it.Link == "" || y != it.Y {
		return false
	}
	left := it.X(now) + it.LabelWidth
	return x >= left && x < it.X(now)+it.Width
}
