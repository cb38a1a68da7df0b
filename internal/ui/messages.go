// Package ui provides the Bubble Tea TUI for marquee.
package ui

import (
	"time"

	"github.com/abelbrown/marquee/internal/auth"
	"github.com/abelbrown/marquee/internal/display"
	"github.com/abelbrown/marquee/internal/feed"
	"github.com/abelbrown/marquee/internal/stream"
)

// PostAccepted is sent for every post that passed intake.
type PostAccepted struct {
	Event feed.NormalizedEvent
}

// SessionStateMsg is sent when a subscription changes state.
type SessionStateMsg struct {
	Kind  feed.Kind
	State stream.State
	Err   error
}

// ProfileLoaded is sent when the startup login finishes.
type ProfileLoaded struct {
	Profile auth.Profile
	Err     error
}

// PrefsApplied is sent when changed preferences were saved and applied.
type PrefsApplied struct {
	Prefs Prefs
	Err   error
}

// ErrMsg carries a failure from a background command.
type ErrMsg struct {
	Err error
}

// itemExpired fires when an item's lifetime should have ended.
type itemExpired struct {
	ID display.NodeID
}

// frameTick drives animation and the expiry sweep.
type frameTick time.Time
