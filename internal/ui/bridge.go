package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/marquee/internal/feed"
	"github.com/abelbrown/marquee/internal/stream"
)

// Sender is the part of *tea.Program the Bridge needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge implements controller.Presenter by forwarding to a running
// program, which hands the messages to Update on the foreground goroutine.
// Messages sent before Attach are dropped.
type Bridge struct {
	mu sync.RWMutex
	p  Sender
}

// Attach sets the program that receives messages.
func (b *Bridge) Attach(p Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.p = p
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.RLock()
	p := b.p
	b.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// Present forwards an accepted post.
func (b *Bridge) Present(ev feed.NormalizedEvent) {
	b.send(PostAccepted{Event: ev})
}

// SessionState forwards a session state change.
func (b *Bridge) SessionState(kind feed.Kind, state stream.State, err error) {
	b.send(SessionStateMsg{Kind: kind, State: state, Err: err})
}
