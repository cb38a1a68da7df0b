package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	Filter   key.Binding
	Timeline key.Binding
	Speech   key.Binding
	OpenMode key.Binding
	Clear    key.Binding
	Submit   key.Binding
	Escape   key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Timeline: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "timeline")),
	Speech:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "speech")),
	OpenMode: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open mode")),
	Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	Submit:   key.NewBinding(key.WithKeys("enter")),
	Escape:   key.NewBinding(key.WithKeys("esc", "ctrl+c")),
}

// hints are shown in the status bar, in order.
var hints = []key.Binding{keys.Filter, keys.Timeline, keys.Speech, keys.OpenMode, keys.Clear, keys.Quit}
