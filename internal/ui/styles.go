package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarning   = lipgloss.Color("214") // Orange
)

// ItemStyle for the label of a scrolling item. No padding: the canvas lays
// text out cell by cell.
var ItemStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255"))

// LinkStyle for the link span of an item.
var LinkStyle = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Underline(true)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// StateActive, StateReconnecting and StateOff color session indicators.
var (
	StateActive       = lipgloss.NewStyle().Foreground(colorSuccess)
	StateReconnecting = lipgloss.NewStyle().Foreground(colorWarning)
	StateOff          = lipgloss.NewStyle().Foreground(colorSecondary)
)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// FilterBar style for the filter word input bar.
var FilterBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("240")).
	Padding(0, 1)

// FilterBarPrompt style for the "/" prompt.
var FilterBarPrompt = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)
