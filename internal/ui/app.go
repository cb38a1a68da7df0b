package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"

	"github.com/abelbrown/marquee/internal/auth"
	"github.com/abelbrown/marquee/internal/display"
	"github.com/abelbrown/marquee/internal/feed"
	"github.com/abelbrown/marquee/internal/stream"
)

const frameInterval = 50 * time.Millisecond

func init() {
	// pkg/browser echoes the launcher's output, which would corrupt the screen.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Opener opens a URL outside the terminal.
type Opener func(url string) error

// Prefs are the settings the user can change from the TUI.
type Prefs struct {
	Timeline   bool
	Speech     bool
	FilterWord string
	OpenMode   display.OpenMode

	// Seq increases with every apply. ApplyPrefs may drop a Prefs whose
	// Seq is not newer than the last one it applied.
	Seq uint64
}

// Commands connect the App to the rest of the program. Each returns a Cmd
// that runs off the Update goroutine.
type Commands struct {
	// Connect loads the stored login and starts streaming. It reports back
	// with ProfileLoaded.
	Connect func() tea.Cmd

	// ApplyPrefs persists prefs and reconfigures the feed. It reports back
	// with PrefsApplied.
	ApplyPrefs func(Prefs) tea.Cmd
}

// Option configures an App.
type Option func(*App)

// WithOpener replaces the browser opener.
func WithOpener(open Opener) Option {
	return func(a *App) { a.open = open }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithSchedulerOptions passes options through to the display scheduler.
func WithSchedulerOptions(opts ...display.Option) Option {
	return func(a *App) { a.schedOpts = append(a.schedOpts, opts...) }
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold the controller. Posts and state arrive as
// messages; changes leave through Commands.
type App struct {
	cmds      Commands
	open      Opener
	now       func() time.Time
	schedOpts []display.Option

	canvas *Canvas
	sched  *display.Scheduler

	prefs   Prefs
	profile auth.Profile
	states  map[feed.Kind]stream.State

	input   textinput.Model
	editing bool
	spinner spinner.Model

	err    error
	width  int
	height int
	ready  bool
}

// NewApp creates the App. settings.OpenMode is taken from prefs.
func NewApp(cmds Commands, prefs Prefs, settings display.Settings, opts ...Option) App {
	a := App{
		cmds:   cmds,
		open:   browser.OpenURL,
		now:    time.Now,
		prefs:  prefs,
		states: make(map[feed.Kind]stream.State),
	}
	for _, opt := range opts {
		opt(&a)
	}

	settings.OpenMode = prefs.OpenMode
	a.canvas = NewCanvas(0, 0)
	a.sched = display.New(a.canvas, settings, a.schedOpts...)

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.PromptStyle = FilterBarPrompt
	ti.Placeholder = "filter word (empty to stop)"
	ti.CharLimit = 60
	a.input = ti

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StateReconnecting
	a.spinner = s

	return a
}

// Init starts the login and the animation clock.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{frame(), a.spinner.Tick}
	if a.cmds.Connect != nil {
		cmds = append(cmds, a.cmds.Connect())
	}
	return tea.Batch(cmds...)
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameTick(t) })
}

func expireAfter(it *display.Item) tea.Cmd {
	id := it.ID
	return tea.Tick(it.Duration, func(time.Time) tea.Msg { return itemExpired{ID: id} })
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		// The bottom row belongs to the status bar.
		a.canvas.Resize(msg.Width, msg.Height-1)
		a.input.Width = max(msg.Width-6, 1)
		return a, nil

	case tea.KeyMsg:
		if a.editing {
			return a.handleEditKey(msg)
		}
		return a.handleKeyMsg(msg)

	case tea.MouseMsg:
		return a.handleMouse(msg)

	case PostAccepted:
		it := a.sched.Present(msg.Event, a.now())
		return a, expireAfter(it)

	case itemExpired:
		a.sched.Expire(msg.ID, a.now())
		return a, nil

	case frameTick:
		a.sched.Sweep(a.now())
		return a, frame()

	case SessionStateMsg:
		a.states[msg.Kind] = msg.State
		if msg.State == stream.StateFailed && msg.Err != nil {
			a.err = fmt.Errorf("%s stream stopped: %w", msg.Kind, msg.Err)
		}
		return a, nil

	case ProfileLoaded:
		a.profile = msg.Profile
		if msg.Err != nil {
			a.err = msg.Err
		}
		return a, nil

	case PrefsApplied:
		if msg.Err != nil {
			a.err = msg.Err
		}
		return a, nil

	case ErrMsg:
		a.err = msg.Err
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// handleKeyMsg processes keyboard input outside the filter editor.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key dismisses the error bar.
	a.err = nil

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, keys.Filter):
		a.editing = true
		a.input.SetValue(a.prefs.FilterWord)
		a.input.CursorEnd()
		return a, a.input.Focus()

	case key.Matches(msg, keys.Timeline):
		a.prefs.Timeline = !a.prefs.Timeline
		cmd := a.applyPrefs()
		return a, cmd

	case key.Matches(msg, keys.Speech):
		a.prefs.Speech = !a.prefs.Speech
		cmd := a.applyPrefs()
		return a, cmd

	case key.Matches(msg, keys.OpenMode):
		a.prefs.OpenMode = a.prefs.OpenMode.Next()
		set := a.sched.Settings()
		set.OpenMode = a.prefs.OpenMode
		a.sched.SetSettings(set)
		cmd := a.applyPrefs()
		return a, cmd

	case key.Matches(msg, keys.Clear):
		a.sched.Clear()
		return a, nil
	}

	return a, nil
}

// handleEditKey processes keyboard input while the filter editor is open.
func (a App) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		a.editing = false
		a.input.Blur()
		return a, nil

	case key.Matches(msg, keys.Submit):
		a.editing = false
		a.input.Blur()
		word := strings.TrimSpace(a.input.Value())
		if word == a.prefs.FilterWord {
			return a, nil
		}
		a.prefs.FilterWord = word
		cmd := a.applyPrefs()
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// handleMouse routes left-button gestures to the scheduler.
func (a App) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	now := a.now()

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return a, nil
		}
		if url := a.sched.Press(msg.X, msg.Y, now); url != "" {
			return a, a.openCmd(url)
		}
	case tea.MouseActionRelease:
		if url := a.sched.Release(msg.X, msg.Y, now); url != "" {
			return a, a.openCmd(url)
		}
	}
	return a, nil
}

// applyPrefs stamps the current prefs with the next sequence number. The
// returned Cmds run concurrently, so the receiver uses Seq to keep only the
// latest.
func (a *App) applyPrefs() tea.Cmd {
	a.prefs.Seq++
	if a.cmds.ApplyPrefs == nil {
		return nil
	}
	return a.cmds.ApplyPrefs(a.prefs)
}

func (a App) openCmd(url string) tea.Cmd {
	open := a.open
	return func() tea.Msg {
		if err := open(url); err != nil {
			return ErrMsg{Err: fmt.Errorf("open %s: %w", url, err)}
		}
		return nil
	}
}

// View renders the canvas above a one-line status bar.
func (a App) View() string {
	if !a.ready {
		return "Starting..."
	}

	var bottom string
	switch {
	case a.editing:
		bottom = FilterBar.Width(a.width).MaxHeight(1).Render(a.input.View())
	case a.err != nil:
		bottom = ErrorStyle.Width(a.width).MaxHeight(1).Render("Error: " + a.err.Error())
	default:
		bottom = a.statusBar()
	}

	canvas := a.canvas.Render(a.now())
	if canvas == "" {
		return bottom
	}
	return canvas + "\n" + bottom
}

func (a App) statusBar() string {
	var parts []string

	if a.profile.ScreenName != "" {
		parts = append(parts, StatusBarKey.Render("@"+a.profile.ScreenName))
	} else {
		parts = append(parts, StatusBarText.Render("not logged in"))
	}

	if a.prefs.Timeline {
		parts = append(parts, a.indicator(feed.KindTimeline, "timeline"))
	} else {
		parts = append(parts, StateOff.Render("○ timeline off"))
	}
	if a.prefs.FilterWord != "" {
		parts = append(parts, a.indicator(feed.KindKeyword, fmt.Sprintf("%q", a.prefs.FilterWord)))
	}

	speech := "off"
	if a.prefs.Speech {
		speech = "on"
	}
	parts = append(parts,
		StatusBarText.Render("speech "+speech),
		StatusBarText.Render("open "+a.prefs.OpenMode.String()),
		StatusBarText.Render(fmt.Sprintf("%d on screen", a.sched.Len())),
	)

	var help []string
	for _, b := range hints {
		h := b.Help()
		help = append(help, StatusBarKey.Render(h.Key)+" "+StatusBarText.Render(h.Desc))
	}
	parts = append(parts, strings.Join(help, " "))

	return StatusBar.Width(a.width).MaxHeight(1).Render(strings.Join(parts, " │ "))
}

func (a App) indicator(kind feed.Kind, label string) string {
	switch a.states[kind] {
	case stream.StateActive:
		return StateActive.Render("● " + label)
	case stream.StateReconnecting:
		return StateReconnecting.Render(a.spinner.View() + " " + label)
	case stream.StateFailed:
		return ErrorStyle.UnsetPadding().Render("✕ " + label)
	default:
		return StateOff.Render("○ " + label)
	}
}

// Scheduler returns the display scheduler (for testing).
func (a App) Scheduler() *display.Scheduler {
	return a.sched
}

// Prefs returns the current preferences (for testing).
func (a App) Prefs() Prefs {
	return a.prefs
}

// Err returns the error shown in the error bar, if any.
func (a App) Err() error {
	return a.err
}

// Editing reports whether the filter editor is open.
func (a App) Editing() bool {
	return a.editing
}
