package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/abelbrown/marquee/internal/auth"
	"github.com/abelbrown/marquee/internal/config"
	"github.com/abelbrown/marquee/internal/controller"
	"github.com/abelbrown/marquee/internal/display"
	"github.com/abelbrown/marquee/internal/feed"
	"github.com/abelbrown/marquee/internal/logging"
	"github.com/abelbrown/marquee/internal/metrics"
	"github.com/abelbrown/marquee/internal/speech"
	"github.com/abelbrown/marquee/internal/store"
	"github.com/abelbrown/marquee/internal/stream"
	"github.com/abelbrown/marquee/internal/ui"
	"github.com/abelbrown/marquee/internal/upstream"
)

// errNotLoggedIn is shown in the TUI when no account is stored.
var errNotLoggedIn = errors.New("not logged in: run 'marquee login'")

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the scrolling display",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}
}

func runTUI(cmd *cobra.Command) error {
	if !isTerminal(os.Stdout) || !isTerminal(os.Stdin) {
		return errors.New("marquee needs an interactive terminal")
	}

	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logging.Init(cfg.Log.Dir, cfg.Log.Level); err != nil {
		return err
	}
	defer logging.Close()
	logger := logging.WithPrefix("main")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, reg); err != nil {
				logger.Error("metrics listener stopped", "addr", cfg.Metrics.Listen, "err", err)
			}
		}()
	}

	var speaker speech.Speaker = speech.Nop{}
	if cfg.Speech.Addr != "" {
		b := speech.NewBouyomi(cfg.Speech.Addr)
		defer b.Wait()
		speaker = b
	}

	source := upstream.New(upstream.Config{
		Endpoint:     cfg.Upstream.Endpoint,
		TimelinePath: cfg.Upstream.TimelinePath,
		FilterPath:   cfg.Upstream.FilterPath,
		IdleTimeout:  cfg.Upstream.IdleTimeout(),
	})

	bridge := &ui.Bridge{}
	ctrl := controller.New(controller.Options{
		Source:    source,
		Presenter: bridge,
		Speaker:   speaker,
		Metrics:   m,
		Reconnect: reconnectPolicy(cfg),
		Limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.Reconnect.PerMinute)), 1),
		Settings:  controllerSettings(cfg),
	})
	defer ctrl.Close()

	a := &runner{
		ctx:  ctx,
		path: path,
		cfg:  cfg,
		st:   st,
		ctrl: ctrl,
	}
	if cfg.Upstream.VerifyURL != "" {
		a.verifier = auth.NewVerifier(auth.VerifierConfig{URL: cfg.Upstream.VerifyURL, MaxRetries: 3})
	}

	app := ui.NewApp(ui.Commands{
		Connect:    a.connect,
		ApplyPrefs: a.applyPrefs,
	}, prefsFrom(cfg), displaySettings(cfg))

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	bridge.Attach(program)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run program: %w", err)
	}
	return nil
}

// runner holds what the TUI commands need. Its methods return tea.Cmds,
// which run off the Update goroutine, so they may block on the controller.
type runner struct {
	ctx      context.Context
	path     string
	st       *store.Store
	ctrl     *controller.FeedController
	verifier *auth.Verifier

	mu      sync.Mutex
	cfg     *config.Config
	lastSeq uint64
}

func (r *runner) connect() tea.Cmd {
	return func() tea.Msg {
		sess, err := r.session()
		if err != nil {
			return ui.ProfileLoaded{Err: err}
		}
		err = r.ctrl.OnAuthChanged(r.ctx, sess)
		return ui.ProfileLoaded{Profile: sess.Profile(), Err: err}
	}
}

// session builds an auth session from the stored account, re-verifying it
// when a verify endpoint is configured.
func (r *runner) session() (*auth.Session, error) {
	acct, err := r.st.LoadAccount()
	if errors.Is(err, store.ErrNoCredentials) {
		return nil, errNotLoggedIn
	}
	if err != nil {
		return nil, err
	}
	if r.verifier == nil {
		return auth.NewSession(acct.Credentials, acct.Profile)
	}
	sess, err := r.verifier.Verify(r.ctx, acct.Credentials)
	if err != nil {
		return nil, err
	}
	acct.Profile = sess.Profile()
	acct.VerifiedAt = time.Now()
	if err := r.st.SaveAccount(acct); err != nil {
		logging.WithPrefix("main").Warn("failed to save verified profile", "err", err)
	}
	return sess, nil
}

// applyPrefs persists p and reconfigures the controller. Applies run on
// their own goroutines and may arrive out of order: one whose Seq is not
// newer than the last applied is dropped, and r.mu is held until the
// controller has the new settings so the file and the feed agree.
func (r *runner) applyPrefs(p ui.Prefs) tea.Cmd {
	return func() tea.Msg {
		r.mu.Lock()
		defer r.mu.Unlock()

		if p.Seq <= r.lastSeq {
			return ui.PrefsApplied{Prefs: p}
		}
		r.lastSeq = p.Seq

		settings, err := r.persist(p)
		if err != nil {
			return ui.PrefsApplied{Prefs: p, Err: err}
		}
		return ui.PrefsApplied{Prefs: p, Err: r.ctrl.OnConfigChanged(r.ctx, settings)}
	}
}

// persist writes p into the config file and returns the resulting
// controller settings. The file is re-read so environment overrides are
// never written back. The caller holds r.mu.
func (r *runner) persist(p ui.Prefs) (controller.Settings, error) {
	apply := func(c *config.Config) {
		c.Feed.Timeline = p.Timeline
		c.Feed.FilterWord = p.FilterWord
		c.Speech.Enabled = p.Speech
		c.Display.OpenMode = p.OpenMode.String()
	}
	apply(r.cfg)
	settings := controllerSettings(r.cfg)

	onDisk, err := config.Load(r.path)
	if err != nil {
		return settings, err
	}
	apply(onDisk)
	if err := onDisk.Save(r.path); err != nil {
		return settings, fmt.Errorf("save config: %w", err)
	}
	return settings, nil
}

func controllerSettings(cfg *config.Config) controller.Settings {
	return controller.Settings{
		Locale:     cfg.Feed.Locale,
		Timeline:   cfg.Feed.Timeline,
		FilterWord: cfg.Feed.FilterWord,
		Newline:    feed.NewlineMode(cfg.Display.Newline),
		Speech:     cfg.Speech.Enabled,
	}
}

func displaySettings(cfg *config.Config) display.Settings {
	mode, _ := display.ParseOpenMode(cfg.Display.OpenMode)
	return display.Settings{
		MinDuration:   cfg.Display.MinDuration(),
		MaxDuration:   cfg.Display.MaxDuration(),
		OpenMode:      mode,
		PermalinkBase: cfg.Display.PermalinkBase,
		MaxItems:      cfg.Display.MaxItems,
	}
}

func prefsFrom(cfg *config.Config) ui.Prefs {
	mode, _ := display.ParseOpenMode(cfg.Display.OpenMode)
	return ui.Prefs{
		Timeline:   cfg.Feed.Timeline,
		Speech:     cfg.Speech.Enabled,
		FilterWord: cfg.Feed.FilterWord,
		OpenMode:   mode,
	}
}

func reconnectPolicy(cfg *config.Config) stream.ReconnectPolicy {
	return stream.ReconnectPolicy{
		BaseDelay:  cfg.Reconnect.BaseDelay(),
		MaxDelay:   cfg.Reconnect.MaxDelay(),
		Jitter:     cfg.Reconnect.Jitter,
		MaxRetries: cfg.Reconnect.MaxRetries,
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
