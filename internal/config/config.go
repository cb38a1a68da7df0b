package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the persistent application configuration
type Config struct {
	Upstream  UpstreamConfig  `toml:"upstream"`
	Feed      FeedConfig      `toml:"feed"`
	Display   DisplayConfig   `toml:"display"`
	Speech    SpeechConfig    `toml:"speech"`
	Reconnect ReconnectConfig `toml:"reconnect"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Log       LogConfig       `toml:"log"`
}

// UpstreamConfig locates the streaming and account endpoints.
type UpstreamConfig struct {
	Endpoint       string `toml:"endpoint"` // websocket base, e.g. wss://stream.example.com
	TimelinePath   string `toml:"timeline_path"`
	FilterPath     string `toml:"filter_path"`
	VerifyURL      string `toml:"verify_url"`
	ConsumerKey    string `toml:"consumer_key"`
	ConsumerSecret string `toml:"consumer_secret"`
	IdleTimeoutMs  int    `toml:"idle_timeout_ms"`
}

// FeedConfig selects what is shown.
type FeedConfig struct {
	Locale     string `toml:"locale"` // posts whose author language differs are dropped
	Timeline   bool   `toml:"timeline"`
	FilterWord string `toml:"filter_word"`
}

// DisplayConfig controls the scrolling items.
type DisplayConfig struct {
	MinDurationMs int    `toml:"min_duration_ms"`
	MaxDurationMs int    `toml:"max_duration_ms"`
	OpenMode      string `toml:"open_mode"` // "off", "click" or "release"
	PermalinkBase string `toml:"permalink_base"`
	Newline       string `toml:"newline"` // "space" or "remove"
	MaxItems      int    `toml:"max_items"` // 0 means unbounded
}

// SpeechConfig points at a local speech daemon.
type SpeechConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// ReconnectConfig bounds automatic reconnection.
type ReconnectConfig struct {
	BaseDelayMs int     `toml:"base_delay_ms"`
	MaxDelayMs  int     `toml:"max_delay_ms"`
	Jitter      float64 `toml:"jitter"`
	MaxRetries  int     `toml:"max_retries"` // -1 retries forever
	PerMinute   int     `toml:"per_minute"`  // shared cap across both subscriptions
}

// MetricsConfig enables the Prometheus listener when Listen is set.
type MetricsConfig struct {
	Listen string `toml:"listen"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"` // defaults to ~/.marquee/logs
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			TimelinePath:  "/user",
			FilterPath:    "/filter",
			IdleTimeoutMs: 90000,
		},
		Feed: FeedConfig{
			Locale:   "ja",
			Timeline: true,
		},
		Display: DisplayConfig{
			MinDurationMs: 9000,
			MaxDurationMs: 13000,
			OpenMode:      "release",
			PermalinkBase: "https://twitter.com",
			Newline:       "space",
			MaxItems:      200,
		},
		Speech: SpeechConfig{
			Addr: "127.0.0.1:50001",
		},
		Reconnect: ReconnectConfig{
			BaseDelayMs: 1000,
			MaxDelayMs:  60000,
			Jitter:      0.25,
			MaxRetries:  -1,
			PerMinute:   30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Normalize replaces missing or out-of-range values with defaults.
func (c *Config) Normalize() {
	d := Default()

	if c.Upstream.TimelinePath == "" {
		c.Upstream.TimelinePath = d.Upstream.TimelinePath
	}
	if c.Upstream.FilterPath == "" {
		c.Upstream.FilterPath = d.Upstream.FilterPath
	}
	if c.Upstream.IdleTimeoutMs <= 0 {
		c.Upstream.IdleTimeoutMs = d.Upstream.IdleTimeoutMs
	}

	if c.Display.MinDurationMs <= 0 {
		c.Display.MinDurationMs = d.Display.MinDurationMs
	}
	if c.Display.MaxDurationMs <= c.Display.MinDurationMs {
		c.Display.MaxDurationMs = c.Display.MinDurationMs + 1
	}
	switch c.Display.OpenMode {
	case "off", "click", "release":
	default:
		c.Display.OpenMode = d.Display.OpenMode
	}
	switch c.Display.Newline {
	case "space", "remove":
	default:
		c.Display.Newline = d.Display.Newline
	}
	if c.Display.PermalinkBase == "" {
		c.Display.PermalinkBase = d.Display.PermalinkBase
	}
	if c.Display.MaxItems < 0 {
		c.Display.MaxItems = d.Display.MaxItems
	}

	if c.Speech.Addr == "" {
		c.Speech.Addr = d.Speech.Addr
	}

	if c.Reconnect.BaseDelayMs <= 0 {
		c.Reconnect.BaseDelayMs = d.Reconnect.BaseDelayMs
	}
	if c.Reconnect.MaxDelayMs < c.Reconnect.BaseDelayMs {
		c.Reconnect.MaxDelayMs = c.Reconnect.BaseDelayMs
	}
	if c.Reconnect.Jitter < 0 || c.Reconnect.Jitter > 1 {
		c.Reconnect.Jitter = d.Reconnect.Jitter
	}
	if c.Reconnect.MaxRetries < -1 {
		c.Reconnect.MaxRetries = -1
	}
	if c.Reconnect.PerMinute <= 0 {
		c.Reconnect.PerMinute = d.Reconnect.PerMinute
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Duration helpers.

func (c UpstreamConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMs) * time.Millisecond
}

func (c DisplayConfig) MinDuration() time.Duration {
	return time.Duration(c.MinDurationMs) * time.Millisecond
}

func (c DisplayConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationMs) * time.Millisecond
}

func (c ReconnectConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

func (c ReconnectConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "marquee"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from path. A missing file yields defaults. Keys absent
// from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes config to path with restrictive permissions; it may hold the
// consumer secret.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}
