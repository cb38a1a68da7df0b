package config

import (
	"fmt"
	"sort"
	"strconv"
)

// field binds a dotted key to a config value.
type field struct {
	get    func(c *Config) string
	set    func(c *Config, v string) error
	secret bool
}

var fields = map[string]field{
	"upstream.endpoint":        strField(func(c *Config) *string { return &c.Upstream.Endpoint }),
	"upstream.timeline_path":   strField(func(c *Config) *string { return &c.Upstream.TimelinePath }),
	"upstream.filter_path":     strField(func(c *Config) *string { return &c.Upstream.FilterPath }),
	"upstream.verify_url":      strField(func(c *Config) *string { return &c.Upstream.VerifyURL }),
	"upstream.consumer_key":    strField(func(c *Config) *string { return &c.Upstream.ConsumerKey }),
	"upstream.consumer_secret": secretField(func(c *Config) *string { return &c.Upstream.ConsumerSecret }),
	"upstream.idle_timeout_ms": intField(func(c *Config) *int { return &c.Upstream.IdleTimeoutMs }),

	"feed.locale":      strField(func(c *Config) *string { return &c.Feed.Locale }),
	"feed.timeline":    boolField(func(c *Config) *bool { return &c.Feed.Timeline }),
	"feed.filter_word": strField(func(c *Config) *string { return &c.Feed.FilterWord }),

	"display.min_duration_ms": intField(func(c *Config) *int { return &c.Display.MinDurationMs }),
	"display.max_duration_ms": intField(func(c *Config) *int { return &c.Display.MaxDurationMs }),
	"display.open_mode":       enumField(func(c *Config) *string { return &c.Display.OpenMode }, "off", "click", "release"),
	"display.permalink_base":  strField(func(c *Config) *string { return &c.Display.PermalinkBase }),
	"display.newline":         enumField(func(c *Config) *string { return &c.Display.Newline }, "space", "remove"),
	"display.max_items":       intField(func(c *Config) *int { return &c.Display.MaxItems }),

	"speech.enabled": boolField(func(c *Config) *bool { return &c.Speech.Enabled }),
	"speech.addr":    strField(func(c *Config) *string { return &c.Speech.Addr }),

	"reconnect.base_delay_ms": intField(func(c *Config) *int { return &c.Reconnect.BaseDelayMs }),
	"reconnect.max_delay_ms":  intField(func(c *Config) *int { return &c.Reconnect.MaxDelayMs }),
	"reconnect.jitter":        floatField(func(c *Config) *float64 { return &c.Reconnect.Jitter }),
	"reconnect.max_retries":   intField(func(c *Config) *int { return &c.Reconnect.MaxRetries }),
	"reconnect.per_minute":    intField(func(c *Config) *int { return &c.Reconnect.PerMinute }),

	"metrics.listen": strField(func(c *Config) *string { return &c.Metrics.Listen }),

	"log.level": strField(func(c *Config) *string { return &c.Log.Level }),
	"log.dir":   strField(func(c *Config) *string { return &c.Log.Dir }),
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key. Secrets are masked.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown key %q", key)
	}
	v := f.get(c)
	if f.secret && v != "" {
		return "********", nil
	}
	return v, nil
}

// Set parses value and assigns it to key.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown key %q", key)
	}
	if err := f.set(c, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func strField(ptr func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error { *ptr(c) = v; return nil },
	}
}

func secretField(ptr func(*Config) *string) field {
	f := strField(ptr)
	f.secret = true
	return f
}

func enumField(ptr func(*Config) *string, allowed ...string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			for _, a := range allowed {
				if v == a {
					*ptr(c) = v
					return nil
				}
			}
			return fmt.Errorf("must be one of %v", allowed)
		},
	}
}

func intField(ptr func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*ptr(c) = n
			return nil
		},
	}
}

func boolField(ptr func(*Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*ptr(c) = b
			return nil
		},
	}
}

func floatField(ptr func(*Config) *float64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatFloat(*ptr(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			*ptr(c) = f
			return nil
		},
	}
}
