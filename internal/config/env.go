package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads .env files from the working directory without
// overriding variables already set in the process environment. It returns
// the files that were loaded.
func LoadEnvFiles(files ...string) []string {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var loaded []string
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			continue
		}
		loaded = append(loaded, file)
	}
	return loaded
}

// ApplyEnv overrides config values from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MARQUEE_CONSUMER_KEY"); v != "" {
		c.Upstream.ConsumerKey = v
	}
	if v := os.Getenv("MARQUEE_CONSUMER_SECRET"); v != "" {
		c.Upstream.ConsumerSecret = v
	}
	if v := os.Getenv("MARQUEE_ENDPOINT"); v != "" {
		c.Upstream.Endpoint = v
	}
	if v := os.Getenv("MARQUEE_VERIFY_URL"); v != "" {
		c.Upstream.VerifyURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
