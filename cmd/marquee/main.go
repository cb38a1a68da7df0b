// Command marquee streams posts from an account's timeline and an optional
// keyword filter and scrolls them across the terminal.
//
// Usage:
//
//	marquee                 Same as "marquee run"
//	marquee run             Start the TUI
//	marquee login           Verify and store access tokens
//	marquee logout          Forget the stored access tokens
//	marquee status          Show the stored account and stream settings
//	marquee config show     List every config key
//	marquee config set k v  Change a config key
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/marquee/internal/config"
	"github.com/abelbrown/marquee/internal/store"
)

var (
	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:           "marquee",
	Short:         "Scroll a live post stream across the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default: <user config dir>/marquee/config.toml)")
	flags.StringVar(&dbPath, "db", "", "account database (default: ~/.marquee/marquee.db)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newConfigCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "marquee: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfigPath returns --config or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.ConfigPath()
}

// loadConfig reads the config file and applies .env and environment
// overrides on top of it.
func loadConfig() (*config.Config, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	config.LoadEnvFiles()
	cfg.ApplyEnv()
	return cfg, path, nil
}

// openStore opens --db or the default account database.
func openStore() (*store.Store, error) {
	path := dbPath
	if path == "" {
		p, err := store.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return store.Open(path)
}
