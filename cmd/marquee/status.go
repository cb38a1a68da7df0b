package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/abelbrown/marquee/internal/config"
	"github.com/abelbrown/marquee/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored account and stream settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()

			var acct *store.Account
			a, err := st.LoadAccount()
			switch {
			case err == nil:
				acct = &a
			case !errors.Is(err, store.ErrNoCredentials):
				return err
			}

			writeStatusTable(cmd.OutOrStdout(), acct, cfg)
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List every config key and its effective value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", path)
			return writeConfigTable(cmd.OutOrStdout(), cfg)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a config key and save the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			// No ApplyEnv: overrides must not reach the file.
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			cfg.Normalize()
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			v, _ := cfg.Get(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], v)
			return nil
		},
	}
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true
	return tw
}

func writeConfigTable(w io.Writer, cfg *config.Config) error {
	tw := newTable(w)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 60},
	})
	tw.AppendHeader(table.Row{"Key", "Value"})

	for _, key := range config.Keys() {
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		tw.AppendRow(table.Row{key, v})
	}

	_ = tw.Render()
	return nil
}

func writeStatusTable(w io.Writer, acct *store.Account, cfg *config.Config) {
	tw := newTable(w)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 60},
	})
	tw.AppendHeader(table.Row{"Item", "Value"})

	if acct == nil {
		tw.AppendRow(table.Row{"account", "(not logged in)"})
	} else {
		name := acct.Profile.ScreenName
		if name != "" {
			name = "@" + name
		} else {
			name = "(unknown)"
		}
		tw.AppendRow(table.Row{"account", name})
		if acct.Profile.Name != "" {
			tw.AppendRow(table.Row{"name", acct.Profile.Name})
		}
		tw.AppendRow(table.Row{"access token", maskToken(acct.Credentials.AccessToken)})
		verified := "never"
		if !acct.VerifiedAt.IsZero() {
			verified = acct.VerifiedAt.Format(time.RFC3339)
		}
		tw.AppendRow(table.Row{"verified", verified})
	}

	tw.AppendSeparator()
	endpoint := cfg.Upstream.Endpoint
	if endpoint == "" {
		endpoint = "(not set)"
	}
	tw.AppendRow(table.Row{"endpoint", endpoint})
	tw.AppendRow(table.Row{"locale", cfg.Feed.Locale})
	tw.AppendRow(table.Row{"timeline", onOff(cfg.Feed.Timeline)})
	filter := cfg.Feed.FilterWord
	if filter == "" {
		filter = "(none)"
	}
	tw.AppendRow(table.Row{"filter word", filter})
	tw.AppendRow(table.Row{"speech", onOff(cfg.Speech.Enabled)})
	tw.AppendRow(table.Row{"open mode", cfg.Display.OpenMode})

	_ = tw.Render()
}

// maskToken keeps the first four characters of a token.
func maskToken(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return "****"
	}
	return string(r[:4]) + "****"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
