package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abelbrown/marquee/internal/auth"
	"github.com/abelbrown/marquee/internal/store"
)

func newLoginCmd() *cobra.Command {
	var screenName string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify and store access tokens",
		Long: `Prompts for the access token and secret, verifies them against
upstream.verify_url and stores them in the account database. The consumer
key and secret come from the config file or MARQUEE_CONSUMER_KEY and
MARQUEE_CONSUMER_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Upstream.ConsumerKey == "" || cfg.Upstream.ConsumerSecret == "" {
				return errors.New("consumer key and secret are not configured (upstream.consumer_key, upstream.consumer_secret)")
			}

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.ErrOrStderr()
			tty := -1
			if cmd.InOrStdin() == os.Stdin && isTerminal(os.Stdin) {
				tty = int(os.Stdin.Fd())
			}
			token, err := readSecret(in, out, tty, "Access token: ")
			if err != nil {
				return err
			}
			secret, err := readSecret(in, out, tty, "Access token secret: ")
			if err != nil {
				return err
			}

			creds := auth.Credentials{
				ConsumerKey:       cfg.Upstream.ConsumerKey,
				ConsumerSecret:    cfg.Upstream.ConsumerSecret,
				AccessToken:       token,
				AccessTokenSecret: secret,
			}

			acct := store.Account{Credentials: creds, Profile: auth.Profile{ScreenName: screenName}}
			if cfg.Upstream.VerifyURL != "" {
				v := auth.NewVerifier(auth.VerifierConfig{URL: cfg.Upstream.VerifyURL, MaxRetries: 3})
				sess, err := v.Verify(cmd.Context(), creds)
				if err != nil {
					return err
				}
				acct.Profile = sess.Profile()
				acct.VerifiedAt = time.Now()
			} else {
				fmt.Fprintln(out, "warning: upstream.verify_url is not set, storing tokens without verification")
			}

			st, err := openStore()
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()

			if err := st.SaveAccount(acct); err != nil {
				return err
			}

			name := acct.Profile.ScreenName
			if name == "" {
				name = "(unknown)"
			} else {
				name = "@" + name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&screenName, "screen-name", "", "screen name to record when no verify URL is configured")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()

			if err := st.ClearAccount(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// readSecret prompts on out and reads one line. When tty is a terminal file
// descriptor the input is read from it without echo; pass -1 to read from in.
func readSecret(in *bufio.Reader, out io.Writer, tty int, prompt string) (string, error) {
	fmt.Fprint(out, prompt)

	if tty >= 0 {
		b, err := term.ReadPassword(tty)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return requireValue(string(b))
	}

	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return requireValue(line)
}

func requireValue(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty input")
	}
	return s, nil
}
