package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// Verifier checks credentials against the upstream account endpoint and
// returns the profile they belong to.
type Verifier struct {
	url      string
	client   *http.Client
	executor failsafe.Executor[*http.Response]
}

// VerifierConfig configures a Verifier. Zero values get defaults.
type VerifierConfig struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// NewVerifier creates a Verifier that retries transient failures
// (network errors, 429, 5xx) with exponential backoff.
func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}

	//nolint:bodyclose // *http.Response is a type parameter here
	policy := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		}).
		ReturnLastFailure().
		Build()

	return &Verifier{
		url:      cfg.URL,
		client:   &http.Client{Timeout: cfg.Timeout},
		executor: failsafe.With(policy),
	}
}

// Verify fetches the profile for creds. Rejected credentials yield an error
// wrapping ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, creds Credentials) (*Session, error) {
	unverified, err := NewSession(creds, Profile{})
	if err != nil {
		return nil, err
	}
	if v.url == "" {
		return nil, errors.New("verify url not configured")
	}

	resp, err := v.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header = unverified.Header()
		req.Header.Set("Accept", "application/json")
		resp, err := v.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			// Drain so the connection can be reused by the next attempt.
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
	defer resp.Body.Close()

	if authErr := StatusError(resp.StatusCode); authErr != nil {
		return nil, fmt.Errorf("verify credentials: %w", authErr)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verify credentials: HTTP %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	return NewSession(creds, profile)
}
