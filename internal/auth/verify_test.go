package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

var testCreds = Credentials{
	ConsumerKey:       "ck",
	ConsumerSecret:    "cs",
	AccessToken:       "at",
	AccessTokenSecret: "as",
}

func newTestVerifier(url string) *Verifier {
	return NewVerifier(VerifierConfig{
		URL:        url,
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
	})
}

func TestVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer at")
		}
		if got := r.Header.Get("X-Consumer-Key"); got != "ck" {
			t.Errorf("X-Consumer-Key = %q, want %q", got, "ck")
		}
		json.NewEncoder(w).Encode(Profile{Name: "Alice", ScreenName: "alice"})
	}))
	defer server.Close()

	sess, err := newTestVerifier(server.URL).Verify(context.Background(), testCreds)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !sess.Valid() {
		t.Error("expected a valid session")
	}
	if got := sess.Profile().ScreenName; got != "alice" {
		t.Errorf("ScreenName = %q, want %q", got, "alice")
	}
}

func TestVerifyUnauthorized(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestVerifier(server.URL).Verify(context.Background(), testCreds)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("401 should not be retried, got %d calls", got)
	}
}

func TestVerifyRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Profile{Name: "Alice", ScreenName: "alice"})
	}))
	defer server.Close()

	sess, err := newTestVerifier(server.URL).Verify(context.Background(), testCreds)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if sess.Profile().Name != "Alice" {
		t.Errorf("Name = %q", sess.Profile().Name)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestVerifyIncomplete(t *testing.T) {
	_, err := newTestVerifier("http://unused.invalid").Verify(context.Background(), Credentials{AccessToken: "x"})
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

func TestSessionValid(t *testing.T) {
	var nilSession *Session
	if nilSession.Valid() {
		t.Error("nil session should not be valid")
	}
	if nilSession.AccessToken() != "" {
		t.Error("nil session should have no token")
	}

	sess, err := NewSession(testCreds, Profile{ScreenName: "alice"})
	if err != nil {
		t.Fatalf("NewSession() error: %v", err)
	}
	if !sess.Valid() {
		t.Error("expected valid session")
	}
	if sess.AccessToken() != "at" {
		t.Errorf("AccessToken = %q", sess.AccessToken())
	}
}

func TestStatusError(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		if !errors.Is(StatusError(code), ErrUnauthorized) {
			t.Errorf("StatusError(%d) should be ErrUnauthorized", code)
		}
	}
	if StatusError(http.StatusOK) != nil {
		t.Error("StatusError(200) should be nil")
	}
}
