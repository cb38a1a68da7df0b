// Package store provides SQLite persistence for marquee's account state.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/marquee/internal/auth"
)

// ErrNoCredentials is returned by LoadCredentials when nobody is logged in.
var ErrNoCredentials = errors.New("no stored credentials")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Account is the stored login: credentials plus the profile they were
// verified as.
type Account struct {
	Credentials auth.Credentials
	Profile     auth.Profile
	VerifiedAt  time.Time
}

// DefaultPath returns ~/.marquee/marquee.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".marquee", "marquee.db"), nil
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for file-based DBs.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	} else if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

// createTables creates the schema. The account table holds at most one row.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS account (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		consumer_key TEXT NOT NULL,
		consumer_secret TEXT NOT NULL,
		access_token TEXT NOT NULL,
		access_token_secret TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		screen_name TEXT NOT NULL DEFAULT '',
		verified_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveAccount stores the login, replacing any previous one.
func (s *Store) SaveAccount(a Account) error {
	if !a.Credentials.Complete() {
		return auth.ErrIncomplete
	}
	if a.VerifiedAt.IsZero() {
		a.VerifiedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := a.Credentials
	_, err := s.db.Exec(`
		INSERT INTO account (
			id, consumer_key, consumer_secret, access_token, access_token_secret,
			name, screen_name, verified_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			consumer_key = excluded.consumer_key,
			consumer_secret = excluded.consumer_secret,
			access_token = excluded.access_token,
			access_token_secret = excluded.access_token_secret,
			name = excluded.name,
			screen_name = excluded.screen_name,
			verified_at = excluded.verified_at
	`, c.ConsumerKey, c.ConsumerSecret, c.AccessToken, c.AccessTokenSecret,
		a.Profile.Name, a.Profile.ScreenName, a.VerifiedAt.UTC())
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// LoadAccount returns the stored login, or ErrNoCredentials.
func (s *Store) LoadAccount() (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a Account
	c := &a.Credentials
	err := s.db.QueryRow(`
		SELECT consumer_key, consumer_secret, access_token, access_token_secret,
			name, screen_name, verified_at
		FROM account WHERE id = 1
	`).Scan(&c.ConsumerKey, &c.ConsumerSecret, &c.AccessToken, &c.AccessTokenSecret,
		&a.Profile.Name, &a.Profile.ScreenName, &a.VerifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNoCredentials
	}
	if err != nil {
		return Account{}, fmt.Errorf("load account: %w", err)
	}
	return a, nil
}

// ClearAccount forgets the stored login. Clearing an empty store is not an
// error.
func (s *Store) ClearAccount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM account`); err != nil {
		return fmt.Errorf("clear account: %w", err)
	}
	return nil
}
