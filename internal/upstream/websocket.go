// Package upstream implements stream.Source over a websocket connection to
// the streaming endpoint.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/abelbrown/marquee/internal/auth"
	"github.com/abelbrown/marquee/internal/feed"
	"github.com/abelbrown/marquee/internal/logging"
	"github.com/abelbrown/marquee/internal/stream"
)

const (
	maxFrameSize       = 512 * 1024
	defaultIdleTimeout = 90 * time.Second
	handshakeTimeout   = 30 * time.Second
)

// Config locates the streaming endpoints.
type Config struct {
	Endpoint     string // e.g. wss://stream.example.com
	TimelinePath string
	FilterPath   string

	// IdleTimeout closes a connection that has seen no frame, ping or pong
	// for this long.
	IdleTimeout time.Duration
}

// Source dials one websocket per subscription.
type Source struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *log.Logger
}

var _ stream.Source = (*Source)(nil)

// New creates a Source.
func New(cfg Config) *Source {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.TimelinePath == "" {
		cfg.TimelinePath = "/user"
	}
	if cfg.FilterPath == "" {
		cfg.FilterPath = "/filter"
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout

	return &Source{
		cfg:    cfg,
		dialer: &dialer,
		logger: logging.WithPrefix("upstream"),
	}
}

// URL returns the websocket URL for q.
func (s *Source) URL(q stream.Query) (string, error) {
	base := strings.TrimRight(s.cfg.Endpoint, "/")
	if base == "" {
		return "", errors.New("upstream endpoint not configured")
	}

	switch q.Kind {
	case feed.KindTimeline:
		return base + s.cfg.TimelinePath, nil
	case feed.KindKeyword:
		if q.Keyword == "" {
			return "", stream.ErrEmptyKeyword
		}
		return base + s.cfg.FilterPath + "?track=" + url.QueryEscape(q.Keyword), nil
	default:
		return "", fmt.Errorf("unknown subscription kind %q", q.Kind)
	}
}

// Subscribe dials the endpoint for q using the session's headers.
func (s *Source) Subscribe(ctx context.Context, sess *auth.Session, q stream.Query) (stream.Subscription, error) {
	if !sess.Valid() {
		return nil, stream.ErrNoSession
	}
	wsURL, err := s.URL(q)
	if err != nil {
		return nil, err
	}

	conn, resp, err := s.dialer.DialContext(ctx, wsURL, sess.Header())
	if err != nil {
		if resp != nil {
			if authErr := auth.StatusError(resp.StatusCode); authErr != nil {
				return nil, fmt.Errorf("websocket handshake (status: %d): %w", resp.StatusCode, authErr)
			}
			return nil, fmt.Errorf("websocket handshake (status: %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	s.logger.Debug("connected", "kind", q.Kind, "keyword", q.Keyword)
	return newSubscription(conn, s.cfg.IdleTimeout, s.logger), nil
}

// subscription reads JSON frames from one websocket connection.
type subscription struct {
	conn   *websocket.Conn
	idle   time.Duration
	logger *log.Logger
	once   sync.Once
}

func newSubscription(conn *websocket.Conn, idle time.Duration, logger *log.Logger) *subscription {
	sub := &subscription{conn: conn, idle: idle, logger: logger}

	conn.SetReadLimit(maxFrameSize)
	sub.extend()
	conn.SetPongHandler(func(string) error {
		sub.extend()
		return nil
	})
	conn.SetPingHandler(func(data string) error {
		sub.extend()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	return sub
}

func (s *subscription) extend() {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.idle))
}

// Next blocks until a decodable frame arrives. Frames that are not valid
// events are skipped; only connection failures are returned. ctx is honoured
// through Close, which the session arranges on cancellation.
func (s *subscription) Next(ctx context.Context) (feed.RawEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return feed.RawEvent{}, err
		}

		_, r, err := s.conn.NextReader()
		if err != nil {
			return feed.RawEvent{}, fmt.Errorf("read frame: %w", err)
		}
		s.extend()

		var ev feed.RawEvent
		if err := json.NewDecoder(r).Decode(&ev); err != nil {
			s.logger.Debug("skipping undecodable frame", "err", err)
			continue
		}
		return ev, nil
	}
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}
