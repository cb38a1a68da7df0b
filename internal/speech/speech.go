// Package speech reads accepted posts aloud through a local speech daemon
// speaking the Bouyomi-chan TCP protocol.
package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abelbrown/marquee/internal/logging"
)

// Speaker accepts text to read aloud. Speak must not block the caller.
type Speaker interface {
	Speak(text string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Speak(string) {}

const (
	cmdTalk       int16 = 1
	defaultParam  int16 = -1
	defaultVoice  int16 = 0
	encodingUTF8  byte  = 0
	dialTimeout         = 2 * time.Second
	writeTimeout        = 2 * time.Second
	maxConcurrent       = 4
)

// Encode builds a talk frame: little-endian command, speed, tone, volume and
// voice, then the encoding byte, the payload length and the UTF-8 payload.
func Encode(text string) []byte {
	payload := []byte(text)

	var buf bytes.Buffer
	buf.Grow(15 + len(payload))
	for _, v := range []int16{cmdTalk, defaultParam, defaultParam, defaultParam, defaultVoice} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.WriteByte(encodingUTF8)
	_ = binary.Write(&buf, binary.LittleEndian, int32(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

// Bouyomi sends each utterance on a fresh TCP connection from a background
// goroutine. Failures are logged and otherwise ignored.
type Bouyomi struct {
	addr   string
	dialer net.Dialer
	logger *log.Logger
	sem    chan struct{}
	wg     sync.WaitGroup
}

// NewBouyomi creates a speaker for the daemon at addr (host:port).
func NewBouyomi(addr string) *Bouyomi {
	return &Bouyomi{
		addr:   addr,
		dialer: net.Dialer{Timeout: dialTimeout},
		logger: logging.WithPrefix("speech"),
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Speak queues text. When the daemon is slow and too many sends are in
// flight, the utterance is dropped.
func (b *Bouyomi) Speak(text string) {
	if text == "" {
		return
	}
	select {
	case b.sem <- struct{}{}:
	default:
		b.logger.Debug("dropping utterance, sender busy")
		return
	}

	b.wg.Add(1)
	go func() {
		defer func() {
			<-b.sem
			b.wg.Done()
		}()
		if err := b.send(context.Background(), text); err != nil {
			b.logger.Warn("speak failed", "addr", b.addr, "err", err)
		}
	}()
}

// Wait blocks until every queued utterance has been sent or has failed.
func (b *Bouyomi) Wait() {
	b.wg.Wait()
}

func (b *Bouyomi) send(ctx context.Context, text string) error {
	conn, err := b.dialer.DialContext(ctx, "tcp", b.addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(Encode(text)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
