// Package session maintains the persistent control connection to the
// Webcandy server and feeds received commands to the agent.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gcpreston/webcandy-client/internal/core"
	"github.com/gcpreston/webcandy-client/internal/pattern"
)

// ErrRetriesExhausted is returned by Run when the server stays unreachable
// for the whole retry budget.
var ErrRetriesExhausted = errors.New("connection retries exhausted")

// DefaultMaxAttempts is the connection retry budget when the configuration
// does not override it.
const DefaultMaxAttempts = 5

// handshakeTimeout bounds the websocket dial.
const handshakeTimeout = 10 * time.Second

// keepAliveMarker is the server's idle text frame. Not worth logging.
const keepAliveMarker = "keep-alive"

// Config carries everything a session needs to identify itself.
type Config struct {
	// URL is the websocket endpoint, e.g. "ws://proxy.webcandy.io".
	URL string
	// Token is the bearer token from the authentication endpoint.
	Token string
	// ClientName is how this client appears in the Webcandy frontend.
	ClientName string
	// Patterns is the catalog advertisement sent with every handshake.
	Patterns []pattern.Descriptor
	// Commands receives every structured command the server sends.
	Commands core.CommandChannel
	// EventBus, when set, carries connect/disconnect notifications.
	EventBus *core.EventBus
	// MaxAttempts is the consecutive-failure budget. Zero means
	// DefaultMaxAttempts.
	MaxAttempts int
}

// handshake is the first message after every connect, re-sent on every
// reconnect.
type handshake struct {
	Token      string               `json:"token"`
	ClientName string               `json:"client_name"`
	Patterns   []pattern.Descriptor `json:"patterns"`
}

// Session is the client side of the Webcandy control protocol.
type Session struct {
	cfg    Config
	dialer *websocket.Dialer

	// wait is swapped out by tests to observe backoff delays.
	wait func(ctx context.Context, d time.Duration) error
}

// New creates a session. It does not connect until Run is called.
func New(cfg Config) *Session {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Session{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		wait:   sleepContext,
	}
}

// Run connects and keeps the session alive until ctx is cancelled or the
// retry budget is spent. Every established connection starts with a fresh
// handshake; the failure counter resets once a handshake goes through.
func (s *Session) Run(ctx context.Context) error {
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := s.connect(ctx)
		if err != nil {
			failures++
			log.Printf("[Session] Connection attempt %d/%d failed: %v", failures, s.cfg.MaxAttempts, err)
			if failures >= s.cfg.MaxAttempts {
				return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, failures, err)
			}
			if err := s.wait(ctx, retryDelay(failures)); err != nil {
				return err
			}
			continue
		}

		failures = 0
		s.publishConnected(true)
		s.receive(ctx, conn)
		s.publishConnected(false)
		conn.Close()

		if err := ctx.Err(); err != nil {
			return err
		}
		log.Println("[Session] Reconnecting...")
	}
}

// retryDelay returns how long to sleep before the next attempt after n
// consecutive failures.
func retryDelay(failures int) time.Duration {
	switch failures {
	case 1:
		return 0
	case 2:
		return 10 * time.Second
	case 3:
		return 30 * time.Second
	default:
		return 60 * time.Second
	}
}

// connect dials the server and performs the handshake.
func (s *Session) connect(ctx context.Context) (*websocket.Conn, error) {
	log.Printf("[Session] Connecting to %s...", s.cfg.URL)
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return nil, err
	}

	hs := handshake{
		Token:      s.cfg.Token,
		ClientName: s.cfg.ClientName,
		Patterns:   s.cfg.Patterns,
	}
	if err := conn.WriteJSON(hs); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}

	log.Printf("[Session] Connected as %q, advertising %d patterns", s.cfg.ClientName, len(s.cfg.Patterns))
	return conn, nil
}

// receive pumps server messages into the command channel until the
// connection dies or ctx is cancelled.
func (s *Session) receive(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		// ReadMessage has no context; closing the connection is how a
		// cancelled session gets unblocked.
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[Session] Server closed the connection: %v", err)
			} else {
				log.Printf("[Session] Connection lost: %v", err)
			}
			return
		}
		s.handleMessage(data)
	}
}

// handleMessage forwards structured commands and logs anything else as a
// server notice.
func (s *Session) handleMessage(data []byte) {
	var cmd core.Command
	if err := json.Unmarshal(data, &cmd); err == nil {
		s.enqueue(cmd)
		return
	}

	notice := string(data)
	var quoted string
	if err := json.Unmarshal(data, &quoted); err == nil {
		notice = quoted
	}
	if notice = strings.TrimSpace(notice); notice != keepAliveMarker {
		log.Printf("[Session] Server says: %s", notice)
	}
}

// enqueue delivers cmd without blocking the receive loop. A full backlog
// sheds its oldest entry first: the strip should settle on the server's
// latest command, not a stale one.
func (s *Session) enqueue(cmd core.Command) {
	select {
	case s.cfg.Commands <- cmd:
		return
	default:
	}
	select {
	case stale := <-s.cfg.Commands:
		log.Printf("[Session] Command backlog full, dropping stale: %s", stale)
	default:
	}
	select {
	case s.cfg.Commands <- cmd:
	default:
		log.Printf("[Session] Command channel full, dropping: %s", cmd)
	}
}

func (s *Session) publishConnected(connected bool) {
	if s.cfg.EventBus == nil {
		return
	}
	s.cfg.EventBus.Publish(core.Event{
		Type:    core.SessionStateChangedEvent,
		Payload: core.SessionState{Connected: connected},
	})
}

// sleepContext waits for d unless ctx ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
