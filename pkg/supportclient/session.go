package supportclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cwrk-planet/support-relay/pkg/protocol"

	"github.com/cenkalti/backoff/v4"
)

var ErrNotConnected = errors.New("not connected")

// Handler receives connection transitions and events of a Session. Callbacks run on the Session's
// goroutine and must not block for long.
type Handler struct {
	OnConnecting   func()
	OnConnected    func()
	OnEvent        func(protocol.Envelope)
	OnDisconnected func(error)
}

type SessionConfig struct {
	BaseURL string
	Header  http.Header
	// Reconnect bounds; defaults 500ms and 10s.
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// IdleTimeout is passed to Dial.
	IdleTimeout time.Duration
}

// Session keeps one Socket to the relay, dialing again with exponential backoff after it drops.
type Session struct {
	cfg SessionConfig

	mu   sync.RWMutex
	sock *Socket
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	return &Session{cfg: cfg}
}

// Emit writes on the current socket.
func (s *Session) Emit(eventType string, payload any, ref string) error {
	s.mu.RLock()
	sock := s.sock
	s.mu.RUnlock()
	if sock == nil {
		return ErrNotConnected
	}
	return sock.Emit(eventType, payload, ref)
}

// Run connects and serves until ctx is done. It always returns ctx.Err().
func (s *Session) Run(ctx context.Context, h Handler) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.MinBackoff
	bo.MaxInterval = s.cfg.MaxBackoff
	bo.MaxElapsedTime = 0

	for {
		call(h.OnConnecting)

		sock, err := Dial(ctx, s.cfg.BaseURL, DialOptions{Header: s.cfg.Header, IdleTimeout: s.cfg.IdleTimeout})
		if err == nil {
			bo.Reset()
			err = s.serve(ctx, sock, h)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if h.OnDisconnected != nil {
			h.OnDisconnected(err)
		}

		wait := bo.NextBackOff()
		slog.Warn("supportclient: connection lost", slog.Any("err", err), slog.Duration("retry_in", wait))
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Session) serve(ctx context.Context, sock *Socket, h Handler) error {
	s.mu.Lock()
	s.sock = sock
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sock = nil
		s.mu.Unlock()
		_ = sock.Close()
	}()

	call(h.OnConnected)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-sock.Events():
			if !ok {
				return sock.Err()
			}
			if h.OnEvent != nil {
				h.OnEvent(env)
			}
		}
	}
}

func call(f func()) {
	if f != nil {
		f()
	}
}
