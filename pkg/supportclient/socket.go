package supportclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/support-relay/pkg/protocol"

	"github.com/gorilla/websocket"
)

var ErrSocketClosed = errors.New("socket closed")

const (
	writeWait   = 5 * time.Second
	eventBuffer = 64

	// DefaultIdleTimeout is three relay ping intervals.
	DefaultIdleTimeout = 45 * time.Second
)

// Socket is one realtime connection to the relay. Incoming envelopes are delivered on Events, which is
// closed when the connection ends; Err then reports why.
type Socket struct {
	conn   *websocket.Conn
	idle   time.Duration
	events chan protocol.Envelope
	done   chan struct{}

	wmu       sync.Mutex
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// WSURL turns an API base URL (http[s]://host:port) into the relay endpoint (ws[s]://host:port/ws).
func WSURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"

	return u.String(), nil
}

type DialOptions struct {
	Header http.Header
	// IdleTimeout closes the socket when neither a frame nor a ping arrives for this long, which
	// catches half-open connections. DefaultIdleTimeout when zero.
	IdleTimeout time.Duration
}

func Dial(ctx context.Context, baseURL string, opts DialOptions) (*Socket, error) {
	target, err := WSURL(baseURL)
	if err != nil {
		return nil, err
	}

	d := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := d.DialContext(ctx, target, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", target, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	s := &Socket{
		conn:   conn,
		idle:   opts.IdleTimeout,
		events: make(chan protocol.Envelope, eventBuffer),
		done:   make(chan struct{}),
	}
	_ = conn.SetReadDeadline(time.Now().Add(s.idle))
	conn.SetPingHandler(s.onPing)
	go s.readLoop()

	return s, nil
}

func (s *Socket) Events() <-chan protocol.Envelope { return s.events }

// Err is meaningful once Events is closed.
func (s *Socket) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Emit sends one event. ref may be empty.
func (s *Socket) Emit(eventType string, payload any, ref string) error {
	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	env.Ref = ref

	return s.Send(env)
}

func (s *Socket) Send(env protocol.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	select {
	case <-s.done:
		return ErrSocketClosed
	default:
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("write %s: %w", env.Type, err)
	}

	return nil
}

func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wmu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		s.wmu.Unlock()
		err = s.conn.Close()
	})
	return err
}

// onPing answers like the default handler and pushes the read deadline out.
func (s *Socket) onPing(data string) error {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.idle))
	err := s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (s *Socket) readLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			select {
			case <-s.done:
				s.err = ErrSocketClosed
			default:
				s.err = err
			}
			s.mu.Unlock()
			_ = s.conn.Close()
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.idle))

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			slog.Warn("supportclient: malformed frame dropped", slog.Any("err", err))
			continue
		}

		select {
		case s.events <- env:
		case <-s.done:
			s.mu.Lock()
			s.err = ErrSocketClosed
			s.mu.Unlock()
			return
		}
	}
}
