package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	errConnClosed = errors.New("ws: connection closed")
	errSlowClient = errors.New("ws: send buffer full")
)

// wsConn owns one websocket. Frames go through a buffered channel drained by writeLoop, so a
// broadcast never waits on a slow peer; a peer that falls a full buffer behind is dropped.
type wsConn struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	writeWait time.Duration
}

func newWsConn(c *websocket.Conn, buffer int, writeWait time.Duration) *wsConn {
	return &wsConn{
		id:        uuid.NewString(),
		conn:      c,
		send:      make(chan []byte, buffer),
		closed:    make(chan struct{}),
		writeWait: writeWait,
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(frame []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		// callers may hold the hub lock
		go c.closeWith(websocket.CloseTryAgainLater, "send buffer full")
		return errSlowClient
	}
}

func (c *wsConn) Close() error {
	c.closeWith(websocket.CloseNormalClosure, "")
	return nil
}

func (c *wsConn) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)
		deadline := time.Now().Add(c.writeWait)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.conn.Close()
	})
}

func (c *wsConn) writeLoop(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.closeWith(websocket.CloseGoingAway, "")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				c.closeWith(websocket.CloseGoingAway, "")
				return
			}
		}
	}
}
