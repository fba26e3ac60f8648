package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/support-relay/internal/repository/memory"
	"github.com/cwrk-planet/support-relay/internal/service"
	"github.com/cwrk-planet/support-relay/pkg/protocol"

	"github.com/gorilla/websocket"
)

type recordingPresence struct {
	mu     sync.Mutex
	online map[string]int
	seen   map[string]int
}

func (p *recordingPresence) Connected(_ context.Context, userID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID]++
	return nil
}

func (p *recordingPresence) Disconnected(_ context.Context, userID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID]--
	return nil
}

func (p *recordingPresence) Refresh(_ context.Context, userID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen[userID]++
	return nil
}

func (p *recordingPresence) refreshes(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen[userID]
}

func (p *recordingPresence) Online(context.Context, []string) (map[string]bool, error) {
	return nil, nil
}

func (p *recordingPresence) get(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

type relay struct {
	url      string
	store    *memory.Store
	presence *recordingPresence
}

func newRelay(t *testing.T) *relay {
	return newRelayWith(t, Config{PingEvery: time.Second})
}

func newRelayWith(t *testing.T, cfg Config) *relay {
	t.Helper()
	store := memory.New()
	pres := &recordingPresence{online: map[string]int{}, seen: map[string]int{}}
	svc := service.NewChatService(store, store, store, service.WithPresence(pres))
	hub := NewHub()
	srv := NewServer(hub, svc, cfg)

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(ts.Close)
	t.Cleanup(hub.CloseAll)

	return &relay{url: "ws" + strings.TrimPrefix(ts.URL, "http"), store: store, presence: pres}
}

func (r *relay) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(r.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func emit(t *testing.T, c *websocket.Conn, typ string, payload any, ref string) {
	t.Helper()
	e, err := protocol.NewEnvelope(typ, payload)
	if err != nil {
		t.Fatal(err)
	}
	e.Ref = ref
	if err := c.WriteJSON(e); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// next returns the next frame, failing after two seconds.
func next(t *testing.T, c *websocket.Conn) protocol.Envelope {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e protocol.Envelope
	if err := c.ReadJSON(&e); err != nil {
		t.Fatalf("read: %v", err)
	}
	return e
}

// await skips frames until one of type typ arrives.
func await(t *testing.T, c *websocket.Conn, typ string) protocol.Envelope {
	t.Helper()
	for {
		if e := next(t, c); e.Type == typ {
			return e
		}
	}
}

// syncConn makes the relay echo a typing frame back so everything emitted before it has been handled.
func syncConn(t *testing.T, c *websocket.Conn, marker string) []protocol.Envelope {
	t.Helper()
	emit(t, c, protocol.EventTyping, protocol.Typing{UserID: marker, Typing: true, Sender: "admin"}, "")
	var before []protocol.Envelope
	for {
		e := next(t, c)
		if e.Type == protocol.EventTyping {
			var ty protocol.Typing
			_ = e.Decode(&ty)
			if ty.UserID == marker {
				return before
			}
		}
		before = append(before, e)
	}
}

func TestJoinChat_CreatesUserOnce(t *testing.T) {
	r := newRelay(t)
	admin := r.dial(t)
	emit(t, admin, protocol.EventAdminJoin, nil, "")
	syncConn(t, admin, "ready")

	v1 := r.dial(t)
	emit(t, v1, protocol.EventJoinChat, "user_abc123", "")

	e := await(t, admin, protocol.EventChatUpdated)
	var upd protocol.ChatUpdated
	if err := e.Decode(&upd); err != nil || upd.ID != "user_abc123" || upd.CreatedAt == nil {
		t.Fatalf("chat_updated = %+v, %v", upd, err)
	}

	v2 := r.dial(t)
	emit(t, v2, protocol.EventJoinChat, map[string]string{"userId": "user_abc123"}, "")
	syncConn(t, v2, "sync-v2")

	for _, e := range syncConn(t, admin, "sync-admin") {
		if e.Type == protocol.EventChatUpdated {
			t.Fatalf("duplicate join emitted chat_updated: %s", e.Payload)
		}
	}

	chats, _ := r.store.ListChats(context.Background())
	if len(chats) != 1 {
		t.Fatalf("expected one user, got %d", len(chats))
	}
}

func TestSendMessage_FanOutAndAck(t *testing.T) {
	r := newRelay(t)
	admin := r.dial(t)
	emit(t, admin, protocol.EventAdminJoin, nil, "")

	visitor := r.dial(t)
	emit(t, visitor, protocol.EventJoinChat, "user_abc123", "")
	syncConn(t, visitor, "sync-v")

	// admin also opens the conversation; it must still get each message once
	emit(t, admin, protocol.EventJoinChat, "user_abc123", "")
	syncConn(t, admin, "sync-a")

	emit(t, visitor, protocol.EventSendMessage, protocol.SendMessage{UserID: "user_abc123", Content: "Hello", Sender: "user"}, "r-1")

	got := await(t, visitor, protocol.EventReceiveMessage)
	var m protocol.Message
	if err := got.Decode(&m); err != nil || m.Content != "Hello" || m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatalf("receive_message = %+v, %v", m, err)
	}

	ack := await(t, visitor, protocol.EventMessageAck)
	var a protocol.MessageAck
	if err := ack.Decode(&a); err != nil || a.Ref != "r-1" || a.Message.ID != m.ID || ack.Ref != "r-1" {
		t.Fatalf("message_ack = %+v, %v", a, err)
	}

	received := 0
	for _, e := range syncConn(t, admin, "sync-a2") {
		switch e.Type {
		case protocol.EventReceiveMessage:
			received++
		case protocol.EventChatUpdated:
			var upd protocol.ChatUpdated
			_ = e.Decode(&upd)
			if upd.LastMessage == nil || upd.LastMessage.ID != m.ID {
				t.Fatalf("chat_updated = %+v", upd)
			}
		}
	}
	if received != 1 {
		t.Fatalf("admin received %d copies", received)
	}
}

func TestSendMessage_Rejections(t *testing.T) {
	r := newRelay(t)
	visitor := r.dial(t)
	emit(t, visitor, protocol.EventJoinChat, "u", "")

	emit(t, visitor, protocol.EventSendMessage, protocol.SendMessage{UserID: "u", Content: "  ", Sender: "user"}, "r-blank")
	e := await(t, visitor, protocol.EventError)
	var perr protocol.Error
	if err := e.Decode(&perr); err != nil || perr.Ref != "r-blank" || perr.Error != "empty message" {
		t.Fatalf("error = %+v, %v", perr, err)
	}

	// no ref: dropped silently
	emit(t, visitor, protocol.EventSendMessage, protocol.SendMessage{UserID: "ghost", Content: "hi", Sender: "user"}, "")
	if err := visitor.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	for _, e := range syncConn(t, visitor, "sync") {
		if e.Type == protocol.EventError || e.Type == protocol.EventReceiveMessage {
			t.Fatalf("unexpected %s", e.Type)
		}
	}

	msgs, _ := r.store.ListByUser(context.Background(), "u")
	if len(msgs) != 0 {
		t.Fatalf("stored %d messages", len(msgs))
	}
}

func TestTyping_DeliveredOnceToEveryone(t *testing.T) {
	r := newRelay(t)
	admin := r.dial(t)
	emit(t, admin, protocol.EventAdminJoin, nil, "")
	syncConn(t, admin, "s1")
	visitor := r.dial(t)
	emit(t, visitor, protocol.EventJoinChat, "u", "")
	syncConn(t, visitor, "s2")

	emit(t, visitor, protocol.EventTyping, protocol.Typing{UserID: "u", Typing: true, Sender: "user"}, "")

	isVisitorTyping := func(e protocol.Envelope) bool {
		var ty protocol.Typing
		return e.Type == protocol.EventTyping && e.Decode(&ty) == nil && ty.UserID == "u"
	}
	markers := []string{"after-admin", "after-visitor"}
	for i, c := range []*websocket.Conn{admin, visitor} {
		var e protocol.Envelope
		for e = next(t, c); !isVisitorTyping(e); e = next(t, c) {
		}
		var ty protocol.Typing
		if err := e.Decode(&ty); err != nil || !ty.Typing || ty.Sender != "user" {
			t.Fatalf("typing = %+v, %v", ty, err)
		}
		for _, extra := range syncConn(t, c, markers[i]) {
			if isVisitorTyping(extra) {
				t.Fatal("typing delivered twice")
			}
		}
	}
}

func TestPresence_VisitorOnly(t *testing.T) {
	r := newRelay(t)
	admin := r.dial(t)
	emit(t, admin, protocol.EventAdminJoin, nil, "")
	emit(t, admin, protocol.EventJoinChat, "u", "")
	syncConn(t, admin, "s")
	if got := r.presence.get("u"); got != 0 {
		t.Fatalf("admin join counted as presence: %d", got)
	}

	visitor := r.dial(t)
	emit(t, visitor, protocol.EventJoinChat, "u", "")
	syncConn(t, visitor, "s")
	if got := r.presence.get("u"); got != 1 {
		t.Fatalf("presence = %d, want 1", got)
	}

	_ = visitor.Close()
	deadline := time.Now().Add(2 * time.Second)
	for r.presence.get("u") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("disconnect not recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPresence_RefreshedWhileOpen(t *testing.T) {
	r := newRelayWith(t, Config{PingEvery: 100 * time.Millisecond, PresenceRefresh: 150 * time.Millisecond})

	admin := r.dial(t)
	emit(t, admin, protocol.EventAdminJoin, nil, "")
	syncConn(t, admin, "s")

	visitor := r.dial(t)
	emit(t, visitor, protocol.EventJoinChat, "u", "")
	syncConn(t, visitor, "s")

	// reading keeps answering the relay's pings
	go func() {
		for {
			if _, _, err := visitor.ReadMessage(); err != nil {
				return
			}
		}
	}()
	go func() {
		for {
			if _, _, err := admin.ReadMessage(); err != nil {
				return
			}
		}
	}()

	deadline := time.Now().Add(3 * time.Second)
	for r.presence.refreshes("u") < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("refreshes = %d, want at least 2", r.presence.refreshes("u"))
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := r.presence.refreshes("s"); got != 0 {
		t.Fatalf("typing marker refreshed: %d", got)
	}
	if got := r.presence.get("u"); got != 1 {
		t.Fatalf("presence = %d, want 1", got)
	}
}

func TestDecodeUserID(t *testing.T) {
	for _, raw := range []string{`"u1"`, `{"userId":"u1"}`} {
		id, err := decodeUserID(protocol.Envelope{Type: protocol.EventJoinChat, Payload: json.RawMessage(raw)})
		if err != nil || id != "u1" {
			t.Fatalf("%s -> %q, %v", raw, id, err)
		}
	}
	if _, err := decodeUserID(protocol.Envelope{Type: protocol.EventJoinChat, Payload: json.RawMessage(`"  "`)}); err == nil {
		t.Fatal("blank id accepted")
	}
}
