package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/cwrk-planet/support-relay/pkg/protocol"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func env(t *testing.T, typ string, payload any) protocol.Envelope {
	t.Helper()
	e, err := protocol.NewEnvelope(typ, payload)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestHub_RoomAndAdminFanOut(t *testing.T) {
	h := NewHub()
	visitor := &fakeConn{id: "v"}
	admin := &fakeConn{id: "a"}
	other := &fakeConn{id: "o"}
	for _, c := range []*fakeConn{visitor, admin, other} {
		h.Add(c)
	}

	h.Join("user_1", visitor)
	h.Join("user_1", admin)
	h.Join("user_1", admin)
	h.JoinAdmins(admin)
	h.Join("user_2", other)

	n := h.ToRoomAndAdmins("user_1", env(t, protocol.EventReceiveMessage, protocol.Message{ID: "m"}))
	if n != 2 {
		t.Fatalf("delivered to %d, want 2", n)
	}
	if visitor.count() != 1 || admin.count() != 1 || other.count() != 0 {
		t.Fatalf("counts v=%d a=%d o=%d", visitor.count(), admin.count(), other.count())
	}

	if n := h.ToAll(env(t, protocol.EventTyping, protocol.Typing{UserID: "user_1", Typing: true})); n != 3 {
		t.Fatalf("ToAll delivered %d", n)
	}

	var got protocol.Envelope
	if err := json.Unmarshal(admin.frames[1], &got); err != nil || got.Type != protocol.EventTyping {
		t.Fatalf("admin second frame = %s, %v", admin.frames[1], err)
	}
}

func TestHub_RemoveCleansUp(t *testing.T) {
	h := NewHub()
	c := &fakeConn{id: "c"}
	h.Add(c)
	h.Join("r1", c)
	h.Join("r2", c)
	h.JoinAdmins(c)

	if conns, rooms, admins := h.Counts(); conns != 1 || rooms != 2 || admins != 1 {
		t.Fatalf("before remove: %d %d %d", conns, rooms, admins)
	}

	h.Remove(c)
	if conns, rooms, admins := h.Counts(); conns != 0 || rooms != 0 || admins != 0 {
		t.Fatalf("after remove: %d %d %d", conns, rooms, admins)
	}
	if h.ToRoomAndAdmins("r1", env(t, protocol.EventTyping, nil)) != 0 {
		t.Fatal("removed conn still receives")
	}
}

func TestHub_JoinRequiresAdd(t *testing.T) {
	h := NewHub()
	c := &fakeConn{id: "c"}
	h.Join("r", c)
	h.JoinAdmins(c)
	if _, rooms, admins := h.Counts(); rooms != 0 || admins != 0 {
		t.Fatalf("unregistered conn joined: rooms=%d admins=%d", rooms, admins)
	}
}
