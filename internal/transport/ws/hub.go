package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/cwrk-planet/support-relay/pkg/protocol"
)

type Conn interface {
	ID() string
	Send(frame []byte) error
	Close() error
}

// Hub tracks every live connection, room membership and the set of admin listeners.
// Rooms are named by visitor id and disappear with their last member.
type Hub struct {
	mu        sync.RWMutex
	conns     map[string]Conn            // connID -> conn
	rooms     map[string]map[string]Conn // room -> connID -> conn
	connRooms map[string]map[string]struct{}
	admins    map[string]Conn
}

func NewHub() *Hub {
	return &Hub{
		conns:     make(map[string]Conn),
		rooms:     make(map[string]map[string]Conn),
		connRooms: make(map[string]map[string]struct{}),
		admins:    make(map[string]Conn),
	}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.ID()] = c
}

// Remove drops c from every room and from the admin set.
func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := c.ID()
	delete(h.conns, id)
	delete(h.admins, id)
	for room := range h.connRooms[id] {
		if rs, ok := h.rooms[room]; ok {
			delete(rs, id)
			if len(rs) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.connRooms, id)
}

// Join is idempotent.
func (h *Hub) Join(room string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := c.ID()
	if _, ok := h.conns[id]; !ok {
		return
	}
	rs, ok := h.rooms[room]
	if !ok {
		rs = make(map[string]Conn)
		h.rooms[room] = rs
	}
	rs[id] = c

	mem, ok := h.connRooms[id]
	if !ok {
		mem = make(map[string]struct{})
		h.connRooms[id] = mem
	}
	mem[room] = struct{}{}
}

func (h *Hub) JoinAdmins(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c.ID()]; ok {
		h.admins[c.ID()] = c
	}
}

// ToRoomAndAdmins delivers once to each member of room and each admin listener.
func (h *Hub) ToRoomAndAdmins(room string, env protocol.Envelope) int {
	frame, ok := encode(env)
	if !ok {
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{}, len(h.rooms[room])+len(h.admins))
	n := sendAll(h.rooms[room], frame, seen)
	n += sendAll(h.admins, frame, seen)
	return n
}

// ToAll delivers to every connected party, the sender included.
func (h *Hub) ToAll(env protocol.Envelope) int {
	frame, ok := encode(env)
	if !ok {
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	return sendAll(h.conns, frame, nil)
}

func (h *Hub) SendTo(c Conn, env protocol.Envelope) error {
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.Send(frame)
}

// Counts reports connections, rooms and admin listeners.
func (h *Hub) Counts() (conns, rooms, admins int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.conns), len(h.rooms), len(h.admins)
}

// CloseAll closes every connection. Read loops then unregister them.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	all := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		_ = c.Close()
	}
}

func sendAll(set map[string]Conn, frame []byte, seen map[string]struct{}) int {
	n := 0
	for id, c := range set {
		if seen != nil {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		if err := c.Send(frame); err == nil {
			n++
		}
	}
	return n
}

func encode(env protocol.Envelope) ([]byte, bool) {
	b, err := json.Marshal(env)
	if err != nil {
		slog.Error("ws encode failed", "type", env.Type, "err", err)
		return nil, false
	}
	return b, true
}
