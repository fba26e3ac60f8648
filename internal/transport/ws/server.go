package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/support-relay/internal/domain"
	"github.com/cwrk-planet/support-relay/internal/transport/dto"
	"github.com/cwrk-planet/support-relay/pkg/protocol"

	"github.com/gorilla/websocket"
)

type ChatSvc interface {
	EnsureUser(ctx context.Context, userID string) (*domain.User, bool, error)
	SendMessage(ctx context.Context, userID, content string, sender domain.Sender, deliver func(domain.Message)) (*domain.Message, error)
	VisitorConnected(ctx context.Context, userID, connID string)
	VisitorSeen(ctx context.Context, userID, connID string)
	VisitorDisconnected(ctx context.Context, userID, connID string)
}

type Config struct {
	PingEvery      time.Duration // 15s when zero
	WriteWait      time.Duration // 5s when zero
	SendBuffer     int           // 64 when zero
	ReadLimit      int64         // 64 KiB when zero
	HandlerTimeout time.Duration // 10s when zero
	// PresenceRefresh is the minimum gap between presence refreshes of a visitor connection,
	// driven by pongs. 1m when zero.
	PresenceRefresh time.Duration
	// AllowedOrigins empty or containing "*" accepts every origin.
	AllowedOrigins []string
}

func (c *Config) setDefaults() {
	if c.PingEvery <= 0 {
		c.PingEvery = 15 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 64 << 10
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 10 * time.Second
	}
	if c.PresenceRefresh <= 0 {
		c.PresenceRefresh = time.Minute
	}
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	chat     ChatSvc
	cfg      Config
}

func NewServer(hub *Hub, chat ChatSvc, cfg Config) *Server {
	cfg.setDefaults()
	return &Server{
		hub:  hub,
		chat: chat,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// session is the per-connection state owned by the read loop.
type session struct {
	conn    *wsConn
	admin   bool
	visitor map[string]struct{} // rooms joined as a visitor, for presence
	seenAt  time.Time           // last presence refresh
}

// HandleWS upgrades GET /ws. Clients announce themselves with join_chat or admin_join.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		slog.Warn("ws upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newWsConn(conn, s.cfg.SendBuffer, s.cfg.WriteWait)
	sess := &session{conn: c, visitor: make(map[string]struct{})}
	s.hub.Add(c)
	slog.Info("ws connected", "conn_id", c.id, "remote", r.RemoteAddr)

	go c.writeLoop(s.cfg.PingEvery)
	s.readLoop(r.Context(), sess)

	s.hub.Remove(c)
	_ = c.Close()

	// presence cleanup must outlive the request context
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.HandlerTimeout)
	defer cancel()
	for room := range sess.visitor {
		s.chat.VisitorDisconnected(ctx, room, c.id)
	}
	slog.Info("ws disconnected", "conn_id", c.id)
}

func (s *Server) readLoop(ctx context.Context, sess *session) {
	c := sess.conn
	c.conn.SetReadLimit(s.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingEvery))
	c.conn.SetPongHandler(func(string) error {
		s.refreshPresence(ctx, sess)
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.Debug("ws read stopped", "conn_id", c.id, "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingEvery))

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("ws bad frame", "conn_id", c.id, "err", err)
			continue
		}
		s.dispatch(ctx, sess, env)
	}
}

// refreshPresence keeps visitor rooms of a live connection registered. It runs on the read loop.
func (s *Server) refreshPresence(ctx context.Context, sess *session) {
	if len(sess.visitor) == 0 || time.Since(sess.seenAt) < s.cfg.PresenceRefresh {
		return
	}
	sess.seenAt = time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.HandlerTimeout)
	defer cancel()
	for room := range sess.visitor {
		s.chat.VisitorSeen(ctx, room, sess.conn.id)
	}
}

// dispatch runs one event. A failing or panicking handler only loses that event.
func (s *Server) dispatch(ctx context.Context, sess *session, env protocol.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("ws handler panic", "conn_id", sess.conn.id, "type", env.Type, "panic", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.HandlerTimeout)
	defer cancel()

	switch env.Type {
	case protocol.EventJoinChat:
		s.onJoinChat(ctx, sess, env)
	case protocol.EventAdminJoin:
		s.hub.JoinAdmins(sess.conn)
		sess.admin = true
		slog.Info("ws admin joined", "conn_id", sess.conn.id)
	case protocol.EventSendMessage:
		s.onSendMessage(ctx, sess, env)
	case protocol.EventTyping:
		s.onTyping(sess, env)
	default:
		slog.Debug("ws unknown event", "conn_id", sess.conn.id, "type", env.Type)
	}
}

func (s *Server) onJoinChat(ctx context.Context, sess *session, env protocol.Envelope) {
	userID, err := decodeUserID(env)
	if err != nil {
		slog.Warn("ws join_chat rejected", "conn_id", sess.conn.id, "err", err)
		return
	}

	s.hub.Join(userID, sess.conn)
	if !sess.admin {
		if _, seen := sess.visitor[userID]; !seen {
			sess.visitor[userID] = struct{}{}
			sess.seenAt = time.Now()
			s.chat.VisitorConnected(ctx, userID, sess.conn.id)
		}
	}

	u, created, err := s.chat.EnsureUser(ctx, userID)
	if err != nil {
		slog.Error("ws join_chat ensure user failed", "conn_id", sess.conn.id, "user_id", userID, "err", err)
		return
	}
	if created {
		s.broadcast(protocol.EventChatUpdated, dto.UserJoined(*u))
	}
}

func (s *Server) onSendMessage(ctx context.Context, sess *session, env protocol.Envelope) {
	var in protocol.SendMessage
	if err := env.Decode(&in); err != nil {
		s.fail(sess, env.Ref, err)
		return
	}

	stored, err := s.chat.SendMessage(ctx, in.UserID, in.Content, domain.Sender(in.Sender), func(m domain.Message) {
		s.toRoomAndAdmins(m.UserID, protocol.EventReceiveMessage, dto.Message(m))
		s.broadcast(protocol.EventChatUpdated, dto.LastMessage(m))
	})
	if err != nil {
		s.fail(sess, env.Ref, err)
		return
	}

	if env.Ref != "" {
		ack, err := protocol.NewEnvelope(protocol.EventMessageAck, protocol.MessageAck{Ref: env.Ref, Message: dto.Message(*stored)})
		if err == nil {
			ack.Ref = env.Ref
			_ = s.hub.SendTo(sess.conn, ack)
		}
	}
}

func (s *Server) onTyping(sess *session, env protocol.Envelope) {
	var in protocol.Typing
	if err := env.Decode(&in); err != nil || strings.TrimSpace(in.UserID) == "" {
		slog.Debug("ws typing dropped", "conn_id", sess.conn.id, "err", err)
		return
	}
	s.broadcast(protocol.EventTyping, in)
}

// fail logs err and, when the client asked for an ack, reports it to the sender only.
func (s *Server) fail(sess *session, ref string, err error) {
	slog.Warn("ws send_message dropped", "conn_id", sess.conn.id, "ref", ref, "err", err)
	if ref == "" {
		return
	}
	env, encErr := protocol.NewEnvelope(protocol.EventError, protocol.Error{Ref: ref, Error: publicError(err)})
	if encErr != nil {
		return
	}
	env.Ref = ref
	_ = s.hub.SendTo(sess.conn, env)
}

func (s *Server) broadcast(eventType string, payload any) {
	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		slog.Error("ws encode failed", "type", eventType, "err", err)
		return
	}
	s.hub.ToAll(env)
}

func (s *Server) toRoomAndAdmins(room, eventType string, payload any) {
	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		slog.Error("ws encode failed", "type", eventType, "err", err)
		return
	}
	s.hub.ToRoomAndAdmins(room, env)
}

// decodeUserID accepts "user_x" or {"userId":"user_x"}.
func decodeUserID(env protocol.Envelope) (string, error) {
	var id string
	if err := env.Decode(&id); err != nil {
		var obj struct {
			UserID string `json:"userId"`
		}
		if objErr := env.Decode(&obj); objErr != nil {
			return "", err
		}
		id = obj.UserID
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", domain.ErrEmptyUserID
	}
	return id, nil
}

func publicError(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyContent):
		return "empty message"
	case errors.Is(err, domain.ErrEmptyUserID):
		return "missing userId"
	case errors.Is(err, domain.ErrUserNotFound):
		return "unknown user"
	default:
		var syntax *json.SyntaxError
		var typ *json.UnmarshalTypeError
		if errors.As(err, &syntax) || errors.As(err, &typ) {
			return "malformed payload"
		}
		return "internal error"
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			allowed = nil
			break
		}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
