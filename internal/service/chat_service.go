package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/support-relay/internal/domain"
	"github.com/cwrk-planet/support-relay/internal/events"
	"github.com/cwrk-planet/support-relay/internal/presence"
	"github.com/cwrk-planet/support-relay/internal/repository"

	"github.com/google/uuid"
)

// ChatSummary is one row of the operator chat list.
type ChatSummary struct {
	domain.Chat
	Online *bool // nil when presence is not tracked
}

type ChatService struct {
	users     repository.UserRepository
	messages  repository.MessageRepository
	purger    repository.Purger
	publisher events.Publisher
	presence  presence.Store
	locks     *roomLocks
	newID     func() string
	now       func() time.Time
}

type Option func(*ChatService)

func WithPublisher(p events.Publisher) Option {
	return func(s *ChatService) { s.publisher = p }
}

func WithPresence(p presence.Store) Option {
	return func(s *ChatService) { s.presence = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *ChatService) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *ChatService) { s.newID = gen }
}

func NewChatService(
	users repository.UserRepository,
	messages repository.MessageRepository,
	purger repository.Purger,
	opts ...Option,
) *ChatService {
	s := &ChatService{
		users:     users,
		messages:  messages,
		purger:    purger,
		publisher: events.Nop{},
		presence:  presence.Nop{},
		locks:     newRoomLocks(64),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureUser creates the visitor record on first sight. created is false for every later call
// with the same id.
func (s *ChatService) EnsureUser(ctx context.Context, userID string) (*domain.User, bool, error) {
	u, err := domain.NewUser(strings.TrimSpace(userID), s.now())
	if err != nil {
		return nil, false, err
	}

	created, err := s.users.CreateIfNotExists(ctx, u)
	if err != nil {
		slog.Error("chat.ensureUser.create failed", slog.String("user_id", u.ID), slog.Any("err", err))
		return nil, false, fmt.Errorf("ensure user %s: %w", u.ID, err)
	}
	if !created {
		return u, false, nil
	}

	if err := s.publisher.Publish(ctx, events.UserCreated(*u)); err != nil {
		slog.Warn("chat.ensureUser.publish failed", slog.String("user_id", u.ID), slog.Any("err", err))
	}
	return u, true, nil
}

// SendMessage stores a message and then calls deliver with the stored copy. Calls for the same
// user id run one at a time, store and deliver included, so fan-out follows storage order.
func (s *ChatService) SendMessage(ctx context.Context, userID, content string, sender domain.Sender, deliver func(domain.Message)) (*domain.Message, error) {
	m, err := domain.NewMessage(userID, content, sender)
	if err != nil {
		return nil, err
	}
	if !sender.IsKnown() {
		slog.Warn("chat.sendMessage unknown sender", slog.String("user_id", userID), slog.String("sender", string(sender)))
	}
	m.ID = s.newID()

	unlock := s.locks.lock(m.UserID)
	defer unlock()

	if err := s.messages.Create(ctx, m); err != nil {
		slog.Error("chat.sendMessage.create failed", slog.String("user_id", m.UserID), slog.Any("err", err))
		return nil, fmt.Errorf("store message: %w", err)
	}

	if deliver != nil {
		deliver(*m)
	}

	if err := s.publisher.Publish(ctx, events.MessageSent(*m)); err != nil {
		slog.Warn("chat.sendMessage.publish failed", slog.String("user_id", m.UserID), slog.Any("err", err))
	}
	return m, nil
}

func (s *ChatService) ListChats(ctx context.Context) ([]ChatSummary, error) {
	chats, err := s.users.ListChats(ctx)
	if err != nil {
		slog.Error("chat.listChats failed", slog.Any("err", err))
		return nil, err
	}

	ids := make([]string, len(chats))
	for i, c := range chats {
		ids[i] = c.User.ID
	}
	online, err := s.presence.Online(ctx, ids)
	if err != nil {
		// the list is still useful without presence
		slog.Warn("chat.listChats.presence failed", slog.Any("err", err))
		online = nil
	}

	out := make([]ChatSummary, len(chats))
	for i, c := range chats {
		out[i] = ChatSummary{Chat: c}
		if online != nil {
			v := online[c.User.ID]
			out[i].Online = &v
		}
	}
	return out, nil
}

// ListMessages returns the conversation oldest first. Unknown ids give an empty slice.
func (s *ChatService) ListMessages(ctx context.Context, userID string) ([]domain.Message, error) {
	msgs, err := s.messages.ListByUser(ctx, userID)
	if err != nil {
		slog.Error("chat.listMessages failed", slog.String("user_id", userID), slog.Any("err", err))
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// Purge deletes every message and user. There is no confirmation step.
func (s *ChatService) Purge(ctx context.Context) (repository.PurgeResult, error) {
	res, err := s.purger.Purge(ctx)
	if err != nil {
		slog.Error("chat.purge failed", slog.Any("err", err))
		return res, err
	}
	slog.Info("chat.purge done", slog.Int64("messages", res.Messages), slog.Int64("users", res.Users))
	return res, nil
}

func (s *ChatService) VisitorConnected(ctx context.Context, userID, connID string) {
	if err := s.presence.Connected(ctx, userID, connID); err != nil {
		slog.Warn("chat.presence.connected failed", slog.String("user_id", userID), slog.String("conn_id", connID), slog.Any("err", err))
	}
}

func (s *ChatService) VisitorSeen(ctx context.Context, userID, connID string) {
	if err := s.presence.Refresh(ctx, userID, connID); err != nil {
		slog.Warn("chat.presence.refresh failed", slog.String("user_id", userID), slog.String("conn_id", connID), slog.Any("err", err))
	}
}

func (s *ChatService) VisitorDisconnected(ctx context.Context, userID, connID string) {
	if err := s.presence.Disconnected(ctx, userID, connID); err != nil {
		slog.Warn("chat.presence.disconnected failed", slog.String("user_id", userID), slog.String("conn_id", connID), slog.Any("err", err))
	}
}
