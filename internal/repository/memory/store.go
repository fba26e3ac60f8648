// Package memory keeps users and messages in process memory. It backs tests and the
// storage.driver=memory mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cwrk-planet/support-relay/internal/domain"
	"github.com/cwrk-planet/support-relay/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	messages map[string][]domain.Message // userID -> conversation, oldest first
	now      func() time.Time
}

var (
	_ repository.UserRepository    = (*Store)(nil)
	_ repository.MessageRepository = (*Store)(nil)
	_ repository.Purger            = (*Store)(nil)
)

func New() *Store {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Store {
	return &Store{
		users:    make(map[string]domain.User),
		messages: make(map[string][]domain.Message),
		now:      now,
	}
}

func (s *Store) CreateIfNotExists(_ context.Context, u *domain.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return false, nil
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = *u

	return true, nil
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *Store) ListChats(_ context.Context) ([]domain.Chat, error) {
	s.mu.RLock()
	out := make([]domain.Chat, 0, len(s.users))
	for id, u := range s.users {
		c := domain.Chat{User: u}
		if conv := s.messages[id]; len(conv) > 0 {
			last := conv[len(conv)-1]
			c.Latest = &last
		}
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].ActivityAt(), out[j].ActivityAt()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return out[i].User.ID < out[j].User.ID
	})

	return out, nil
}

func (s *Store) Create(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[m.UserID]; !ok {
		return domain.ErrUserNotFound
	}

	conv := s.messages[m.UserID]
	ts := s.now()
	if n := len(conv); n > 0 && ts.Before(conv[n-1].CreatedAt) {
		ts = conv[n-1].CreatedAt
	}
	m.CreatedAt = ts
	s.messages[m.UserID] = append(conv, *m)

	return nil
}

func (s *Store) ListByUser(_ context.Context, userID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.messages[userID]
	out := make([]domain.Message, len(conv))
	copy(out, conv)

	return out, nil
}

func (s *Store) Purge(_ context.Context) (repository.PurgeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res repository.PurgeResult
	for _, conv := range s.messages {
		res.Messages += int64(len(conv))
	}
	res.Users = int64(len(s.users))

	s.users = make(map[string]domain.User)
	s.messages = make(map[string][]domain.Message)

	return res, nil
}
