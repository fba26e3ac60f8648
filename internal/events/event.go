// Package events exports conversation activity to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/cwrk-planet/support-relay/internal/domain"
)

const (
	TypeUserCreated = "user_created"
	TypeMessageSent = "message_sent"
)

type Event struct {
	Type       string          `json:"type"`
	UserID     string          `json:"userId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Message    *MessagePayload `json:"message,omitempty"`
}

type MessagePayload struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

func UserCreated(u domain.User) Event {
	return Event{Type: TypeUserCreated, UserID: u.ID, OccurredAt: u.CreatedAt}
}

func MessageSent(m domain.Message) Event {
	return Event{
		Type:       TypeMessageSent,
		UserID:     m.UserID,
		OccurredAt: m.CreatedAt,
		Message: &MessagePayload{
			ID:        m.ID,
			Content:   m.Content,
			Sender:    string(m.Sender),
			CreatedAt: m.CreatedAt,
		},
	}
}

// Publisher must not block the caller on the broker. Publish errors are informational.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
