package repository

import (
	"context"

	"github.com/cwrk-planet/support-relay/internal/domain"
)

type MessageRepository interface {
	// Create stores m and sets m.CreatedAt. The timestamp is never earlier than the previous message
	// of the same user. Unknown m.UserID yields domain.ErrUserNotFound.
	Create(ctx context.Context, m *domain.Message) error
	// ListByUser returns the conversation oldest first. Unknown users yield an empty slice.
	ListByUser(ctx context.Context, userID string) ([]domain.Message, error)
}
