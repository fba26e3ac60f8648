package domain

import (
	"strings"
	"time"
)

type Message struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	Sender    Sender    `db:"sender"`
	CreatedAt time.Time `db:"created_at"`
	UserID    string    `db:"user_id"`
}

// NewMessage validates the fields a send carries. ID and CreatedAt are assigned when stored.
func NewMessage(userID, content string, sender Sender) (*Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	return &Message{UserID: userID, Content: content, Sender: sender}, nil
}
