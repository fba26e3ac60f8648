package domain

import (
	"strings"
	"time"
)

// User is one visitor and therefore one conversation. ID is generated by the visitor's client.
type User struct {
	ID        string    `db:"id"`
	Name      *string   `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func NewUser(id string, now time.Time) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyUserID
	}

	return &User{ID: id, CreatedAt: now}, nil
}
