package repository

import (
	"context"

	"github.com/cwrk-planet/support-relay/internal/domain"
)

type UserRepository interface {
	// CreateIfNotExists inserts u unless its id is taken. created reports whether a row was added;
	// when it was not, u is left untouched.
	CreateIfNotExists(ctx context.Context, u *domain.User) (created bool, err error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// ListChats returns every user with its latest message, most recent activity first.
	ListChats(ctx context.Context) ([]domain.Chat, error)
}
