// Package presence tracks which visitors currently hold an open widget connection.
package presence

import "context"

type Store interface {
	Connected(ctx context.Context, userID, connID string) error
	Disconnected(ctx context.Context, userID, connID string) error
	// Refresh re-registers a connection that is still open so it outlives the store's expiry.
	Refresh(ctx context.Context, userID, connID string) error
	// Online reports, per user id, whether at least one connection is registered. A nil map means
	// presence is not tracked.
	Online(ctx context.Context, userIDs []string) (map[string]bool, error)
}

type Nop struct{}

func (Nop) Connected(context.Context, string, string) error    { return nil }
func (Nop) Disconnected(context.Context, string, string) error { return nil }
func (Nop) Refresh(context.Context, string, string) error      { return nil }
func (Nop) Online(context.Context, []string) (map[string]bool, error) {
	return nil, nil
}
