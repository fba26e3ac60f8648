package repository

import "context"

type PurgeResult struct {
	Messages int64
	Users    int64
}

// Purger removes every message and every user.
type Purger interface {
	Purge(ctx context.Context) (PurgeResult, error)
}
