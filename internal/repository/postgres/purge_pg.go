package postgres

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/support-relay/internal/repository"
)

type Purger struct {
	db txBeginner
}

var _ repository.Purger = (*Purger)(nil)

func NewPurger(db txBeginner) *Purger {
	return &Purger{db: db}
}

// Purge deletes messages, then users, in one transaction.
func (p *Purger) Purge(ctx context.Context) (repository.PurgeResult, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return repository.PurgeResult{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var res repository.PurgeResult
	if res.Messages, err = NewMessageRepoFromTx(tx).DeleteAll(ctx); err != nil {
		return repository.PurgeResult{}, fmt.Errorf("delete messages: %w", err)
	}
	if res.Users, err = NewUserRepoFromTx(tx).DeleteAll(ctx); err != nil {
		return repository.PurgeResult{}, fmt.Errorf("delete users: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return repository.PurgeResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}
