package postgres

import (
	"context"

	"github.com/cwrk-planet/support-relay/internal/domain"
	"github.com/cwrk-planet/support-relay/internal/repository"
	"github.com/cwrk-planet/support-relay/internal/repository/queries"

	"github.com/jackc/pgx/v5"
)

type MessageRepo struct {
	q querier
}

var _ repository.MessageRepository = (*MessageRepo)(nil)

func NewMessageRepoFromPool(q querier) *MessageRepo {
	return &MessageRepo{q: q}
}

func NewMessageRepoFromTx(tx pgx.Tx) *MessageRepo {
	return &MessageRepo{q: tx}
}

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	err := r.q.QueryRow(ctx, queries.QueryCreateMessage,
		m.ID,
		m.Content,
		string(m.Sender),
		m.UserID,
	).Scan(&m.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}

	return nil
}

func (r *MessageRepo) ListByUser(ctx context.Context, userID string) ([]domain.Message, error) {
	rows, err := r.q.Query(ctx, queries.QueryListMessagesByUser, userID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := make([]domain.Message, 0, 16)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	return out, rows.Err()
}

func (r *MessageRepo) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.q.Exec(ctx, queries.QueryDeleteAllMessages)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}
