package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cwrk-planet/support-relay/internal/domain"
	"github.com/cwrk-planet/support-relay/internal/repository"
	"github.com/cwrk-planet/support-relay/internal/repository/queries"

	"github.com/jackc/pgx/v5"
)

type UserRepo struct {
	q querier
}

var _ repository.UserRepository = (*UserRepo)(nil)

// NewUserRepoFromPool - constructor over *pgxpool.Pool
func NewUserRepoFromPool(q querier) *UserRepo {
	return &UserRepo{q: q}
}

// NewUserRepoFromTx - constructor over pgx.Tx for multi-statement work
func NewUserRepoFromTx(tx pgx.Tx) *UserRepo {
	return &UserRepo{q: tx}
}

func (r *UserRepo) CreateIfNotExists(ctx context.Context, u *domain.User) (bool, error) {
	var createdAt time.Time
	err := r.q.QueryRow(ctx, queries.QueryCreateUserIfNotExists, u.ID, u.Name, u.CreatedAt).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapPgError(err)
	}
	u.CreatedAt = createdAt

	return true, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.q.QueryRow(ctx, queries.QueryGetUserByID, id).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, mapPgError(err)
	}

	return &u, nil
}

func (r *UserRepo) ListChats(ctx context.Context) ([]domain.Chat, error) {
	rows, err := r.q.Query(ctx, queries.QueryListChats)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := make([]domain.Chat, 0, 32)
	for rows.Next() {
		var (
			c         domain.Chat
			msgID     *string
			content   *string
			sender    *string
			createdAt *time.Time
			userID    *string
		)
		if err := rows.Scan(
			&c.User.ID,
			&c.User.Name,
			&c.User.CreatedAt,
			&msgID,
			&content,
			&sender,
			&createdAt,
			&userID,
		); err != nil {
			return nil, err
		}
		if msgID != nil {
			c.Latest = &domain.Message{
				ID:        *msgID,
				Content:   *content,
				Sender:    domain.Sender(*sender),
				CreatedAt: *createdAt,
				UserID:    *userID,
			}
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *UserRepo) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.q.Exec(ctx, queries.QueryDeleteAllUsers)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}
