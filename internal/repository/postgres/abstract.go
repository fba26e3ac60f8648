package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/support-relay/internal/domain"
	"github.com/cwrk-planet/support-relay/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

/*
common surface of *pgxpool.Pool and pgx.Tx,
so a repository can run either standalone or inside a transaction
*/
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return repository.ErrAlreadyExists
		case pgForeignKeyViolation:
			return domain.ErrUserNotFound
		case pgSerializationFailure, pgDeadlockDetected:
			return repository.ErrConflict
		}
	}

	return err
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var (
		m      domain.Message
		sender string
	)
	if err := row.Scan(&m.ID, &m.Content, &sender, &m.CreatedAt, &m.UserID); err != nil {
		return domain.Message{}, err
	}
	m.Sender = domain.Sender(sender)

	return m, nil
}
