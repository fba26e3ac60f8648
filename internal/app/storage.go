package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/support-relay/config"
	"github.com/cwrk-planet/support-relay/internal/pg"
	"github.com/cwrk-planet/support-relay/internal/repository"
	"github.com/cwrk-planet/support-relay/internal/repository/memory"
	"github.com/cwrk-planet/support-relay/internal/repository/postgres"
)

type Storage struct {
	Users    repository.UserRepository
	Messages repository.MessageRepository
	Purger   repository.Purger
	close    func()
}

func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage connects the configured driver and applies the schema when postgres.migrate is set.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		slog.Warn("storage: in-memory driver, data is lost on exit")
		m := memory.New()
		return &Storage{Users: m, Messages: m, Purger: m}, nil

	case config.DriverPostgres:
		pool, err := pg.NewPool(ctx, cfg.Postgres.ToPGConfig())
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := pg.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("postgres migrate: %w", err)
			}
			slog.Info("postgres schema applied")
		}
		return &Storage{
			Users:    postgres.NewUserRepoFromPool(pool),
			Messages: postgres.NewMessageRepoFromPool(pool),
			Purger:   postgres.NewPurger(pool),
			close:    pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
