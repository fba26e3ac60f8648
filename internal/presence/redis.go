package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one set of connection ids per visitor under <prefix>:conn:<userID>. The key
// expires after ttl unless Refresh is called, so a crashed relay does not leave visitors online
// forever. Callers refresh open connections well within ttl.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "support"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) connKey(userID string) string {
	return fmt.Sprintf("%s:conn:%s", s.prefix, userID)
}

func (s *RedisStore) Connected(ctx context.Context, userID, connID string) error {
	return s.register(ctx, userID, connID)
}

// Refresh restores the member as well as the expiry: the key may already have lapsed.
func (s *RedisStore) Refresh(ctx context.Context, userID, connID string) error {
	return s.register(ctx, userID, connID)
}

func (s *RedisStore) register(ctx context.Context, userID, connID string) error {
	key := s.connKey(userID)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, connID)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Disconnected(ctx context.Context, userID, connID string) error {
	return s.client.SRem(ctx, s.connKey(userID), connID).Err()
}

func (s *RedisStore) Online(ctx context.Context, userIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(userIDs))
	for i, id := range userIDs {
		cmds[i] = pipe.SCard(ctx, s.connKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	for i, id := range userIDs {
		out[id] = cmds[i].Val() > 0
	}
	return out, nil
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
