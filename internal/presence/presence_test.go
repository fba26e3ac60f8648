package presence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestNop(t *testing.T) {
	var s Store = Nop{}
	m, err := s.Online(context.Background(), []string{"a"})
	if err != nil || m != nil {
		t.Fatalf("Nop.Online = %v, %v", m, err)
	}
}

func TestRedisStore_KeyLayout(t *testing.T) {
	s := NewRedisStore(nil, "", 0)
	if got := s.connKey("user_abc"); got != "support:conn:user_abc" {
		t.Fatalf("connKey = %q", got)
	}
	if s.ttl != 10*time.Minute {
		t.Fatalf("default ttl = %v", s.ttl)
	}
}

func TestRedisStore_Online(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, addr, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer rdb.Close()

	s := NewRedisStore(rdb, "test-"+uuid.NewString()[:8], time.Minute)
	if err := s.Connected(ctx, "u1", "c1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Connected(ctx, "u1", "c2"); err != nil {
		t.Fatal(err)
	}

	on, err := s.Online(ctx, []string{"u1", "u2"})
	if err != nil {
		t.Fatal(err)
	}
	if !on["u1"] || on["u2"] {
		t.Fatalf("online = %v", on)
	}

	_ = s.Disconnected(ctx, "u1", "c1")
	on, _ = s.Online(ctx, []string{"u1"})
	if !on["u1"] {
		t.Fatal("u1 still has c2")
	}
	_ = s.Disconnected(ctx, "u1", "c2")
	on, _ = s.Online(ctx, []string{"u1"})
	if on["u1"] {
		t.Fatal("u1 should be offline")
	}
}

func TestRedisStore_RefreshOutlivesTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	s := NewRedisStore(rdb, "", 10*time.Minute)
	if err := s.Connected(ctx, "user_abc123", "c1"); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		mr.FastForward(6 * time.Minute)
		if err := s.Refresh(ctx, "user_abc123", "c1"); err != nil {
			t.Fatal(err)
		}
	}
	on, err := s.Online(ctx, []string{"user_abc123"})
	if err != nil {
		t.Fatal(err)
	}
	if !on["user_abc123"] {
		t.Fatal("refreshed connection reported offline")
	}

	// no refresh, as after a relay crash
	mr.FastForward(11 * time.Minute)
	on, _ = s.Online(ctx, []string{"user_abc123"})
	if on["user_abc123"] {
		t.Fatal("stale connection still online")
	}

	if err := s.Refresh(ctx, "user_abc123", "c1"); err != nil {
		t.Fatal(err)
	}
	on, _ = s.Online(ctx, []string{"user_abc123"})
	if !on["user_abc123"] {
		t.Fatal("refresh did not restore a lapsed key")
	}
}
