package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/cwrk-planet/support-relay/internal/domain"
	"github.com/cwrk-planet/support-relay/internal/pg"
	"github.com/cwrk-planet/support-relay/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newTestPool connects to TEST_DATABASE_URL, applies the schema and empties both tables.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pg.NewPool(ctx, pg.Config{DSN: dsn, MaxConns: 4})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pg.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := NewPurger(pool).Purge(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}
	return pool
}

func TestUserRepo_CreateIfNotExists(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	users := NewUserRepoFromPool(pool)

	u := &domain.User{ID: "user_abc123", CreatedAt: time.Now()}
	created, err := users.CreateIfNotExists(ctx, u)
	if err != nil || !created {
		t.Fatalf("first create = %v, %v", created, err)
	}
	created, err = users.CreateIfNotExists(ctx, &domain.User{ID: "user_abc123", CreatedAt: time.Now()})
	if err != nil || created {
		t.Fatalf("second create = %v, %v", created, err)
	}

	got, err := users.GetByID(ctx, "user_abc123")
	if err != nil || got.ID != "user_abc123" || got.Name != nil {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}
	if _, err := users.GetByID(ctx, "nobody"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessageRepo_OrderAndForeignKey(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	users := NewUserRepoFromPool(pool)
	msgs := NewMessageRepoFromPool(pool)

	if _, err := users.CreateIfNotExists(ctx, &domain.User{ID: "u1", CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	var prev time.Time
	for _, text := range []string{"one", "two", "three"} {
		m := &domain.Message{ID: uuid.NewString(), Content: text, Sender: domain.SenderUser, UserID: "u1"}
		if err := msgs.Create(ctx, m); err != nil {
			t.Fatalf("create %q: %v", text, err)
		}
		if m.CreatedAt.Before(prev) {
			t.Fatalf("createdAt went backwards: %v < %v", m.CreatedAt, prev)
		}
		prev = m.CreatedAt
	}

	list, err := msgs.ListByUser(ctx, "u1")
	if err != nil || len(list) != 3 {
		t.Fatalf("ListByUser = %d, %v", len(list), err)
	}
	if list[0].Content != "one" || list[2].Content != "three" {
		t.Fatalf("wrong order: %+v", list)
	}

	orphan := &domain.Message{ID: uuid.NewString(), Content: "x", Sender: domain.SenderUser, UserID: "ghost"}
	if err := msgs.Create(ctx, orphan); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	empty, err := msgs.ListByUser(ctx, "ghost")
	if err != nil || len(empty) != 0 {
		t.Fatalf("unknown user should list empty, got %d, %v", len(empty), err)
	}
}

func TestMessageRepo_EqualTimestampsKeepInsertOrder(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	users := NewUserRepoFromPool(pool)
	msgs := NewMessageRepoFromPool(pool)

	if _, err := users.CreateIfNotExists(ctx, &domain.User{ID: "u1", CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	// ids sort opposite to insert order
	at := time.Now().UTC().Truncate(time.Microsecond)
	ids := []string{"m-e", "m-d", "m-c", "m-b", "m-a"}
	for _, id := range ids {
		if _, err := pool.Exec(ctx,
			`INSERT INTO messages (id, content, sender, user_id, created_at) VALUES ($1, $1, 'user', 'u1', $2)`,
			id, at,
		); err != nil {
			t.Fatal(err)
		}
	}

	list, err := msgs.ListByUser(ctx, "u1")
	if err != nil || len(list) != len(ids) {
		t.Fatalf("ListByUser = %d, %v", len(list), err)
	}
	for i, m := range list {
		if m.ID != ids[i] {
			t.Fatalf("position %d: got %s, want %s", i, m.ID, ids[i])
		}
	}

	chats, err := users.ListChats(ctx)
	if err != nil || len(chats) != 1 || chats[0].Latest == nil {
		t.Fatalf("ListChats = %+v, %v", chats, err)
	}
	if chats[0].Latest.ID != "m-a" {
		t.Fatalf("latest = %s, want the last inserted", chats[0].Latest.ID)
	}
}

func TestUserRepo_ListChatsAndPurge(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	users := NewUserRepoFromPool(pool)
	msgs := NewMessageRepoFromPool(pool)

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"quiet", "early", "late"} {
		if _, err := users.CreateIfNotExists(ctx, &domain.User{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range []string{"early", "late", "late"} {
		m := &domain.Message{ID: uuid.NewString(), Content: "hi " + id, Sender: domain.SenderUser, UserID: id}
		if err := msgs.Create(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	chats, err := users.ListChats(ctx)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 3 {
		t.Fatalf("expected 3 chats, got %d", len(chats))
	}
	if chats[0].User.ID != "late" || chats[1].User.ID != "early" || chats[2].User.ID != "quiet" {
		t.Fatalf("wrong order: %s %s %s", chats[0].User.ID, chats[1].User.ID, chats[2].User.ID)
	}
	if chats[2].Latest != nil {
		t.Fatalf("quiet user should have no message, got %+v", chats[2].Latest)
	}

	res, err := NewPurger(pool).Purge(ctx)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if res.Messages != 3 || res.Users != 3 {
		t.Fatalf("unexpected purge result %+v", res)
	}
	chats, err = users.ListChats(ctx)
	if err != nil || len(chats) != 0 {
		t.Fatalf("after purge: %d, %v", len(chats), err)
	}
}
