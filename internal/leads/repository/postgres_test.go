package repository

import (
	"context"
	"os"
	"testing"

	"lotshoppr_backend/internal/leads/domain"
	"lotshoppr_backend/platform/db"

	"github.com/jackc/pgx/v5/pgxpool"
)

// testDatabaseURLEnv points the store contract at a disposable Postgres
// database. Its lead tables are truncated before every subtest.
const testDatabaseURLEnv = "TEST_DATABASE_URL"

func newPostgresTestStore(t *testing.T, url string) Store {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE lead_conversation, leads`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPostgresStore(pool)
}

func TestPostgresStoreConversationOrder(t *testing.T) {
	url := os.Getenv(testDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseURLEnv)
	}
	store := newPostgresTestStore(t, url)
	ctx := context.Background()

	lead := newTestLead()
	lead.Conversation = []domain.ConversationEntry{{From: domain.FromCustomer, Text: "outreach"}}
	created, err := store.Create(ctx, lead)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, text := range []string{"first", "second"} {
		if _, err := store.AppendConversation(ctx, created.ID, domain.ConversationEntry{
			From:      domain.FromDealer,
			Dealer:    "sales@dealer.com",
			MessageID: "<" + text + "@dealer.com>",
			Text:      text,
		}); err != nil {
			t.Fatalf("append %s: %v", text, err)
		}
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := []string{"outreach", "first", "second"}
	if len(got.Conversation) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), got.Conversation)
	}
	for i, text := range want {
		if got.Conversation[i].Text != text {
			t.Errorf("entry %d: expected %q, got %q", i, text, got.Conversation[i].Text)
		}
	}
	if got.Conversation[2].MessageID != "<second@dealer.com>" || got.Conversation[2].Dealer != "sales@dealer.com" {
		t.Errorf("dealer metadata not persisted: %+v", got.Conversation[2])
	}
	if got.Constraints != created.Constraints || got.Vehicle != created.Vehicle {
		t.Errorf("documents did not round-trip: %+v", got)
	}
}
