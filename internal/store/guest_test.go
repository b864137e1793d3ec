package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/weddingbell/internal/model"
)

func setupGuestTestStore(t *testing.T) (*GuestStore, *EventStore) {
	t.Helper()
	db := setupTestDB(t)
	if _, err := NewWeddingStore(db).Create(context.Background(), model.Wedding{ID: "w1"}); err != nil {
		t.Fatalf("create wedding: %v", err)
	}
	return NewGuestStore(db), NewEventStore(db)
}

func TestGuestListPendingInvites(t *testing.T) {
	gs, _ := setupGuestTestStore(t)
	ctx := context.Background()

	gs.Create(ctx, model.Guest{WeddingID: "w1", Name: "Ann", Phone: "+15550001"})
	gs.Create(ctx, model.Guest{WeddingID: "w1", Name: "Ben", Phone: "+15550002", MasterInviteSent: true})

	pending, err := gs.ListPendingInvites(ctx, "w1")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "Ann" {
		t.Errorf("pending = %+v, want only Ann", pending)
	}
}

func TestGuestBatchCommit(t *testing.T) {
	gs, _ := setupGuestTestStore(t)
	ctx := context.Background()

	g1, _ := gs.Create(ctx, model.Guest{WeddingID: "w1", Name: "Ann"})
	g2, _ := gs.Create(ctx, model.Guest{WeddingID: "w1", Name: "Ben"})
	g3, _ := gs.Create(ctx, model.Guest{WeddingID: "w1", Name: "Cat"})

	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	batch := gs.NewBatch()
	batch.now = func() time.Time { return stamp }
	batch.MarkInviteSent(g1.ID)
	batch.MarkInviteSent(g2.ID)
	if batch.Len() != 2 {
		t.Fatalf("len = %d, want 2", batch.Len())
	}

	// Nothing is written before commit.
	pending, _ := gs.ListPendingInvites(ctx, "w1")
	if len(pending) != 3 {
		t.Fatalf("pending before commit = %d, want 3", len(pending))
	}

	if err := batch.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if batch.Len() != 0 {
		t.Errorf("len after commit = %d, want 0", batch.Len())
	}

	pending, _ = gs.ListPendingInvites(ctx, "w1")
	if len(pending) != 1 || pending[0].ID != g3.ID {
		t.Errorf("pending after commit = %+v, want only %s", pending, g3.ID)
	}

	got, _ := gs.GetByID(ctx, "w1", g1.ID)
	if got.MasterInviteSentAt == nil || !got.MasterInviteSentAt.Equal(stamp) {
		t.Errorf("sent_at = %v, want %v", got.MasterInviteSentAt, stamp)
	}
}

func TestGuestBatchEmptyCommit(t *testing.T) {
	gs, _ := setupGuestTestStore(t)

	if err := gs.NewBatch().Commit(context.Background()); err != nil {
		t.Errorf("empty commit: %v", err)
	}
}

func TestGuestEventLinks(t *testing.T) {
	gs, es := setupGuestTestStore(t)
	ctx := context.Background()

	e, _ := es.Create(ctx, model.Event{WeddingID: "w1", Title: "Mehndi"})
	g, _ := gs.Create(ctx, model.Guest{WeddingID: "w1", Name: "Ann"})

	if err := gs.LinkEvent(ctx, e.ID, g.ID, ""); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := gs.LinkEvent(ctx, e.ID, g.ID, model.EventGuestInvited); err != nil {
		t.Fatalf("relink: %v", err)
	}

	ids, err := gs.EventGuestIDs(ctx, e.ID)
	if err != nil {
		t.Fatalf("event guest ids: %v", err)
	}
	if _, ok := ids[g.ID]; !ok || len(ids) != 1 {
		t.Errorf("ids = %v, want {%s}", ids, g.ID)
	}
}
