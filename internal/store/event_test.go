package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/weddingbell/internal/model"
)

func setupEventTestStores(t *testing.T) (*WeddingStore, *EventStore) {
	t.Helper()
	db := setupTestDB(t)
	ws := NewWeddingStore(db)
	if _, err := ws.Create(context.Background(), model.Wedding{ID: "w1", CoupleName: "A & B"}); err != nil {
		t.Fatalf("create wedding: %v", err)
	}
	return ws, NewEventStore(db)
}

func TestEventCreateAndGet(t *testing.T) {
	_, es := setupEventTestStores(t)
	ctx := context.Background()

	e, err := es.Create(ctx, model.Event{WeddingID: "w1", Title: "Sangeet", StartsAt: "2025-12-20T18:00:00+05:30"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if e.Status != "upcoming" {
		t.Errorf("status = %q, want upcoming", e.Status)
	}
	if e.MorningNotified {
		t.Error("new event should not be notified")
	}

	other, err := es.GetByID(ctx, "w2", e.ID)
	if err != nil {
		t.Fatalf("get from other wedding: %v", err)
	}
	if other != nil {
		t.Error("event should not resolve under a different wedding")
	}
}

func TestEventClaimMorning(t *testing.T) {
	_, es := setupEventTestStores(t)
	ctx := context.Background()
	e, _ := es.Create(ctx, model.Event{WeddingID: "w1", Title: "Haldi"})

	now := time.Date(2025, 12, 20, 4, 0, 0, 0, time.UTC)
	lease := 15 * time.Minute

	ok, err := es.ClaimMorning(ctx, e.ID, now, lease)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !ok {
		t.Fatal("first claim should succeed")
	}

	ok, _ = es.ClaimMorning(ctx, e.ID, now.Add(5*time.Minute), lease)
	if ok {
		t.Error("claim inside the lease should fail")
	}

	ok, _ = es.ClaimMorning(ctx, e.ID, now.Add(20*time.Minute), lease)
	if !ok {
		t.Error("claim after the lease expires should succeed")
	}
}

func TestEventMarkMorningNotified(t *testing.T) {
	_, es := setupEventTestStores(t)
	ctx := context.Background()
	e1, _ := es.Create(ctx, model.Event{WeddingID: "w1", Title: "Haldi"})
	e2, _ := es.Create(ctx, model.Event{WeddingID: "w1", Title: "Reception"})

	at := time.Date(2025, 12, 20, 4, 0, 0, 0, time.UTC)
	if err := es.MarkMorningNotified(ctx, e1.ID, 0, at); err != nil {
		t.Fatalf("mark: %v", err)
	}

	got, _ := es.GetByID(ctx, "w1", e1.ID)
	if !got.MorningNotified {
		t.Error("expected morning_notified set")
	}
	if got.MorningNotifiedAt == nil || !got.MorningNotifiedAt.Equal(at) {
		t.Errorf("notified_at = %v, want %v", got.MorningNotifiedAt, at)
	}

	pending, err := es.ListPendingMorning(ctx, "w1")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != e2.ID {
		t.Errorf("pending = %+v, want only %s", pending, e2.ID)
	}

	ok, _ := es.ClaimMorning(ctx, e1.ID, at.Add(time.Hour), time.Minute)
	if ok {
		t.Error("notified event must not be claimable")
	}
}
