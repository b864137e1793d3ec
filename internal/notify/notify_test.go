package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dukerupert/weddingbell/internal/database"
	"github.com/dukerupert/weddingbell/internal/model"
	"github.com/dukerupert/weddingbell/internal/push"
	"github.com/dukerupert/weddingbell/internal/store"
	"github.com/dukerupert/weddingbell/internal/websocket"
	"github.com/dukerupert/weddingbell/internal/whatsapp"
)

type fakeSender struct {
	mu         sync.Mutex
	configured bool
	fail       map[string]bool
	attempts   []whatsapp.TemplateMessage
}

func (f *fakeSender) Configured() bool { return f.configured }

func (f *fakeSender) SendTemplate(ctx context.Context, msg whatsapp.TemplateMessage) (whatsapp.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, msg)
	if f.fail[msg.To] {
		return whatsapp.SendResult{}, &whatsapp.APIError{Status: 400, Body: "invalid recipient"}
	}
	return whatsapp.SendResult{MessageID: "wamid." + msg.To}, nil
}

func (f *fakeSender) attemptedTo(phone string) bool {
	for _, m := range f.attempts {
		if m.To == phone {
			return true
		}
	}
	return false
}

type fakePusher struct {
	mu           sync.Mutex
	calls        [][]string
	msgs         []push.Message
	failCall     map[int]bool
	unregistered map[string]bool
}

func (f *fakePusher) SendMulticast(ctx context.Context, msg push.Message, tokens []string) (*push.BatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.calls)
	f.calls = append(f.calls, append([]string(nil), tokens...))
	f.msgs = append(f.msgs, msg)
	if f.failCall[idx] {
		return nil, errors.New("service unavailable")
	}

	br := &push.BatchResponse{}
	for _, tok := range tokens {
		if f.unregistered[tok] {
			br.FailureCount++
			br.Responses = append(br.Responses, push.SendResponse{Token: tok, Error: push.ErrUnregistered})
			continue
		}
		br.SuccessCount++
		br.Responses = append(br.Responses, push.SendResponse{Token: tok, MessageID: "m-" + tok})
	}
	return br, nil
}

type fakeHub struct {
	msgs []websocket.Message
}

func (h *fakeHub) Broadcast(msg websocket.Message) {
	h.msgs = append(h.msgs, msg)
}

type fixture struct {
	stores Stores
	sender *fakeSender
	pusher *fakePusher
	hub    *fakeHub
	d      *Dispatcher
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		stores: Stores{
			Weddings: store.NewWeddingStore(db),
			Events:   store.NewEventStore(db),
			Guests:   store.NewGuestStore(db),
			RSVPs:    store.NewRSVPStore(db),
			Users:    store.NewUserStore(db),
		},
		sender: &fakeSender{configured: true, fail: map[string]bool{}},
		pusher: &fakePusher{failCall: map[int]bool{}, unregistered: map[string]bool{}},
		hub:    &fakeHub{},
	}
	f.d = NewDispatcher(Config{AppLink: "https://example.com/app"}, f.stores, f.sender, f.pusher, f.hub, discardLogger())
	return f
}

func (f *fixture) wedding(t *testing.T, w model.Wedding) *model.Wedding {
	t.Helper()
	created, err := f.stores.Weddings.Create(context.Background(), w)
	if err != nil {
		t.Fatalf("create wedding: %v", err)
	}
	return created
}

func (f *fixture) event(t *testing.T, e model.Event) *model.Event {
	t.Helper()
	created, err := f.stores.Events.Create(context.Background(), e)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return created
}

func (f *fixture) guest(t *testing.T, g model.Guest) *model.Guest {
	t.Helper()
	created, err := f.stores.Guests.Create(context.Background(), g)
	if err != nil {
		t.Fatalf("create guest: %v", err)
	}
	return created
}

// goingUser creates an RSVP going to eventID and a user behind it holding
// the given enabled tokens.
func (f *fixture) goingUser(t *testing.T, weddingID, eventID string, tokens ...string) *model.User {
	t.Helper()
	ctx := context.Background()
	rsvp, err := f.stores.RSVPs.Create(ctx, model.RSVP{
		WeddingID: weddingID,
		Responses: map[string]string{eventID: model.RSVPGoing},
	})
	if err != nil {
		t.Fatalf("create rsvp: %v", err)
	}
	u, err := f.stores.Users.Create(ctx, model.User{ActiveWeddingID: weddingID, RSVPID: rsvp.ID})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, tok := range tokens {
		if err := f.stores.Users.SetPushToken(ctx, u.ID, tok, true); err != nil {
			t.Fatalf("set token: %v", err)
		}
	}
	return u
}

func numberedTokens(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%04d", prefix, i)
	}
	return out
}
