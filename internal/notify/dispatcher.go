// Package notify sends wedding invites and event reminders and records which
// guests and events have already been notified.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/weddingbell/internal/model"
	"github.com/dukerupert/weddingbell/internal/push"
	"github.com/dukerupert/weddingbell/internal/store"
	"github.com/dukerupert/weddingbell/internal/websocket"
	"github.com/dukerupert/weddingbell/internal/whatsapp"
)

const (
	DefaultAppLink      = "https://yourapp.com/download"
	DefaultSendTimeout  = 10 * time.Second
	DefaultChunkTimeout = 60 * time.Second
	DefaultClaimLease   = 15 * time.Minute

	defaultGuestName = "there"
)

// Data payload types attached to push notifications.
const (
	TypeEventNotification = "event_notification"
	TypeEventCustom       = "event_custom"
	TypeEventMorning      = "event_morning"
)

// Config holds the dispatcher settings.
type Config struct {
	// AppLink is the download link placed in invites.
	AppLink string
	// SendTimeout bounds one template send.
	SendTimeout time.Duration
	// ChunkTimeout bounds one multicast call.
	ChunkTimeout time.Duration
	// ClaimLease is how long a sweep owns an event it is notifying.
	ClaimLease time.Duration
	// InvitesRequireAdmin makes invite dispatch require a wedding admin caller.
	InvitesRequireAdmin bool
}

func (c Config) withDefaults() Config {
	if c.AppLink == "" {
		c.AppLink = DefaultAppLink
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	if c.ChunkTimeout <= 0 {
		c.ChunkTimeout = DefaultChunkTimeout
	}
	if c.ClaimLease <= 0 {
		c.ClaimLease = DefaultClaimLease
	}
	return c
}

// Stores groups the stores the dispatcher reads and writes.
type Stores struct {
	Weddings *store.WeddingStore
	Events   *store.EventStore
	Guests   *store.GuestStore
	RSVPs    *store.RSVPStore
	Users    *store.UserStore
}

// Broadcaster receives a message for each completed dispatch.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

// Dispatcher sends invites and reminders. A nil sender or pusher disables the
// matching dispatch path; a nil hub disables live updates.
type Dispatcher struct {
	cfg      Config
	weddings *store.WeddingStore
	events   *store.EventStore
	guests   *store.GuestStore
	rsvps    *store.RSVPStore
	users    *store.UserStore
	tokens   *TokenResolver
	sender   whatsapp.Sender
	pusher   push.Multicaster
	hub      Broadcaster
	logger   *slog.Logger
	now      func() time.Time
}

func NewDispatcher(cfg Config, stores Stores, sender whatsapp.Sender, pusher push.Multicaster, hub Broadcaster, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg.withDefaults(),
		weddings: stores.Weddings,
		events:   stores.Events,
		guests:   stores.Guests,
		rsvps:    stores.RSVPs,
		users:    stores.Users,
		tokens:   NewTokenResolver(stores.Users, logger),
		sender:   sender,
		pusher:   pusher,
		hub:      hub,
		logger:   logger,
		now:      time.Now,
	}
}

// Per-guest invite outcomes.
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Result is the outcome of one invite.
type Result struct {
	GuestID   string `json:"guestId"`
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// InviteReport summarizes one invite dispatch. Skipped guests are not
// candidates.
type InviteReport struct {
	Sent            int      `json:"sent"`
	TotalCandidates int      `json:"totalCandidates"`
	Results         []Result `json:"results"`
}

func newInviteReport(results []Result) *InviteReport {
	r := &InviteReport{Results: results}
	for _, res := range results {
		switch res.Status {
		case StatusSent:
			r.Sent++
			r.TotalCandidates++
		case StatusFailed:
			r.TotalCandidates++
		}
	}
	return r
}

// ChunkResult is the outcome of one multicast call.
type ChunkResult struct {
	Tokens       int    `json:"tokens"`
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
	Error        string `json:"error,omitempty"`
}

// NotifyReport summarizes one push dispatch across all chunks.
type NotifyReport struct {
	Tokens       int           `json:"tokens"`
	SuccessCount int           `json:"successCount"`
	FailureCount int           `json:"failureCount"`
	Chunks       []ChunkResult `json:"chunks"`
}

func newNotifyReport(chunks []ChunkResult) *NotifyReport {
	r := &NotifyReport{Chunks: chunks}
	for _, c := range chunks {
		r.Tokens += c.Tokens
		r.SuccessCount += c.SuccessCount
		r.FailureCount += c.FailureCount
	}
	return r
}

// NotificationRequest targets one event. Empty Title and Body fall back to
// defaults where the call allows it.
type NotificationRequest struct {
	WeddingID string
	EventID   string
	Title     string
	Body      string
}

// SendInvites sends the invite template to every guest of a wedding whose
// invite has not been sent. A non-empty eventID limits the send to guests
// linked to that event. Successful guests are flagged in one batch commit.
func (d *Dispatcher) SendInvites(ctx context.Context, callerID, weddingID, eventID string) (*InviteReport, error) {
	if weddingID == "" {
		return nil, fmt.Errorf("%w: weddingId is required", ErrInvalidArgument)
	}
	if d.sender == nil || !d.sender.Configured() {
		d.logMissingSender()
		return nil, fmt.Errorf("%w: WhatsApp is not configured on the server", ErrFailedPrecondition)
	}

	wedding, err := d.loadWedding(ctx, weddingID)
	if err != nil {
		return nil, err
	}
	if d.cfg.InvitesRequireAdmin {
		if err := authorize(wedding, callerID); err != nil {
			return nil, err
		}
	}

	var targets map[string]struct{}
	if eventID != "" {
		targets, err = d.guests.EventGuestIDs(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("load event guests: %w", err)
		}
	}

	guests, err := d.guests.ListPendingInvites(ctx, weddingID)
	if err != nil {
		return nil, fmt.Errorf("load pending guests: %w", err)
	}

	coupleName := wedding.DisplayCoupleName()
	batch := d.guests.NewBatch()
	results := []Result{}

	for _, g := range guests {
		if targets != nil {
			if _, ok := targets[g.ID]; !ok {
				continue
			}
		}

		phone := strings.TrimSpace(g.Phone)
		if phone == "" {
			d.logger.Info("skipping guest without phone", "guest_id", g.ID)
			results = append(results, Result{GuestID: g.ID, Status: StatusSkipped, Reason: "no phone"})
			continue
		}

		name := strings.TrimSpace(g.Name)
		if name == "" {
			name = defaultGuestName
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		res, err := d.sender.SendTemplate(sendCtx, whatsapp.TemplateMessage{
			To:       phone,
			Template: whatsapp.InviteTemplate,
			Language: whatsapp.InviteLanguage,
			Params:   []string{name, coupleName, d.cfg.AppLink},
		})
		cancel()
		if err != nil {
			d.logger.Warn("invite failed", "guest_id", g.ID, "error", err)
			results = append(results, Result{GuestID: g.ID, Status: StatusFailed, Reason: err.Error()})
			continue
		}

		batch.MarkInviteSent(g.ID)
		results = append(results, Result{GuestID: g.ID, Status: StatusSent, MessageID: res.MessageID})
	}

	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit invite flags: %w", err)
		}
	}

	report := newInviteReport(results)
	d.logger.Info("invites dispatched",
		"wedding_id", weddingID, "event_id", eventID,
		"sent", report.Sent, "total_candidates", report.TotalCandidates,
	)
	d.broadcast("invites", weddingID, eventID, map[string]any{
		"sent":            report.Sent,
		"totalCandidates": report.TotalCandidates,
	})
	return report, nil
}

// SendEventNotification pushes a notification to everyone going to an event.
// Missing title and body use the event defaults. The event's morning flag is
// left untouched so the call can be repeated.
func (d *Dispatcher) SendEventNotification(ctx context.Context, req NotificationRequest) (*NotifyReport, error) {
	if err := validateTarget(req); err != nil {
		return nil, err
	}
	if err := d.requirePusher(); err != nil {
		return nil, err
	}

	if _, err := d.loadWedding(ctx, req.WeddingID); err != nil {
		return nil, err
	}
	event, err := d.loadEvent(ctx, req.WeddingID, req.EventID)
	if err != nil {
		return nil, err
	}

	msg := defaultMessage(event, TypeEventNotification)
	if t := strings.TrimSpace(req.Title); t != "" {
		msg.Title = t
	}
	if b := strings.TrimSpace(req.Body); b != "" {
		msg.Body = b
	}

	return d.notifyEvent(ctx, req.WeddingID, event, msg, "event_notification")
}

// SendCustomEventNotification pushes a caller-written notification to
// everyone going to an event. The caller must be signed in and, when the
// wedding lists admins, be one of them.
func (d *Dispatcher) SendCustomEventNotification(ctx context.Context, callerID string, req NotificationRequest) (*NotifyReport, error) {
	if err := validateTarget(req); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	body := strings.TrimSpace(req.Body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: title and body are required", ErrInvalidArgument)
	}
	if callerID == "" {
		return nil, fmt.Errorf("%w: sign in to send notifications", ErrUnauthenticated)
	}
	if err := d.requirePusher(); err != nil {
		return nil, err
	}

	wedding, err := d.loadWedding(ctx, req.WeddingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(wedding, callerID); err != nil {
		return nil, err
	}
	event, err := d.loadEvent(ctx, req.WeddingID, req.EventID)
	if err != nil {
		return nil, err
	}

	msg := defaultMessage(event, TypeEventCustom)
	msg.Title = title
	msg.Body = body

	return d.notifyEvent(ctx, req.WeddingID, event, msg, "event_custom")
}

func (d *Dispatcher) notifyEvent(ctx context.Context, weddingID string, event *model.Event, msg push.Message, entity string) (*NotifyReport, error) {
	tokens, err := d.eventTokens(ctx, weddingID, event.ID)
	if err != nil {
		return nil, err
	}

	report := d.multicast(ctx, msg, tokens)
	d.logger.Info("event notification dispatched",
		"wedding_id", weddingID, "event_id", event.ID, "type", msg.Data["type"],
		"tokens", report.Tokens, "success", report.SuccessCount, "failure", report.FailureCount,
	)
	d.broadcast(entity, weddingID, event.ID, map[string]any{
		"tokens":       report.Tokens,
		"successCount": report.SuccessCount,
		"failureCount": report.FailureCount,
	})
	return report, nil
}

// eventTokens returns the distinct tokens of users whose RSVP is going to the
// event, in first-seen order.
func (d *Dispatcher) eventTokens(ctx context.Context, weddingID, eventID string) ([]string, error) {
	rsvpIDs, err := d.rsvps.ListIDsByResponse(ctx, weddingID, eventID, model.RSVPGoing)
	if err != nil {
		return nil, fmt.Errorf("load going rsvps: %w", err)
	}

	tokens := []string{}
	seen := make(map[string]struct{})
	for _, id := range rsvpIDs {
		for _, tok := range d.tokens.Resolve(ctx, weddingID, id) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	return tokens, nil
}

// multicast sends msg to tokens in chunks. A failed chunk counts all of its
// tokens as failures and does not stop later chunks.
func (d *Dispatcher) multicast(ctx context.Context, msg push.Message, tokens []string) *NotifyReport {
	chunks := []ChunkResult{}
	for _, chunk := range push.Chunk(tokens, push.MaxMulticastTokens) {
		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.ChunkTimeout)
		br, err := d.pusher.SendMulticast(sendCtx, msg, chunk)
		cancel()
		if err != nil {
			d.logger.Error("multicast chunk failed", "tokens", len(chunk), "error", err)
			chunks = append(chunks, ChunkResult{Tokens: len(chunk), FailureCount: len(chunk), Error: err.Error()})
			continue
		}

		for _, r := range br.Responses {
			if errors.Is(r.Error, push.ErrUnregistered) {
				if err := d.users.DisableToken(ctx, r.Token); err != nil {
					d.logger.Warn("disable unregistered token", "error", err)
				}
			}
		}
		chunks = append(chunks, ChunkResult{
			Tokens:       len(chunk),
			SuccessCount: br.SuccessCount,
			FailureCount: br.FailureCount,
		})
	}
	return newNotifyReport(chunks)
}

func (d *Dispatcher) loadWedding(ctx context.Context, weddingID string) (*model.Wedding, error) {
	w, err := d.weddings.GetByID(ctx, weddingID)
	if err != nil {
		return nil, fmt.Errorf("load wedding: %w", err)
	}
	if w == nil {
		return nil, fmt.Errorf("%w: wedding not found", ErrNotFound)
	}
	return w, nil
}

func (d *Dispatcher) loadEvent(ctx context.Context, weddingID, eventID string) (*model.Event, error) {
	e, err := d.events.GetByID(ctx, weddingID, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: event not found", ErrNotFound)
	}
	return e, nil
}

func (d *Dispatcher) requirePusher() error {
	if d.pusher == nil {
		d.logger.Error("push gateway not configured")
		return fmt.Errorf("%w: push notifications are not configured on the server", ErrFailedPrecondition)
	}
	return nil
}

func (d *Dispatcher) logMissingSender() {
	attrs := []any{"sender_present", d.sender != nil}
	if m, ok := d.sender.(interface{ Missing() []string }); ok {
		attrs = append(attrs, "missing", strings.Join(m.Missing(), ", "))
	}
	d.logger.Error("whatsapp gateway not configured", attrs...)
}

func (d *Dispatcher) broadcast(entity, weddingID, id string, extra map[string]any) {
	if d.hub == nil {
		return
	}
	d.hub.Broadcast(websocket.NewMessage(entity, "dispatched", weddingID, id, extra))
}

func validateTarget(req NotificationRequest) error {
	if req.WeddingID == "" {
		return fmt.Errorf("%w: weddingId is required", ErrInvalidArgument)
	}
	if req.EventID == "" {
		return fmt.Errorf("%w: eventId is required", ErrInvalidArgument)
	}
	return nil
}

// authorize requires a signed-in caller and, for weddings that list admins,
// admin membership.
func authorize(w *model.Wedding, callerID string) error {
	if callerID == "" {
		return fmt.Errorf("%w: sign in required", ErrUnauthenticated)
	}
	if len(w.Admins) > 0 && !w.IsAdmin(callerID) {
		return fmt.Errorf("%w: not an admin of this wedding", ErrPermissionDenied)
	}
	return nil
}

func defaultMessage(e *model.Event, kind string) push.Message {
	return push.Message{
		Title: e.Title,
		Body:  fmt.Sprintf("Today is the day! See you at %s.", e.Title),
		Data: map[string]string{
			"type":      kind,
			"weddingId": e.WeddingID,
			"eventId":   e.ID,
		},
	}
}
