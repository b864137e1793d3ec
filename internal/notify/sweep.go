package notify

import (
	"context"
	"time"

	"github.com/dukerupert/weddingbell/internal/model"
)

// Sweep outcomes per event.
const (
	SweepSent         = "sent"
	SweepNotDue       = "not_due"
	SweepInvalidStart = "invalid_start"
	SweepClaimed      = "claimed"
	SweepFailed       = "failed"
)

// SweepEvent is the outcome of the sweep for one pending event.
type SweepEvent struct {
	WeddingID string `json:"weddingId"`
	EventID   string `json:"eventId"`
	Status    string `json:"status"`
	Tokens    int    `json:"tokens,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// SweepReport summarizes one morning sweep.
type SweepReport struct {
	Weddings int          `json:"weddings"`
	Events   []SweepEvent `json:"events"`
}

// Count returns how many events ended with status.
func (r *SweepReport) Count(status string) int {
	n := 0
	for _, e := range r.Events {
		if e.Status == status {
			n++
		}
	}
	return n
}

// RunMorningSweep sends the day-of reminder for every pending event whose
// morning window is open, then flags the event so it is never sent again.
// Failures are logged and leave the event pending for a later sweep.
func (d *Dispatcher) RunMorningSweep(ctx context.Context) *SweepReport {
	report := &SweepReport{Events: []SweepEvent{}}
	if d.pusher == nil {
		d.logger.Warn("morning sweep skipped: push gateway not configured")
		return report
	}

	now := d.now()
	weddings, err := d.weddings.List(ctx)
	if err != nil {
		d.logger.Error("morning sweep: list weddings", "error", err)
		return report
	}

	for _, w := range weddings {
		report.Weddings++

		loc, err := loadZone(w.Timezone)
		if err != nil {
			d.logger.Warn("morning sweep: unknown timezone, using event offset", "wedding_id", w.ID, "error", err)
		}

		events, err := d.events.ListPendingMorning(ctx, w.ID)
		if err != nil {
			d.logger.Error("morning sweep: list events", "wedding_id", w.ID, "error", err)
			continue
		}

		for i := range events {
			report.Events = append(report.Events, d.sweepEvent(ctx, &events[i], loc, now))
		}
	}

	d.logger.Info("morning sweep complete",
		"weddings", report.Weddings, "pending", len(report.Events),
		"sent", report.Count(SweepSent), "failed", report.Count(SweepFailed),
	)
	return report
}

func (d *Dispatcher) sweepEvent(ctx context.Context, e *model.Event, loc *time.Location, now time.Time) SweepEvent {
	out := SweepEvent{WeddingID: e.WeddingID, EventID: e.ID}

	win, err := EvaluateWindow(e.StartsAt, loc, now)
	if err != nil {
		d.logger.Warn("morning sweep: bad event start", "event_id", e.ID, "starts_at", e.StartsAt, "error", err)
		out.Status = SweepInvalidStart
		out.Reason = err.Error()
		return out
	}
	if !win.Due {
		out.Status = SweepNotDue
		return out
	}

	claimed, err := d.events.ClaimMorning(ctx, e.ID, now, d.cfg.ClaimLease)
	if err != nil {
		d.logger.Error("morning sweep: claim event", "event_id", e.ID, "error", err)
		out.Status = SweepFailed
		out.Reason = err.Error()
		return out
	}
	if !claimed {
		out.Status = SweepClaimed
		return out
	}

	tokens, err := d.eventTokens(ctx, e.WeddingID, e.ID)
	if err != nil {
		d.logger.Error("morning sweep: resolve tokens", "event_id", e.ID, "error", err)
		out.Status = SweepFailed
		out.Reason = err.Error()
		return out
	}

	report := d.multicast(ctx, defaultMessage(e, TypeEventMorning), tokens)
	if err := d.events.MarkMorningNotified(ctx, e.ID, report.Tokens, d.now()); err != nil {
		d.logger.Error("morning sweep: mark notified", "event_id", e.ID, "error", err)
		out.Status = SweepFailed
		out.Reason = err.Error()
		return out
	}

	d.logger.Info("morning reminder sent",
		"wedding_id", e.WeddingID, "event_id", e.ID, "local_trigger", win.Trigger.Format(time.RFC3339),
		"tokens", report.Tokens, "success", report.SuccessCount, "failure", report.FailureCount,
	)
	d.broadcast("morning_reminder", e.WeddingID, e.ID, map[string]any{
		"tokens":       report.Tokens,
		"successCount": report.SuccessCount,
		"failureCount": report.FailureCount,
	})

	out.Status = SweepSent
	out.Tokens = report.Tokens
	return out
}
