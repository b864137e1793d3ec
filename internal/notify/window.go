package notify

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	// MorningHour is the local hour at which an event's day-of reminder
	// becomes due.
	MorningHour = 9

	// DueWindow is how long after the morning trigger a reminder may still
	// be sent. It spans several sweep intervals so a late tick still fires.
	DueWindow = 6 * time.Hour
)

// Window is the morning reminder window for one event.
type Window struct {
	Start   time.Time
	Trigger time.Time
	End     time.Time
	Now     time.Time
	Due     bool
}

// EvaluateWindow computes the morning reminder window for an event starting
// at startsAt, an RFC 3339 timestamp with offset. A non-nil loc re-anchors
// the start, the trigger and now to that zone; otherwise the offset embedded
// in startsAt is used.
func EvaluateWindow(startsAt string, loc *time.Location, now time.Time) (Window, error) {
	start, err := time.Parse(time.RFC3339, startsAt)
	if err != nil {
		return Window{}, fmt.Errorf("parse event start %q: %w", startsAt, err)
	}
	if loc != nil {
		start = start.In(loc)
	}

	y, m, d := start.Date()
	trigger := time.Date(y, m, d, MorningHour, 0, 0, 0, start.Location())
	end := trigger.Add(DueWindow)
	now = now.In(start.Location())

	return Window{
		Start:   start,
		Trigger: trigger,
		End:     end,
		Now:     now,
		Due:     !now.Before(trigger) && !now.After(end),
	}, nil
}

// loadZone resolves a wedding's timezone name. An empty name yields nil.
func loadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
