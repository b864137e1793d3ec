package notify

import (
	"testing"
	"time"
)

func TestEvaluateWindowEmbeddedOffset(t *testing.T) {
	ist := time.FixedZone("", 5*3600+30*60)
	start := "2026-02-11T17:00:00+05:30"

	w, err := EvaluateWindow(start, nil, time.Date(2026, 2, 11, 10, 0, 0, 0, ist))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := w.Trigger.Format(time.RFC3339); got != "2026-02-11T09:00:00+05:30" {
		t.Errorf("trigger = %s, want 2026-02-11T09:00:00+05:30", got)
	}
	if got := w.End.Format(time.RFC3339); got != "2026-02-11T15:00:00+05:30" {
		t.Errorf("end = %s, want 2026-02-11T15:00:00+05:30", got)
	}

	tests := []struct {
		name string
		now  time.Time
		due  bool
	}{
		{"before trigger", time.Date(2026, 2, 11, 8, 59, 59, 0, ist), false},
		{"at trigger", time.Date(2026, 2, 11, 9, 0, 0, 0, ist), true},
		{"mid window", time.Date(2026, 2, 11, 12, 0, 0, 0, ist), true},
		{"at window end", time.Date(2026, 2, 11, 15, 0, 0, 0, ist), true},
		{"after window", time.Date(2026, 2, 11, 15, 0, 1, 0, ist), false},
		{"trigger given in UTC", time.Date(2026, 2, 11, 3, 30, 0, 0, time.UTC), true},
		{"day before", time.Date(2026, 2, 10, 10, 0, 0, 0, ist), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := EvaluateWindow(start, nil, tt.now)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if w.Due != tt.due {
				t.Errorf("due = %v, want %v (now %s, trigger %s)", w.Due, tt.due, w.Now, w.Trigger)
			}
		})
	}
}

func TestEvaluateWindowOverrideZone(t *testing.T) {
	dubai, err := time.LoadLocation("Asia/Dubai")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}

	// 01:00 in +05:30 is 23:30 the previous day in Dubai.
	start := "2026-02-11T01:00:00+05:30"
	now := time.Date(2026, 2, 10, 6, 0, 0, 0, time.UTC) // 10:00 in Dubai

	w, err := EvaluateWindow(start, dubai, now)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := w.Trigger.Format(time.RFC3339); got != "2026-02-10T09:00:00+04:00" {
		t.Errorf("trigger = %s, want 2026-02-10T09:00:00+04:00", got)
	}
	if w.Trigger.Location() != dubai || w.Now.Location() != dubai {
		t.Errorf("trigger/now zones = %v/%v, want Asia/Dubai", w.Trigger.Location(), w.Now.Location())
	}
	if !w.Due {
		t.Error("expected due in Asia/Dubai")
	}

	embedded, err := EvaluateWindow(start, nil, now)
	if err != nil {
		t.Fatalf("evaluate embedded: %v", err)
	}
	if embedded.Due {
		t.Error("expected not due with the embedded offset")
	}
}

func TestEvaluateWindowInvalidStart(t *testing.T) {
	for _, start := range []string{"", "tomorrow", "2026-02-11 17:00"} {
		if _, err := EvaluateWindow(start, nil, time.Now()); err == nil {
			t.Errorf("EvaluateWindow(%q) expected error", start)
		}
	}
}

func TestLoadZone(t *testing.T) {
	loc, err := loadZone("")
	if err != nil || loc != nil {
		t.Errorf("empty zone = (%v, %v), want (nil, nil)", loc, err)
	}
	if _, err := loadZone("Mars/Olympus"); err == nil {
		t.Error("expected error for unknown zone")
	}
}
