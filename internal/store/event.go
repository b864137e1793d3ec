package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/weddingbell/internal/model"

	"github.com/google/uuid"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, wedding_id, title, starts_at, venue, dress_code, status,
	morning_notified, morning_notified_at, morning_notified_count, created_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var notified int
	var notifiedAt sql.NullTime

	err := scanner.Scan(&e.ID, &e.WeddingID, &e.Title, &e.StartsAt, &e.Venue, &e.DressCode, &e.Status,
		&notified, &notifiedAt, &e.MorningNotifiedCount, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.MorningNotified = notified != 0
	if notifiedAt.Valid {
		e.MorningNotifiedAt = &notifiedAt.Time
	}
	return &e, nil
}

func (s *EventStore) Create(ctx context.Context, e model.Event) (*model.Event, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = "upcoming"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, wedding_id, title, starts_at, venue, dress_code, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.WeddingID, e.Title, e.StartsAt, e.Venue, e.DressCode, e.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return s.GetByID(ctx, e.WeddingID, e.ID)
}

// GetByID returns an event of a wedding, or nil if it does not exist.
func (s *EventStore) GetByID(ctx context.Context, weddingID, id string) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventCols+` FROM events WHERE id = ? AND wedding_id = ?`, id, weddingID,
	)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListByWedding returns all events of a wedding.
func (s *EventStore) ListByWedding(ctx context.Context, weddingID string) ([]model.Event, error) {
	return s.list(ctx, `SELECT `+eventCols+` FROM events WHERE wedding_id = ? ORDER BY starts_at, id`, weddingID)
}

// ListPendingMorning returns the events of a wedding whose morning reminder
// has not been sent.
func (s *EventStore) ListPendingMorning(ctx context.Context, weddingID string) ([]model.Event, error) {
	return s.list(ctx,
		`SELECT `+eventCols+` FROM events WHERE wedding_id = ? AND morning_notified = 0 ORDER BY starts_at, id`,
		weddingID,
	)
}

// ClaimMorning takes a lease on an event's morning reminder. It succeeds only
// if the reminder has not been sent and no other claim younger than lease is
// held. Returns false when the claim was lost.
func (s *EventStore) ClaimMorning(ctx context.Context, eventID string, now time.Time, lease time.Duration) (bool, error) {
	now = now.UTC().Truncate(time.Second)
	result, err := s.db.ExecContext(ctx,
		`UPDATE events SET morning_claimed_at = ?
		 WHERE id = ? AND morning_notified = 0
		   AND (morning_claimed_at IS NULL OR morning_claimed_at < ?)`,
		now, eventID, now.Add(-lease),
	)
	if err != nil {
		return false, fmt.Errorf("claim morning reminder: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim morning reminder rows: %w", err)
	}
	return n == 1, nil
}

// MarkMorningNotified sets the one-shot morning reminder flag. The flag is
// never cleared.
func (s *EventStore) MarkMorningNotified(ctx context.Context, eventID string, count int, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE events SET morning_notified = 1, morning_notified_at = ?, morning_notified_count = ?
		 WHERE id = ?`,
		at.UTC(), count, eventID,
	)
	if err != nil {
		return fmt.Errorf("mark morning notified: %w", err)
	}
	return nil
}

func (s *EventStore) list(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
