package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/weddingbell/internal/model"

	"github.com/google/uuid"
)

type RSVPStore struct {
	db *sql.DB
}

func NewRSVPStore(db *sql.DB) *RSVPStore {
	return &RSVPStore{db: db}
}

// Create inserts an RSVP record and its per-event responses.
func (s *RSVPStore) Create(ctx context.Context, r model.RSVP) (*model.RSVP, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO rsvps (id, wedding_id) VALUES (?, ?)`, r.ID, r.WeddingID); err != nil {
		return nil, fmt.Errorf("insert rsvp: %w", err)
	}
	for eventID, response := range r.Responses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rsvp_responses (rsvp_id, event_id, response) VALUES (?, ?, ?)`,
			r.ID, eventID, response,
		); err != nil {
			return nil, fmt.Errorf("insert rsvp response: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rsvp: %w", err)
	}
	return s.GetByID(ctx, r.ID)
}

func (s *RSVPStore) GetByID(ctx context.Context, id string) (*model.RSVP, error) {
	r := model.RSVP{Responses: map[string]string{}}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, wedding_id, created_at FROM rsvps WHERE id = ?`, id,
	).Scan(&r.ID, &r.WeddingID, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rsvp: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT event_id, response FROM rsvp_responses WHERE rsvp_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("list rsvp responses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var eventID, response string
		if err := rows.Scan(&eventID, &response); err != nil {
			return nil, fmt.Errorf("scan rsvp response: %w", err)
		}
		r.Responses[eventID] = response
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &r, nil
}

// SetResponse upserts the response of an RSVP for one event.
func (s *RSVPStore) SetResponse(ctx context.Context, rsvpID, eventID, response string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rsvp_responses (rsvp_id, event_id, response) VALUES (?, ?, ?)
		 ON CONFLICT(rsvp_id, event_id) DO UPDATE SET response = excluded.response`,
		rsvpID, eventID, response,
	)
	if err != nil {
		return fmt.Errorf("set rsvp response: %w", err)
	}
	return nil
}

// ListIDsByResponse returns the ids of a wedding's RSVPs whose response for
// eventID equals response.
func (s *RSVPStore) ListIDsByResponse(ctx context.Context, weddingID, eventID, response string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id FROM rsvps r
		 JOIN rsvp_responses rr ON rr.rsvp_id = r.id
		 WHERE r.wedding_id = ? AND rr.event_id = ? AND rr.response = ?
		 ORDER BY r.created_at, r.id`,
		weddingID, eventID, response,
	)
	if err != nil {
		return nil, fmt.Errorf("list rsvps by response: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan rsvp id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
