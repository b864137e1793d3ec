package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/weddingbell/internal/model"

	"github.com/google/uuid"
)

type GuestStore struct {
	db *sql.DB
}

func NewGuestStore(db *sql.DB) *GuestStore {
	return &GuestStore{db: db}
}

const guestCols = `id, wedding_id, name, phone, master_invite_sent, master_invite_sent_at, created_at, updated_at`

func scanGuest(scanner interface{ Scan(...any) error }) (*model.Guest, error) {
	var g model.Guest
	var sent int
	var sentAt sql.NullTime

	if err := scanner.Scan(&g.ID, &g.WeddingID, &g.Name, &g.Phone, &sent, &sentAt, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.MasterInviteSent = sent != 0
	if sentAt.Valid {
		g.MasterInviteSentAt = &sentAt.Time
	}
	return &g, nil
}

func (s *GuestStore) Create(ctx context.Context, g model.Guest) (*model.Guest, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	var sent int
	if g.MasterInviteSent {
		sent = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guests (id, wedding_id, name, phone, master_invite_sent) VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.WeddingID, g.Name, g.Phone, sent,
	)
	if err != nil {
		return nil, fmt.Errorf("insert guest: %w", err)
	}
	return s.GetByID(ctx, g.WeddingID, g.ID)
}

func (s *GuestStore) GetByID(ctx context.Context, weddingID, id string) (*model.Guest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+guestCols+` FROM guests WHERE id = ? AND wedding_id = ?`, id, weddingID,
	)
	g, err := scanGuest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get guest: %w", err)
	}
	return g, nil
}

// ListPendingInvites returns the guests of a wedding whose master invite has
// not been sent.
func (s *GuestStore) ListPendingInvites(ctx context.Context, weddingID string) ([]model.Guest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+guestCols+` FROM guests WHERE wedding_id = ? AND master_invite_sent = 0 ORDER BY created_at, id`,
		weddingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending invites: %w", err)
	}
	defer rows.Close()

	var guests []model.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		guests = append(guests, *g)
	}
	return guests, rows.Err()
}

// LinkEvent records that a guest is invited to an event.
func (s *GuestStore) LinkEvent(ctx context.Context, eventID, guestID, status string) error {
	if status == "" {
		status = model.EventGuestInvited
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_guests (event_id, guest_id, status) VALUES (?, ?, ?)
		 ON CONFLICT(event_id, guest_id) DO UPDATE SET status = excluded.status`,
		eventID, guestID, status,
	)
	if err != nil {
		return fmt.Errorf("link event guest: %w", err)
	}
	return nil
}

// EventGuestIDs returns the set of guest ids linked to an event.
func (s *GuestStore) EventGuestIDs(ctx context.Context, eventID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guest_id FROM event_guests WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event guests: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan event guest: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// NewBatch returns a write batch over the guest store's database.
func (s *GuestStore) NewBatch() *Batch {
	return NewBatch(s.db)
}
