package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/weddingbell/internal/model"

	"github.com/google/uuid"
)

type WeddingStore struct {
	db *sql.DB
}

func NewWeddingStore(db *sql.DB) *WeddingStore {
	return &WeddingStore{db: db}
}

const weddingCols = `id, name, couple_name, timezone, date_start, date_end, created_at`

func scanWedding(scanner interface{ Scan(...any) error }) (*model.Wedding, error) {
	var w model.Wedding
	if err := scanner.Scan(&w.ID, &w.Name, &w.CoupleName, &w.Timezone, &w.DateStart, &w.DateEnd, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a wedding and its admin list. An empty ID is replaced with a new UUID.
func (s *WeddingStore) Create(ctx context.Context, w model.Wedding) (*model.Wedding, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO weddings (id, name, couple_name, timezone, date_start, date_end) VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.CoupleName, w.Timezone, w.DateStart, w.DateEnd,
	); err != nil {
		return nil, fmt.Errorf("insert wedding: %w", err)
	}
	for _, uid := range w.Admins {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO wedding_admins (wedding_id, user_id) VALUES (?, ?)`, w.ID, uid,
		); err != nil {
			return nil, fmt.Errorf("insert wedding admin: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit wedding: %w", err)
	}
	return s.GetByID(ctx, w.ID)
}

// GetByID returns the wedding with its admins, or nil if it does not exist.
func (s *WeddingStore) GetByID(ctx context.Context, id string) (*model.Wedding, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+weddingCols+` FROM weddings WHERE id = ?`, id)
	w, err := scanWedding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wedding: %w", err)
	}

	admins, err := s.listAdmins(ctx, id)
	if err != nil {
		return nil, err
	}
	w.Admins = admins
	return w, nil
}

// List returns every wedding ordered by creation. Admins are not loaded.
func (s *WeddingStore) List(ctx context.Context) ([]model.Wedding, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+weddingCols+` FROM weddings ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list weddings: %w", err)
	}
	defer rows.Close()

	var weddings []model.Wedding
	for rows.Next() {
		w, err := scanWedding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wedding: %w", err)
		}
		weddings = append(weddings, *w)
	}
	return weddings, rows.Err()
}

// AddAdmin grants userID admin rights on a wedding. Re-adding is a no-op.
func (s *WeddingStore) AddAdmin(ctx context.Context, weddingID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO wedding_admins (wedding_id, user_id) VALUES (?, ?)`, weddingID, userID,
	)
	if err != nil {
		return fmt.Errorf("add wedding admin: %w", err)
	}
	return nil
}

func (s *WeddingStore) listAdmins(ctx context.Context, weddingID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM wedding_admins WHERE wedding_id = ? ORDER BY user_id`, weddingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list wedding admins: %w", err)
	}
	defer rows.Close()

	var admins []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan wedding admin: %w", err)
		}
		admins = append(admins, uid)
	}
	return admins, rows.Err()
}
