package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/weddingbell/internal/model"

	"github.com/google/uuid"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var email, weddingID, rsvpID sql.NullString
	err := scanner.Scan(&u.ID, &email, &u.DisplayName, &u.Role, &u.PasswordHash, &weddingID, &rsvpID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	u.ActiveWeddingID = weddingID.String
	u.RSVPID = rsvpID.String
	return &u, nil
}

const userCols = `id, email, display_name, role, password_hash, active_wedding_id, rsvp_id, created_at`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a user. An empty ID is replaced with a new UUID.
func (s *UserStore) Create(ctx context.Context, u model.User) (*model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = model.RoleGuest
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, role, password_hash, active_wedding_id, rsvp_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, nullString(u.Email), u.DisplayName, u.Role, u.PasswordHash, nullString(u.ActiveWeddingID), nullString(u.RSVPID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(ctx, u.ID)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UpdateProfile merges display name and role into an existing user.
func (s *UserStore) UpdateProfile(ctx context.Context, id, displayName, role string) (*model.User, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, role = ? WHERE id = ?`,
		displayName, role, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(ctx, id)
}

// SetRSVP points a user at a wedding and its RSVP record.
func (s *UserStore) SetRSVP(ctx context.Context, id, weddingID, rsvpID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET active_wedding_id = ?, rsvp_id = ? WHERE id = ?`,
		nullString(weddingID), nullString(rsvpID), id,
	)
	if err != nil {
		return fmt.Errorf("set user rsvp: %w", err)
	}
	return nil
}

// SetPushToken registers or toggles a push token for a user.
func (s *UserStore) SetPushToken(ctx context.Context, userID, token string, enabled bool) error {
	var e int
	if enabled {
		e = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_push_tokens (user_id, token, enabled) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, token) DO UPDATE SET enabled = excluded.enabled`,
		userID, token, e,
	)
	if err != nil {
		return fmt.Errorf("set push token: %w", err)
	}
	return nil
}

// DisableToken turns off a push token for every user that registered it.
func (s *UserStore) DisableToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE user_push_tokens SET enabled = 0 WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("disable push token: %w", err)
	}
	return nil
}

// ListByActiveWeddingAndRSVP returns at most limit users whose active wedding
// and RSVP record match, with their push tokens loaded.
func (s *UserStore) ListByActiveWeddingAndRSVP(ctx context.Context, weddingID, rsvpID string, limit int) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users WHERE active_wedding_id = ? AND rsvp_id = ? ORDER BY created_at, id LIMIT ?`,
		weddingID, rsvpID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list users by rsvp: %w", err)
	}

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range users {
		tokens, err := s.pushTokens(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].PushTokens = tokens
	}
	return users, nil
}

// pushTokens returns token -> enabled. A token whose flag was never set maps to false.
func (s *UserStore) pushTokens(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token, enabled FROM user_push_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list push tokens: %w", err)
	}
	defer rows.Close()

	tokens := make(map[string]bool)
	for rows.Next() {
		var token string
		var enabled sql.NullInt64
		if err := rows.Scan(&token, &enabled); err != nil {
			return nil, fmt.Errorf("scan push token: %w", err)
		}
		tokens[token] = enabled.Valid && enabled.Int64 != 0
	}
	return tokens, rows.Err()
}
