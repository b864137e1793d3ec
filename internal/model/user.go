package model

import (
	"sort"
	"time"
)

// User roles.
const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

type User struct {
	ID              string          `json:"id"`
	Email           string          `json:"email,omitempty"`
	DisplayName     string          `json:"display_name"`
	Role            string          `json:"role"`
	PasswordHash    string          `json:"-"`
	ActiveWeddingID string          `json:"active_wedding_id,omitempty"`
	RSVPID          string          `json:"rsvp_id,omitempty"`
	PushTokens      map[string]bool `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
}

// EnabledTokens returns the tokens explicitly marked enabled, sorted.
func (u *User) EnabledTokens() []string {
	var tokens []string
	for token, enabled := range u.PushTokens {
		if enabled && token != "" {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)
	return tokens
}
