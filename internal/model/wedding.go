package model

import "time"

// DefaultCoupleName is used in invites when a wedding has no couple name.
const DefaultCoupleName = "our wedding"

type Wedding struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CoupleName string    `json:"couple_name"`
	Timezone   string    `json:"timezone,omitempty"`
	DateStart  string    `json:"date_start,omitempty"`
	DateEnd    string    `json:"date_end,omitempty"`
	Admins     []string  `json:"admins,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayCoupleName returns the couple name used in invite templates.
func (w *Wedding) DisplayCoupleName() string {
	if w.CoupleName == "" {
		return DefaultCoupleName
	}
	return w.CoupleName
}

// IsAdmin reports whether userID is listed as an admin of the wedding.
func (w *Wedding) IsAdmin(userID string) bool {
	for _, a := range w.Admins {
		if a == userID {
			return true
		}
	}
	return false
}

type Event struct {
	ID                   string     `json:"id"`
	WeddingID            string     `json:"wedding_id"`
	Title                string     `json:"title"`
	StartsAt             string     `json:"starts_at"`
	Venue                string     `json:"venue,omitempty"`
	DressCode            string     `json:"dress_code,omitempty"`
	Status               string     `json:"status"`
	MorningNotified      bool       `json:"morning_notified"`
	MorningNotifiedAt    *time.Time `json:"morning_notified_at,omitempty"`
	MorningNotifiedCount int        `json:"morning_notified_count"`
	CreatedAt            time.Time  `json:"created_at"`
}
