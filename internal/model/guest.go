package model

import "time"

// Event guest link statuses.
const (
	EventGuestInvited = "invited"
)

type Guest struct {
	ID                 string     `json:"id"`
	WeddingID          string     `json:"wedding_id"`
	Name               string     `json:"name"`
	Phone              string     `json:"phone"`
	MasterInviteSent   bool       `json:"master_invite_sent"`
	MasterInviteSentAt *time.Time `json:"master_invite_sent_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// RSVP responses. Only RSVPGoing qualifies a user for event-day reminders.
const (
	RSVPGoing    = "going"
	RSVPNotGoing = "not_going"
	RSVPMaybe    = "maybe"
)

type RSVP struct {
	ID        string            `json:"id"`
	WeddingID string            `json:"wedding_id"`
	Responses map[string]string `json:"responses"`
	CreatedAt time.Time         `json:"created_at"`
}
