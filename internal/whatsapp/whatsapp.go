// Package whatsapp delivers template messages to guests over WhatsApp.
package whatsapp

import (
	"context"
	"fmt"
)

// Invite template sent to guests.
const (
	InviteTemplate = "wedding_invite_v1"
	InviteLanguage = "en"
)

// TemplateMessage is one template send. Params fill the body placeholders
// {{1}}..{{n}} in order.
type TemplateMessage struct {
	To       string
	Template string
	Language string
	Params   []string
}

// SendResult is returned when the gateway accepted a message.
type SendResult struct {
	MessageID string
}

// Sender sends template messages.
type Sender interface {
	// Configured reports whether the gateway has the credentials it needs.
	Configured() bool
	SendTemplate(ctx context.Context, msg TemplateMessage) (SendResult, error)
}

// APIError is a non-2xx response from the messaging API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp API error: status %d: %s", e.Status, e.Body)
}
