// Package push sends notifications to device registration tokens.
package push

import (
	"context"
	"errors"
)

const (
	// MaxMulticastTokens is the most tokens one multicast call accepts.
	MaxMulticastTokens = 500

	// DefaultConcurrency bounds in-flight sends within one multicast call.
	DefaultConcurrency = 16
)

// ErrUnregistered is returned for a token the push service no longer
// recognizes.
var ErrUnregistered = errors.New("push token unregistered")

// Message is the notification shown on the device plus its data payload.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// SendResponse is the outcome for one token.
type SendResponse struct {
	Token     string
	MessageID string
	Error     error
}

func (r SendResponse) Success() bool {
	return r.Error == nil
}

// BatchResponse is the outcome of one multicast call. Responses are in token
// order.
type BatchResponse struct {
	SuccessCount int
	FailureCount int
	Responses    []SendResponse
}

// Multicaster sends one message to many tokens.
type Multicaster interface {
	SendMulticast(ctx context.Context, msg Message, tokens []string) (*BatchResponse, error)
}

// Chunk splits tokens into consecutive slices of at most size tokens.
func Chunk(tokens []string, size int) [][]string {
	if size <= 0 {
		size = MaxMulticastTokens
	}
	var chunks [][]string
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		chunks = append(chunks, tokens[start:end])
	}
	return chunks
}
