package notify

import (
	"context"
	"log/slog"

	"github.com/dukerupert/weddingbell/internal/store"
)

// MaxProfilesPerRSVP bounds how many user profiles are read for one RSVP.
const MaxProfilesPerRSVP = 5

// TokenResolver finds the push tokens of the users behind an RSVP.
type TokenResolver struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewTokenResolver(users *store.UserStore, logger *slog.Logger) *TokenResolver {
	return &TokenResolver{users: users, logger: logger}
}

// Resolve returns the distinct enabled tokens of users whose active wedding is
// weddingID and whose RSVP is rsvpID, in first-seen order. Lookup failures are
// logged and yield no tokens.
func (r *TokenResolver) Resolve(ctx context.Context, weddingID, rsvpID string) []string {
	users, err := r.users.ListByActiveWeddingAndRSVP(ctx, weddingID, rsvpID, MaxProfilesPerRSVP)
	if err != nil {
		r.logger.Error("resolve tokens", "wedding_id", weddingID, "rsvp_id", rsvpID, "error", err)
		return []string{}
	}

	tokens := []string{}
	seen := make(map[string]struct{})
	for _, u := range users {
		for _, tok := range u.EnabledTokens() {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
