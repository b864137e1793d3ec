package auth

import "context"

type contextKey struct{}

// Caller identifies the user behind a request.
type Caller struct {
	UserID string
	Role   string
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(contextKey{}).(Caller)
	return c, ok
}

// UserID returns the caller's user id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	c, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return c.UserID
}

func IsAdmin(ctx context.Context) bool {
	c, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return c.Role == "admin"
}
