package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/weddingbell/internal/auth"
)

// Identify reads an optional bearer token and populates the request's Caller.
// Missing or invalid tokens leave the request anonymous; handlers decide
// whether identity is required.
func Identify(tokens *auth.Tokens, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" || !tokens.Configured() {
				next.ServeHTTP(w, r)
				return
			}

			caller, err := tokens.Parse(raw)
			if err != nil {
				logger.Debug("ignoring bearer token", "error", err, "remote", RealIP(r))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
		})
	}
}

// RequireCaller rejects anonymous requests.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserID(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin checks that the caller has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserID(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "sign in required")
			return
		}
		if !auth.IsAdmin(r.Context()) {
			writeError(w, http.StatusForbidden, "PERMISSION_DENIED", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"status": code, "message": message},
	})
}
