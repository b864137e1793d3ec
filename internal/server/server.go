package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/weddingbell/internal/auth"
	"github.com/dukerupert/weddingbell/internal/handler"
	"github.com/dukerupert/weddingbell/internal/middleware"
	ws "github.com/dukerupert/weddingbell/internal/websocket"
)

const (
	callableLimit  = 30
	callableWindow = time.Minute
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	notifyH     *handler.NotifyHandler
	tokens      *auth.Tokens
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, notifier handler.Notifier, hub *ws.Hub, tokens *auth.Tokens, logger *slog.Logger) *Server {
	return &Server{
		db:          db,
		hub:         hub,
		notifyH:     handler.NewNotifyHandler(notifier, logger.With("component", "callable")),
		tokens:      tokens,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("POST /callable/sendWeddingInvites", s.rateLimitedHandler(s.notifyH.SendInvites))
	mux.HandleFunc("POST /callable/sendEventNotification", s.rateLimitedHandler(s.notifyH.SendEventNotification))
	mux.HandleFunc("POST /callable/sendCustomEventNotification", s.rateLimitedHandler(s.notifyH.SendCustomEventNotification))

	mux.Handle("GET /ws", middleware.RequireAdmin(ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"))))

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(mux)
	return middleware.Identify(s.tokens, s.logger.With("component", "auth"))(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByCaller, callableLimit, callableWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
