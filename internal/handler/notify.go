package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/weddingbell/internal/auth"
	"github.com/dukerupert/weddingbell/internal/notify"
)

// Notifier is the dispatch surface the callables expose.
type Notifier interface {
	SendInvites(ctx context.Context, callerID, weddingID, eventID string) (*notify.InviteReport, error)
	SendEventNotification(ctx context.Context, req notify.NotificationRequest) (*notify.NotifyReport, error)
	SendCustomEventNotification(ctx context.Context, callerID string, req notify.NotificationRequest) (*notify.NotifyReport, error)
}

type NotifyHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewNotifyHandler(n Notifier, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{notifier: n, logger: logger}
}

type invitesRequest struct {
	WeddingID string `json:"weddingId"`
	EventID   string `json:"eventId"`
}

type notificationRequest struct {
	WeddingID string `json:"weddingId"`
	EventID   string `json:"eventId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

func (req notificationRequest) toNotify() notify.NotificationRequest {
	return notify.NotificationRequest{
		WeddingID: req.WeddingID,
		EventID:   req.EventID,
		Title:     req.Title,
		Body:      req.Body,
	}
}

// SendInvites handles POST /callable/sendWeddingInvites
func (h *NotifyHandler) SendInvites(w http.ResponseWriter, r *http.Request) {
	var req invitesRequest
	if err := decodeCallable(w, r, &req); err != nil {
		writeCallableError(w, http.StatusBadRequest, callableError{Status: StatusInvalidArgument, Message: "invalid JSON"})
		return
	}

	report, err := h.notifier.SendInvites(r.Context(), auth.UserID(r.Context()), req.WeddingID, req.EventID)
	if err != nil {
		writeDispatchError(w, h.logger, "sendWeddingInvites", err)
		return
	}

	h.logger.Info("invites dispatched", "wedding_id", req.WeddingID, "sent", report.Sent, "candidates", report.TotalCandidates)
	writeResult(w, report)
}

// SendEventNotification handles POST /callable/sendEventNotification
func (h *NotifyHandler) SendEventNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := decodeCallable(w, r, &req); err != nil {
		writeCallableError(w, http.StatusBadRequest, callableError{Status: StatusInvalidArgument, Message: "invalid JSON"})
		return
	}

	report, err := h.notifier.SendEventNotification(r.Context(), req.toNotify())
	if err != nil {
		writeDispatchError(w, h.logger, "sendEventNotification", err)
		return
	}
	writeResult(w, report)
}

// SendCustomEventNotification handles POST /callable/sendCustomEventNotification
func (h *NotifyHandler) SendCustomEventNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := decodeCallable(w, r, &req); err != nil {
		writeCallableError(w, http.StatusBadRequest, callableError{Status: StatusInvalidArgument, Message: "invalid JSON"})
		return
	}

	report, err := h.notifier.SendCustomEventNotification(r.Context(), auth.UserID(r.Context()), req.toNotify())
	if err != nil {
		writeDispatchError(w, h.logger, "sendCustomEventNotification", err)
		return
	}
	writeResult(w, report)
}
