package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/weddingbell/internal/notify"
)

const maxCallableBody = 1 << 20

// Callable error statuses.
const (
	StatusInvalidArgument    = "INVALID_ARGUMENT"
	StatusFailedPrecondition = "FAILED_PRECONDITION"
	StatusNotFound           = "NOT_FOUND"
	StatusUnauthenticated    = "UNAUTHENTICATED"
	StatusPermissionDenied   = "PERMISSION_DENIED"
	StatusInternal           = "INTERNAL"
)

type callableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

var errorStatuses = []struct {
	err    error
	status string
	code   int
}{
	{notify.ErrInvalidArgument, StatusInvalidArgument, http.StatusBadRequest},
	{notify.ErrFailedPrecondition, StatusFailedPrecondition, http.StatusBadRequest},
	{notify.ErrNotFound, StatusNotFound, http.StatusNotFound},
	{notify.ErrUnauthenticated, StatusUnauthenticated, http.StatusUnauthorized},
	{notify.ErrPermissionDenied, StatusPermissionDenied, http.StatusForbidden},
}

// decodeCallable unwraps a {"data": ...} request body into v. A missing or
// null data field leaves v at its zero value.
func decodeCallable(w http.ResponseWriter, r *http.Request, v any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCallableBody)).Decode(&env); err != nil {
		return err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, v)
}

func writeResult(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, map[string]any{"result": v})
}

func writeCallableError(w http.ResponseWriter, code int, e callableError) {
	writeJSON(w, code, map[string]any{"error": e})
}

// writeDispatchError maps a dispatcher error onto the callable envelope.
// Unrecognised errors are reported as INTERNAL with a generic message.
func writeDispatchError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	for _, s := range errorStatuses {
		if errors.Is(err, s.err) {
			logger.Warn("callable rejected", "callable", op, "status", s.status, "error", err)
			writeCallableError(w, s.code, callableError{Status: s.status, Message: err.Error()})
			return
		}
	}
	logger.Error("callable failed", "callable", op, "error", err)
	writeCallableError(w, http.StatusInternalServerError, callableError{
		Status:  StatusInternal,
		Message: "Failed to complete " + op,
		Details: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
