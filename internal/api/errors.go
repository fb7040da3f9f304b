package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/deskindex/deskindex/internal/backend"
	"github.com/deskindex/deskindex/internal/page"
)

const genericFailure = "Something went wrong, please try again"

// ErrorResponse is the JSON body of a failed API call.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusForError maps an action error onto an HTTP status. Anything that is
// not a rule violation came from an upstream service.
func statusForError(err error) int {
	var verr *page.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, page.ErrCredentialInUse),
		errors.Is(err, page.ErrConnectorExists),
		errors.Is(err, page.ErrNotDeletable):
		return http.StatusConflict
	case errors.Is(err, page.ErrCredentialRequired):
		return http.StatusPreconditionFailed
	case errors.Is(err, page.ErrConnectorNotFound), errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// userMessage is the text shown to the admin for err.
func userMessage(err error) string {
	if msg := page.Message(err); msg != "" {
		return msg
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return genericFailure
}

// WriteJSON encodes v as the response body with status.
func WriteJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error, logger *slog.Logger) {
	resp := ErrorResponse{Error: userMessage(err)}
	var verr *page.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	WriteJSON(w, statusForError(err), resp, logger)
}
