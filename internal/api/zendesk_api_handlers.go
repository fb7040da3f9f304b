package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/deskindex/deskindex/internal/page"
)

// MessageResponse acknowledges an action without a body of its own.
type MessageResponse struct {
	Message string `json:"message"`
}

// APIView handles GET /api/admin/connectors/zendesk
func (h *ZendeskHandler) APIView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	WriteJSON(w, http.StatusOK, h.service.Load(r.Context()), h.logger)
}

// APIAction handles the JSON actions under /api/admin/connectors/zendesk/.
func (h *ZendeskHandler) APIAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, APIPath), "/")

	switch {
	case rest == "credential" && r.Method == http.MethodPost:
		var form page.CredentialForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		cred, err := h.service.SubmitCredential(ctx, form)
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		WriteJSON(w, http.StatusCreated, page.Summarize(*cred), h.logger)

	case rest == "credential" && r.Method == http.MethodDelete:
		if err := h.service.DeleteCredential(ctx); err != nil {
			writeError(w, err, h.logger)
			return
		}
		WriteJSON(w, http.StatusOK, MessageResponse{Message: "Deleted credential"}, h.logger)

	case rest == "connector" && r.Method == http.MethodPost:
		conn, err := h.service.CreateConnector(ctx)
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		WriteJSON(w, http.StatusCreated, conn, h.logger)

	case strings.HasPrefix(rest, "connector/") && r.Method == http.MethodPost:
		h.apiConnectorAction(w, r, rest)

	case rest == "credential" || rest == "connector" || strings.HasPrefix(rest, "connector/"):
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)

	default:
		http.NotFound(w, r)
	}
}

func (h *ZendeskHandler) apiConnectorAction(w http.ResponseWriter, r *http.Request, rest string) {
	ctx := r.Context()
	connectorID, action, ok := parseConnectorAction(rest)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "link":
		if err := h.service.LinkCredential(ctx, connectorID); err != nil {
			writeError(w, err, h.logger)
			return
		}
		WriteJSON(w, http.StatusOK, MessageResponse{Message: "Linked credential to connector"}, h.logger)

	case "toggle":
		conn, err := h.service.ToggleConnector(ctx, connectorID)
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		WriteJSON(w, http.StatusOK, conn, h.logger)

	case "delete":
		var req struct {
			CredentialID int `json:"credential_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := h.service.DeleteConnector(ctx, connectorID, req.CredentialID); err != nil {
			writeError(w, err, h.logger)
			return
		}
		WriteJSON(w, http.StatusAccepted, MessageResponse{Message: "Scheduled connector for deletion"}, h.logger)

	default:
		http.NotFound(w, r)
	}
}
