package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/deskindex/deskindex/internal/audit"
	"github.com/deskindex/deskindex/internal/database"
	"github.com/deskindex/deskindex/internal/models"
)

type ActivityLogHandlers struct {
	store  audit.Store
	logger *slog.Logger
}

func NewActivityLogHandlers(store audit.Store, logger *slog.Logger) *ActivityLogHandlers {
	return &ActivityLogHandlers{
		store:  store,
		logger: logger,
	}
}

// ListActivities handles GET /api/admin/activity
func (h *ActivityLogHandlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := database.ActivityFilter{
		ActivityType: models.ActivityType(r.URL.Query().Get("activity_type")),
		Source:       models.DocumentSource(r.URL.Query().Get("source")),
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		filter.Limit = l
	}

	logs, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list activity logs", "error", err)
		http.Error(w, "Failed to retrieve activity logs", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"count": len(logs),
	}, h.logger)
}
