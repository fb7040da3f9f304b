package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deskindex/deskindex/internal/auth"
	"github.com/deskindex/deskindex/internal/page"
	"github.com/deskindex/deskindex/internal/ui"
)

// Paths of the Zendesk connector page and its JSON twin.
const (
	PagePath = "/admin/connectors/zendesk"
	APIPath  = "/api/admin/connectors/zendesk"
)

// PopupCookie carries the id of a pending popup across a redirect.
const PopupCookie = "deskindex_popup"

const healthCheckTimeout = 2 * time.Second

// HealthChecker reports whether the backend is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ZendeskHandler serves the Zendesk connector page and its actions.
type ZendeskHandler struct {
	service  *page.Service
	popups   *page.PopupStore
	renderer *ui.Renderer
	health   HealthChecker
	logger   *slog.Logger
}

// NewZendeskHandler creates the page handler. health may be nil.
func NewZendeskHandler(service *page.Service, popups *page.PopupStore, renderer *ui.Renderer, health HealthChecker, logger *slog.Logger) *ZendeskHandler {
	return &ZendeskHandler{
		service:  service,
		popups:   popups,
		renderer: renderer,
		health:   health,
		logger:   logger,
	}
}

// Page handles GET /admin/connectors/zendesk
func (h *ZendeskHandler) Page(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.render(w, r, http.StatusOK, ui.ZendeskPage{})
}

// PageAction handles the form posts under /admin/connectors/zendesk/. Every
// outcome except a form validation failure redirects back to the page.
func (h *ZendeskHandler) PageAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, PagePath), "/")

	switch rest {
	case "credential":
		form := page.CredentialForm{
			Subdomain: r.PostFormValue(page.FieldSubdomain),
			Email:     r.PostFormValue(page.FieldEmail),
			Token:     r.PostFormValue(page.FieldToken),
		}
		_, err := h.service.SubmitCredential(ctx, form)
		var verr *page.ValidationError
		if errors.As(err, &verr) {
			form.Token = ""
			h.render(w, r, http.StatusUnprocessableEntity, ui.ZendeskPage{Form: form, FieldErrors: verr.Fields})
			return
		}
		h.redirect(w, r, err, "Successfully created credential!")

	case "credential/delete":
		h.redirect(w, r, h.service.DeleteCredential(ctx), "Deleted credential")

	case "connector":
		_, err := h.service.CreateConnector(ctx)
		h.redirect(w, r, err, "Successfully created connector!")

	default:
		connectorID, action, ok := parseConnectorAction(rest)
		if !ok {
			http.NotFound(w, r)
			return
		}
		switch action {
		case "link":
			h.redirect(w, r, h.service.LinkCredential(ctx, connectorID), "Linked credential to connector")
		case "toggle":
			conn, err := h.service.ToggleConnector(ctx, connectorID)
			msg := ""
			if err == nil {
				msg = "Enabled connector!"
				if conn.Disabled {
					msg = "Disabled connector!"
				}
			}
			h.redirect(w, r, err, msg)
		case "delete":
			credentialID, _ := strconv.Atoi(r.PostFormValue("credential_id"))
			h.redirect(w, r, h.service.DeleteConnector(ctx, connectorID, credentialID), "Scheduled connector for deletion")
		default:
			http.NotFound(w, r)
		}
	}
}

func (h *ZendeskHandler) render(w http.ResponseWriter, r *http.Request, status int, data ui.ZendeskPage) {
	ctx := r.Context()
	data.Title = "Zendesk"
	data.User, _ = auth.GetUserIDFromContext(ctx)
	down := make(chan bool, 1)
	go func() { down <- h.backendDown(ctx) }()

	data.View = h.service.Load(ctx)
	if data.Popup == nil {
		data.Popup = h.takePopup(w, r)
	}
	data.BackendDown = <-down

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, ui.PageZendesk, data); err != nil {
		h.logger.Error("failed to render page", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// backendDown probes the backend health endpoint, bounded by
// healthCheckTimeout, so an outage is flagged even while cached data renders.
func (h *ZendeskHandler) backendDown(ctx context.Context) bool {
	if h.health == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := h.health.Health(ctx); err != nil {
		h.logger.Warn("backend health check failed", "error", err)
		return true
	}
	return false
}

// redirect stores a popup for the outcome and sends the browser back to the page.
func (h *ZendeskHandler) redirect(w http.ResponseWriter, r *http.Request, err error, success string) {
	popup := page.Popup{Type: page.PopupSuccess, Message: success}
	if err != nil {
		popup = page.Popup{Type: page.PopupError, Message: userMessage(err)}
	}

	id := h.popups.Put(popup)
	http.SetCookie(w, &http.Cookie{
		Name:     PopupCookie,
		Value:    id,
		Path:     PagePath,
		MaxAge:   int(page.PopupTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, PagePath, http.StatusSeeOther)
}

func (h *ZendeskHandler) takePopup(w http.ResponseWriter, r *http.Request) *page.Popup {
	cookie, err := r.Cookie(PopupCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: PopupCookie, Value: "", Path: PagePath, MaxAge: -1})

	popup, ok := h.popups.Take(cookie.Value)
	if !ok {
		return nil
	}
	return &popup
}

// parseConnectorAction splits "connector/{id}/{action}".
func parseConnectorAction(rest string) (int, string, bool) {
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] != "connector" {
		return 0, "", false
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, parts[2], true
}
