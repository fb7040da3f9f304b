package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/deskindex/deskindex/internal/audit"
	"github.com/deskindex/deskindex/internal/auth"
	"github.com/deskindex/deskindex/internal/page"
	"github.com/deskindex/deskindex/internal/ui"
)

// Dependencies wires the handlers to the rest of the console.
type Dependencies struct {
	Service  *page.Service
	Popups   *page.PopupStore
	Renderer *ui.Renderer
	Health   HealthChecker
	Activity audit.Store
	Auth     auth.Config
	Logger   *slog.Logger
}

// SetupRoutes configures all console routes
func SetupRoutes(mux *http.ServeMux, deps Dependencies) {
	zendeskHandler := NewZendeskHandler(deps.Service, deps.Popups, deps.Renderer, deps.Health, deps.Logger)
	authHandler := NewAuthHandler(deps.Auth, deps.Renderer, deps.Logger)
	activityHandler := NewActivityLogHandlers(deps.Activity, deps.Logger)

	requireToken := auth.AuthMiddleware(deps.Auth)
	requireLogin := auth.LoginRedirectMiddleware(deps.Auth, LoginPath)

	// Authentication routes (public)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.Handle("/api/auth/validate", withPreflight(requireToken(http.HandlerFunc(authHandler.ValidateToken))))
	mux.HandleFunc(LoginPath, authHandler.LoginPage)
	mux.HandleFunc("/admin/logout", authHandler.Logout)

	// Zendesk connector page (session cookie)
	mux.Handle(PagePath, requireLogin(http.HandlerFunc(zendeskHandler.Page)))
	mux.Handle(PagePath+"/", requireLogin(http.HandlerFunc(zendeskHandler.PageAction)))

	// Zendesk connector API (bearer token)
	mux.Handle(APIPath, withPreflight(requireToken(http.HandlerFunc(zendeskHandler.APIView))))
	mux.Handle(APIPath+"/", withPreflight(requireToken(http.HandlerFunc(zendeskHandler.APIAction))))

	// Activity log (admin only)
	mux.Handle("/api/admin/activity", withPreflight(requireToken(http.HandlerFunc(activityHandler.ListActivities))))

	mux.Handle("/static/", http.StripPrefix("/static/", ui.Static()))
}

// withPreflight answers CORS preflight requests before authentication runs.
func withPreflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MetricsPath collapses numeric path segments so connector ids do not
// become metric labels.
func MetricsPath(path string) string {
	if strings.HasPrefix(path, "/static/") {
		return "/static/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p != "" && strings.Trim(p, "0123456789") == "" {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
