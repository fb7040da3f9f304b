package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/deskindex/deskindex/internal/auth"
	"github.com/deskindex/deskindex/internal/ui"
	"log/slog"
)

// LoginPath is the HTML sign-in page.
const LoginPath = "/admin/login"

const adminUserID = "admin"

// AuthHandler handles authentication requests
type AuthHandler struct {
	config   auth.Config
	renderer *ui.Renderer
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewAuthHandler creates a new authentication handler. Password checks are
// limited to a small burst followed by one per second.
func NewAuthHandler(config auth.Config, renderer *ui.Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		config:   config,
		renderer: renderer,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 5),
		logger:   logger,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !h.limiter.Allow() {
		http.Error(w, "Too many login attempts", http.StatusTooManyRequests)
		return
	}
	if !h.config.CheckAdminPassword(req.Password) {
		h.logger.Warn("failed login attempt", "ip", r.RemoteAddr)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateToken(adminUserID, h.config.JWTSecret, h.config.TokenDuration)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("successful login", "ip", r.RemoteAddr)
	WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.config.TokenDuration),
	}, h.logger)
}

// ValidateToken handles GET /api/auth/validate
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The middleware already rejected invalid tokens.
	userID, _ := auth.GetUserIDFromContext(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{
		"valid":  true,
		"userID": userID,
	}, h.logger)
}

// LoginPage handles GET and POST /admin/login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.renderLogin(w, http.StatusOK, ui.LoginPage{Next: safeNext(r.URL.Query().Get("next"))})

	case http.MethodPost:
		next := safeNext(r.PostFormValue("next"))
		if !h.limiter.Allow() {
			h.renderLogin(w, http.StatusTooManyRequests, ui.LoginPage{Next: next, Error: "Too many login attempts, try again shortly"})
			return
		}
		if !h.config.CheckAdminPassword(r.PostFormValue("password")) {
			h.logger.Warn("failed login attempt", "ip", r.RemoteAddr)
			h.renderLogin(w, http.StatusUnauthorized, ui.LoginPage{Next: next, Error: "Invalid password"})
			return
		}

		token, err := auth.GenerateToken(adminUserID, h.config.JWTSecret, h.config.TokenDuration)
		if err != nil {
			h.logger.Error("failed to generate token", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		h.logger.Info("successful login", "ip", r.RemoteAddr)
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(h.config.TokenDuration / time.Second),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, next, http.StatusSeeOther)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Logout handles POST /admin/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: auth.CookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, status int, data ui.LoginPage) {
	data.Title = "Sign in"

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, ui.PageLogin, data); err != nil {
		h.logger.Error("failed to render login page", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return PagePath
	}
	return next
}
