// Package ui renders the console's server-side HTML.
package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/deskindex/deskindex/internal/models"
	"github.com/deskindex/deskindex/internal/page"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names accepted by Render.
const (
	PageZendesk = "zendesk"
	PageLogin   = "login"
)

// ZendeskPage is the data behind the Zendesk connector page.
type ZendeskPage struct {
	Title       string
	User        string
	View        page.View
	Popup       *page.Popup
	Form        page.CredentialForm
	FieldErrors map[string]string
	BackendDown bool
}

// LoginPage is the data behind the sign-in page.
type LoginPage struct {
	Title string
	User  string
	Error string
	Next  string
}

// Renderer executes the embedded templates.
type Renderer struct {
	pages map[string]*template.Template
	now   func() time.Time
}

// NewRenderer parses every page against the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template), now: time.Now}
	funcs := template.FuncMap{
		"timeAgo":     r.timeAgo,
		"statusLabel": statusLabel,
		"statusClass": statusClass,
	}

	for _, name := range []string{PageZendesk, PageLogin} {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render writes the named page. Output is buffered so a template error never
// leaves a half-written response.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded assets. Mount it under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

func (r *Renderer) timeAgo(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	d := r.now().Sub(*t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}

func statusLabel(row page.StatusRow) string {
	if row.Disabled {
		return "Disabled"
	}
	switch row.Status {
	case models.IndexingStatusFailed:
		return "Error"
	case models.IndexingStatusInProgress:
		return "In Progress"
	case models.IndexingStatusNotStarted:
		return "Scheduled"
	}
	return "Enabled"
}

func statusClass(row page.StatusRow) string {
	switch {
	case row.Disabled:
		return "status-disabled"
	case row.Status == models.IndexingStatusFailed:
		return "status-failed"
	}
	return "status-enabled"
}
