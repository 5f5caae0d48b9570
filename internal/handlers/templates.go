package handlers

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"kindergarten/internal/security"
	"kindergarten/internal/session"
)

// Renderer executes page templates with the shared layout data
type Renderer struct {
	templates *template.Template
	csrf      *security.CSRFSigner
	views     *ViewStore
}

// NewRenderer creates a new renderer
func NewRenderer(templates *template.Template, csrf *security.CSRFSigner, views *ViewStore) *Renderer {
	return &Renderer{templates: templates, csrf: csrf, views: views}
}

// Layout builds the layout of a page. For signed-in sessions it also takes
// the pending alert.
func (rd *Renderer) Layout(r *http.Request, title, active string) Layout {
	gate := session.FromContext(r.Context())
	l := Layout{
		Title:         title + " - Šilelis",
		Active:        active,
		Identity:      gate.Identity(),
		Authenticated: gate.IsAuthenticated(),
	}
	if !l.Authenticated {
		return l
	}

	token, err := rd.csrf.Token(gate.ID())
	if err != nil {
		slog.Error("failed to generate csrf token", "error", err)
	}
	l.CSRFToken = token
	l.Alert = rd.views.Get(gate.ID()).TakeAlert()
	return l
}

// Render executes the named template. Output is buffered so a failing
// template never sends a partial page.
func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := rd.templates.ExecuteTemplate(&buf, name, data); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error rendering "+name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
