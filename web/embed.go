// Package web holds the page templates and static assets, embedded in the binary
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"kindergarten/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the static assets, rooted so that "app.css" is served as /static/app.css
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadTemplates parses every page template with the shared helper functions
func LoadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"formatDate": func(d models.Date) string {
			if d.IsZero() {
				return ""
			}
			return d.String()
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}
