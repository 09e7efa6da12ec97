// Package views renders the HTML pages chosen by the authorization
// dispatcher.
package views

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
)

// View identifiers understood by every Renderer.
const (
	Index   = "index"
	NotAuth = "notAuth"
	Error   = "error"
)

// ErrUnknownView is returned when asked to render a view that does not exist.
var ErrUnknownView = errors.New("unknown view")

// Renderer writes a named view with the given status code.
type Renderer interface {
	Render(w http.ResponseWriter, status int, view string, data any) error
}

// PageData is the data passed to the built-in templates.
type PageData struct {
	Subject   string
	Roles     []string
	RequestID string
}

//go:embed templates/*.html
var templateFS embed.FS

// TemplateRenderer renders the embedded HTML templates.
type TemplateRenderer struct {
	views map[string]*template.Template
}

// NewTemplateRenderer parses the embedded templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	r := &TemplateRenderer{views: make(map[string]*template.Template, 3)}
	for _, name := range []string{Index, NotAuth, Error} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", name, err)
		}
		r.views[name] = t
	}
	return r, nil
}

// MustTemplateRenderer is like NewTemplateRenderer but panics on error.
func MustTemplateRenderer() *TemplateRenderer {
	r, err := NewTemplateRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render executes view into a buffer and writes it only when execution
// succeeds, so a failed render leaves w untouched.
func (r *TemplateRenderer) Render(w http.ResponseWriter, status int, view string, data any) error {
	t, ok := r.views[view]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownView, view)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", view, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
