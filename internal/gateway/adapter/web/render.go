package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders a named page with a model.
type Renderer interface {
	Render(w io.Writer, name string, model any) error
}

// Templates renders the embedded HTML pages.
type Templates struct {
	set *template.Template
}

// NewTemplates parses the embedded pages.
func NewTemplates() (*Templates, error) {
	set, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Templates{set: set}, nil
}

// Render executes the page called name. Nothing is written when execution fails.
func (t *Templates) Render(w io.Writer, name string, model any) error {
	var buf bytes.Buffer
	if err := t.set.ExecuteTemplate(&buf, name, model); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
