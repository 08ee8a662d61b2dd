// Package welcome renders the static Tasku welcome view.
package welcome

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

const (
	// Name is the application name shown in the page title.
	Name = "Tasku"
	// Title is the heading text of the view.
	Title = "Bienvenido a Tasku"
	// Subtitle is the paragraph text under the heading.
	Subtitle = "proyecto en desarrollo"
	// Emoji is the decorative wrench glyph.
	Emoji = "🔧"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// content is the only data the templates ever see.
var content = struct {
	Name     string
	Title    string
	Subtitle string
	Emoji    string
}{
	Name:     Name,
	Title:    Title,
	Subtitle: Subtitle,
	Emoji:    Emoji,
}

// Render writes the view fragment (the container and its three children) to w.
func Render(w io.Writer) error {
	if err := templates.ExecuteTemplate(w, "welcome", content); err != nil {
		return fmt.Errorf("render welcome view: %w", err)
	}
	return nil
}

// RenderPage writes a complete HTML document hosting the view to w.
func RenderPage(w io.Writer) error {
	if err := templates.ExecuteTemplate(w, "page", content); err != nil {
		return fmt.Errorf("render welcome page: %w", err)
	}
	return nil
}

// Markup returns the view fragment as a string. It panics if rendering into
// memory fails, which means the embedded template is broken.
func Markup() string {
	var buf bytes.Buffer
	if err := Render(&buf); err != nil {
		panic(err)
	}
	return buf.String()
}
