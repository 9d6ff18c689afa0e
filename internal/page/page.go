// Package page renders the generated strip as a standalone HTML page with the
// same element ids the web front end uses: image1..image3 and final-image,
// each carrying class "generated" once filled.
package page

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fpang/comix-generator/internal/comix"
)

//go:embed templates/comic.html
var comicHTML string

var comicTmpl = template.Must(template.New("comic").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(comicHTML))

// Image is one <img> element. Src is a relative file path or a data URI;
// it is trusted as-is so data URIs are not filtered by the escaper.
type Image struct {
	Src       template.URL
	Generated bool
	Caption   string
}

// Page is the data rendered into the template.
type Page struct {
	Title       string
	Panels      [comix.CaptionCount]Image
	Final       Image
	GeneratedAt string
}

// New builds a Page for a request, without images.
func New(req comix.GenerationRequest, at time.Time) Page {
	p := Page{Title: req.Title}
	for i := range p.Panels {
		if i < len(req.Captions) {
			p.Panels[i].Caption = req.Captions[i]
		}
	}
	if !at.IsZero() {
		p.GeneratedAt = at.UTC().Format(time.RFC3339)
	}
	return p
}

// Render writes the page as HTML.
func Render(w io.Writer, p Page) error {
	if err := comicTmpl.Execute(w, p); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// WriteFile renders the page to path, creating its directory.
func WriteFile(path string, p Page) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create page directory: %w", err)
	}
	var sb strings.Builder
	if err := Render(&sb, p); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
