package util

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"blog/web"
)

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// Renderer holds one parsed template set per page: the page itself plus the
// shared layout and partials.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page under templates/ from the embedded FS.
func NewRenderer() (*Renderer, error) {
	return newRenderer(web.Templates, "templates")
}

func newRenderer(fsys fs.FS, dir string) (*Renderer, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	shared := []string{path.Join(dir, "layout.html"), path.Join(dir, "partials.html")}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" || base == "partials.html" {
			continue
		}
		t, err := template.New(base).Funcs(funcs).ParseFS(fsys, append(shared, name)...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		r.pages[strings.TrimSuffix(base, ".html")] = t
	}
	return r, nil
}

// Execute runs the named template of page into a buffer.
func (r *Renderer) Execute(page, name string, data any) ([]byte, error) {
	t, ok := r.pages[page]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s/%s: %w", page, name, err)
	}
	return buf.Bytes(), nil
}

// Render writes page wrapped in the layout with the given status. Nothing is
// written when rendering fails, so the caller can still send an error page.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	b, err := r.Execute(page, "base", data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}
