// Package web renders the server-side HTML pages of the admin interface.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var files embed.FS

const layout = "templates/layout.html"

type Templates struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"join": func(list []string) string {
		return strings.Join(list, ", ")
	},
	"price": func(d decimal.NullDecimal) string {
		if !d.Valid {
			return ""
		}
		return d.Decimal.StringFixed(2)
	},
	"decimal": func(d decimal.Decimal) string {
		return d.StringFixed(2)
	},
	"float": func(f *float64) string {
		if f == nil {
			return ""
		}
		return strconv.FormatFloat(*f, 'f', -1, 64)
	},
	"base": path.Base,
	"add":  func(a, b int) int { return a + b },
	"sub":  func(a, b int) int { return a - b },
}

// New parses every page under templates/ together with the shared layout.
// Pages are looked up by file name without extension.
func New() (*Templates, error) {
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		if name == layout {
			continue
		}
		t, err := template.New(path.Base(layout)).Funcs(funcs).ParseFS(files, layout, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[strings.TrimSuffix(path.Base(name), ".html")] = t
	}
	return &Templates{pages: pages}, nil
}

// Render writes the named page with status. Output is buffered so a template
// error still produces a clean 500.
func (t *Templates) Render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := t.pages[name]
	if !ok {
		log.Printf("[web] unknown page %q", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, path.Base(layout), data); err != nil {
		log.Printf("[web] render %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
