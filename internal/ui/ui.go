// Package ui renders the site's HTML pages. Templates and static assets are
// embedded in the binary; in dev mode they are read from disk on every
// request for live reloading.
package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
)

//go:embed templates static
var content embed.FS

// devDir is where templates are read from in dev mode, relative to the
// repository root.
const devDir = "internal/ui"

// Pages lists every renderable page template.
var Pages = []string{
	"home", "about", "services", "projects", "login", "signUp",
	"profile", "appointments", "adminDashboard", "unAuthorized", "error",
}

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"pager": newPager,
}

// Pager is the view model of the admin list pager.
type Pager struct {
	Tab       string
	Query     string
	Page      int
	PageCount int
}

func newPager(tab, query string, page, count int) Pager {
	return Pager{Tab: tab, Query: query, Page: page, PageCount: count}
}

// Pages lists the page numbers 1..PageCount.
func (p Pager) Pages() []int {
	out := make([]int, p.PageCount)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Renderer executes page templates.
type Renderer struct {
	fsys fs.FS
	dev  bool

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// New creates a Renderer. Outside dev mode every page is parsed up front so
// a broken template fails at startup.
func New(dev bool) (*Renderer, error) {
	r := &Renderer{dev: dev, cache: make(map[string]*template.Template)}
	if dev {
		r.fsys = os.DirFS(devDir)
		return r, nil
	}
	r.fsys = content
	for _, p := range Pages {
		t, err := r.parse(p)
		if err != nil {
			return nil, err
		}
		r.cache[p] = t
	}
	return r, nil
}

func (r *Renderer) parse(page string) (*template.Template, error) {
	t, err := template.New(page).Funcs(funcs).ParseFS(r.fsys,
		"templates/layout.html",
		"templates/partials/*.html",
		path.Join("templates", page+".html"),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", page, err)
	}
	return t, nil
}

func (r *Renderer) lookup(page string) (*template.Template, error) {
	if r.dev {
		return r.parse(page)
	}
	r.mu.RLock()
	t, ok := r.cache[page]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown page %q", page)
	}
	return t, nil
}

// Render writes page with status. Output is buffered so a failing template
// never produces a half-written page.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	t, err := r.lookup(page)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("rendering %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.dev {
		w.Header().Set("Cache-Control", "no-cache")
	}
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// Static serves the stylesheet and images under /static/.
func (r *Renderer) Static() http.Handler {
	sub, err := fs.Sub(r.fsys, "static")
	if err != nil {
		return http.NotFoundHandler()
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
