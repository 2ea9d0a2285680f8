// Package views renders the dashboard pages. Every page template defines
// "content" and is executed inside the shared "layout".
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gin-gonic/gin/render"

	"omnia/internal/utils"
)

//go:embed templates/*.html
var files embed.FS

const layoutFile = "templates/layout.html"

// Renderer implements gin's render.HTMLRender.
type Renderer struct {
	pages map[string]*template.Template
}

func funcs() template.FuncMap {
	fm := sprig.HtmlFuncMap()
	fm["datetime"] = func(t time.Time) string { return utils.FormatDateTime(t) }
	return fm
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, n := range names {
		if n == layoutFile {
			continue
		}
		t, err := template.New(path.Base(n)).Funcs(funcs()).ParseFS(files, layoutFile, n)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", n, err)
		}
		r.pages[strings.TrimSuffix(path.Base(n), ".html")] = t
	}
	return r, nil
}

// Instance returns the render for page name, e.g. "login".
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		panic("views: unknown page " + name)
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

// Has reports whether page name exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
