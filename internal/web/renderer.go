package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageIndex     = "index.html"
	pageChangelog = "changelog.html"
	pageDetails   = "details.html"
	pageError     = "error.html"
)

var funcs = template.FuncMap{
	"formatTime": func(v any) string { return formatTimeValue(v, "Jan 2, 2006 15:04 MST") },
	"formatDate": func(v any) string { return formatTimeValue(v, "Jan 2, 2006") },
}

func formatTimeValue(v any, layout string) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(layout)
	default:
		return ""
	}
}

// renderer holds one template set per page, each combined with the layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: map[string]*template.Template{}}
	for _, page := range []string{pageIndex, pageChangelog, pageDetails, pageError} {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
