package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"go-kb-app/internal/textutil"
)

// View represents a collection of parsed HTML templates.
type View struct {
	templates map[string]*template.Template
	now       func() time.Time
}

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"truncate":    textutil.Truncate,
		"readingTime": textutil.ReadingTime,
		"snippet":     textutil.HighlightSnippet,
		"date": func(t time.Time) string {
			return t.Format("January 2, 2006")
		},
		"isoDate": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"hasTag": func(tags []int64, id int64) bool {
			for _, t := range tags {
				if t == id {
					return true
				}
			}
			return false
		},
	}
}

// New creates a new View by parsing all templates from the given filesystem.
// Every page under templates/pages is parsed together with the layouts and
// partials and addressed by its base name.
func New(templateFS fs.FS) (*View, error) {
	v := &View{
		templates: make(map[string]*template.Template),
		now:       time.Now,
	}

	layouts, err := fs.Glob(templateFS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}
	partials, err := fs.Glob(templateFS, "templates/partials/*.html")
	if err != nil {
		return nil, err
	}
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	shared := append(layouts, partials...)
	for _, page := range pages {
		files := append(append([]string{}, shared...), page)
		name := filepath.Base(page)
		ts, err := template.New(name).Funcs(Funcs()).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.templates[name] = ts
	}

	return v, nil
}

// Has reports whether a page template with the given name exists.
func (v *View) Has(name string) bool {
	_, ok := v.templates[name]
	return ok
}

// Render executes a specific template by name.
func (v *View) Render(w io.Writer, r *http.Request, name string, data map[string]interface{}) error {
	ts, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	if data == nil {
		data = make(map[string]interface{})
	}
	data["CurrentYear"] = v.now().Year()
	if r != nil {
		data["CurrentPath"] = r.URL.Path
	}

	// Execute the template into a buffer first to catch any errors
	// before writing to the response writer.
	buf := new(bytes.Buffer)
	if err := ts.Execute(buf, data); err != nil {
		return err
	}

	_, err := buf.WriteTo(w)
	return err
}
