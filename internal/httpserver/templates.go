package httpserver

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/livetable"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
)

//go:embed views/*.html
var viewsFS embed.FS

// Template names.
const (
	templateIndex = "index.html"
	templateTable = "table"
)

// TemplateRenderer renders the embedded views for echo.
type TemplateRenderer struct {
	templates *template.Template
	log       logger.Logger
}

func newTemplateRenderer(log logger.Logger) (*TemplateRenderer, error) {
	funcs := template.FuncMap{
		"emptyMessage": func() string { return livetable.EmptyMessage },
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(viewsFS, "views/*.html")
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Context("operation", "parse templates").
			Build()
	}
	return &TemplateRenderer{templates: tmpl, log: log}, nil
}

// Render executes into a buffer first so a failing template never leaves a
// half written response.
func (t *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	var buf bytes.Buffer
	if err := t.templates.ExecuteTemplate(&buf, name, data); err != nil {
		t.log.Error("template execution failed", logger.String("template", name), logger.Error(err))
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
