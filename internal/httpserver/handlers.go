package httpserver

import (
	"bytes"
	"context"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/wasatchbitworks/birdworks-live/internal/birdsapi"
	"github.com/wasatchbitworks/birdworks-live/internal/dashboard"
	"github.com/wasatchbitworks/birdworks-live/internal/livetable"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
	"github.com/wasatchbitworks/birdworks-live/internal/svgwriter"
)

// chartView is one inline chart on the page.
type chartView struct {
	Name string
	SVG  template.HTML
}

// PageData represents data for rendering the dashboard page.
type PageData struct {
	Title   string
	Error   string
	Summary dashboard.Summary
	Charts  []chartView
	Table   *livetable.View
	// Static drops the script, leaving the table controls inert.
	Static bool
}

// snapshot always returns a snapshot; fetch failures are logged and carried
// in its Error field.
func (s *Server) snapshot(ctx context.Context) *birdsapi.Snapshot {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		s.log.Warn("rendering without detection data", logger.Error(err))
	}
	if snap == nil {
		snap = &birdsapi.Snapshot{}
		if err != nil {
			snap.Error = err.Error()
		}
	}
	return snap
}

func (s *Server) handleIndex(c echo.Context) error {
	snap := s.snapshot(c.Request().Context())
	view := s.live.View()
	return c.Render(http.StatusOK, templateIndex, BuildPage(s.cfg.SiteName, snap, s.charts, &view, s.log))
}

// BuildPage renders every chart of snap inline and assembles the page data.
// Charts that fail to encode are logged and left out.
func BuildPage(title string, snap *birdsapi.Snapshot, charts *dashboard.Builder, table *livetable.View, log logger.Logger) *PageData {
	log = orDiscard(log)
	scenes := charts.Build(snap).Ordered()
	views := make([]chartView, 0, len(scenes))
	for _, scene := range scenes {
		svg, err := svgwriter.String(scene)
		if err != nil {
			log.Error("failed to encode chart", logger.String("chart", scene.Name), logger.Error(err))
			continue
		}
		views = append(views, chartView{Name: scene.Name, SVG: template.HTML(svg)}) //nolint:gosec // svgwriter escapes every attribute and text node
	}
	return &PageData{
		Title:   title,
		Error:   snap.Error,
		Summary: charts.Summarize(snap),
		Charts:  views,
		Table:   table,
	}
}

// WritePage renders the page outside a request, as the static export does.
func WritePage(w io.Writer, data *PageData, log logger.Logger) error {
	renderer, err := newTemplateRenderer(orDiscard(log))
	if err != nil {
		return err
	}
	return renderer.Render(w, templateIndex, data, nil)
}

func orDiscard(log logger.Logger) logger.Logger {
	if log == nil {
		return logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	return log
}

// handleChart serves one chart as SVG. Charts with no data answer 204.
func (s *Server) handleChart(c echo.Context) error {
	name := strings.TrimSuffix(c.Param("name"), ".svg")
	if !dashboard.Known(name) {
		return s.handleError(c, nil, "unknown chart "+name, http.StatusNotFound)
	}

	scene, ok, err := s.charts.Chart(s.snapshot(c.Request().Context()), name)
	if err != nil {
		return s.handleError(c, err, "failed to build chart", http.StatusInternalServerError)
	}
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}

	var buf bytes.Buffer
	if err := svgwriter.Encode(&buf, scene); err != nil {
		return s.handleError(c, err, "failed to encode chart", http.StatusInternalServerError)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return c.Blob(http.StatusOK, "image/svg+xml", buf.Bytes())
}

// handleTablePartial renders the table fragment the page swaps in.
func (s *Server) handleTablePartial(c echo.Context) error {
	view := s.live.View()
	return c.Render(http.StatusOK, templateTable, &view)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
