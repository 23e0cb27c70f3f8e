// Package httpserver serves the dashboard page, the chart SVGs and the JSON
// API the page script uses to drive the live detections table.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wasatchbitworks/birdworks-live/internal/birdsapi"
	"github.com/wasatchbitworks/birdworks-live/internal/dashboard"
	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/livetable"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
	"github.com/wasatchbitworks/birdworks-live/internal/observability"
)

const componentName = "httpserver"

// SnapshotSource provides the data the page and charts render from. A failed
// fetch still returns a usable, possibly empty, snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*birdsapi.Snapshot, error)
}

// Config holds the listener and page settings.
type Config struct {
	Listen   string
	SiteName string
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Deps are the components the handlers call into. Metrics and Logger may be
// nil.
type Deps struct {
	Source  SnapshotSource
	Live    *livetable.Controller
	Charts  *dashboard.Builder
	Metrics *observability.Metrics
	Logger  logger.Logger
}

// Server encapsulates the echo instance and the components behind it.
type Server struct {
	Echo *echo.Echo

	cfg     Config
	source  SnapshotSource
	live    *livetable.Controller
	charts  *dashboard.Builder
	metrics *observability.Metrics
	log     logger.Logger
}

// New builds the echo instance with middleware, renderer and routes.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Source == nil || deps.Live == nil || deps.Charts == nil {
		return nil, errors.Newf("snapshot source, live controller and chart builder are required").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "BirdWorks"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	log := orDiscard(deps.Logger)

	s := &Server{
		Echo:    echo.New(),
		cfg:     cfg,
		source:  deps.Source,
		live:    deps.Live,
		charts:  deps.Charts,
		metrics: deps.Metrics,
		log:     log.Module(componentName),
	}

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Logger = newEchoLogger(log.Module("echo"))

	renderer, err := newTemplateRenderer(s.log)
	if err != nil {
		return nil, err
	}
	s.Echo.Renderer = renderer

	s.configureMiddleware(log.Module("access"))
	s.initRoutes()
	return s, nil
}

// ListenAndServe blocks until the server stops. A graceful shutdown returns
// nil.
func (s *Server) ListenAndServe() error {
	s.log.Info("HTTP server starting", logger.String("listen", s.cfg.Listen))
	err := s.Echo.Start(s.cfg.Listen)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryNetwork).
			Context("listen", s.cfg.Listen).
			Build()
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.Echo.Shutdown(ctx); err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryNetwork).
			Context("operation", "shutdown").
			Build()
	}
	s.log.Info("HTTP server stopped")
	return nil
}

func (s *Server) initRoutes() {
	s.Echo.GET("/", s.handleIndex)
	s.Echo.GET("/charts/:name", s.handleChart)
	s.Echo.GET("/live/table", s.handleTablePartial)
	s.Echo.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := s.Echo.Group("/api/v1")
	api.GET("/live", s.handleLiveView)
	api.POST("/live/refresh", s.handleRefresh)
	api.PUT("/live/autorefresh", s.handleAutoRefresh)
	api.POST("/live/page/:n", s.handleGoToPage)
	api.POST("/audio/:id/play", s.handleAudioPlay)
	api.POST("/audio/:id/pause", s.handleAudioPause)
	api.POST("/audio/:id/ended", s.handleAudioEnded)
	api.POST("/audio/:id/error", s.handleAudioError)
}
