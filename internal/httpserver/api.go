package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/wasatchbitworks/birdworks-live/internal/detection"
	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/livetable"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

type refreshResponse struct {
	Admitted bool `json:"admitted"`
}

type autoRefreshRequest struct {
	Enabled *bool `json:"enabled"`
}

type autoRefreshResponse struct {
	Enabled   bool             `json:"enabled"`
	Persisted bool             `json:"persisted"`
	Status    livetable.Status `json:"status"`
}

type audioErrorRequest struct {
	Reason string `json:"reason"`
}

// handleError logs the failure and writes an ErrorResponse. The request id
// doubles as the correlation id.
func (s *Server) handleError(c echo.Context, err error, message string, code int) error {
	resp := ErrorResponse{
		Error:         message,
		Message:       message,
		Code:          code,
		CorrelationID: requestID(c),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", c.Request().URL.Path),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("API error", fields...)
	} else {
		s.log.Debug("API request rejected", fields...)
	}
	return c.JSON(code, resp)
}

func (s *Server) handleLiveView(c echo.Context) error {
	return c.JSON(http.StatusOK, s.live.View())
}

// handleRefresh starts a background refresh. A refresh already in flight
// makes this a no-op that reports admitted=false.
func (s *Server) handleRefresh(c echo.Context) error {
	return c.JSON(http.StatusAccepted, refreshResponse{Admitted: s.live.TriggerRefresh()})
}

func (s *Server) handleAutoRefresh(c echo.Context) error {
	var req autoRefreshRequest
	if err := c.Bind(&req); err != nil {
		return s.handleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Enabled == nil {
		return s.handleError(c, nil, "enabled is required", http.StatusBadRequest)
	}

	err := s.live.SetAutoRefresh(c.Request().Context(), *req.Enabled)
	if errors.IsCategory(err, errors.CategoryState) {
		return s.handleError(c, err, "live table is shutting down", http.StatusServiceUnavailable)
	}
	// a persistence failure still toggles the timer
	return c.JSON(http.StatusOK, autoRefreshResponse{
		Enabled:   s.live.AutoRefresh(),
		Persisted: err == nil,
		Status:    s.live.Status(),
	})
}

// handleGoToPage moves to page n. Out of range pages are rejected with 409
// and leave the current page unchanged.
func (s *Server) handleGoToPage(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return s.handleError(c, err, "page must be a number", http.StatusBadRequest)
	}
	if !s.live.GoToPage(n) {
		return s.handleError(c, nil, "page "+strconv.Itoa(n)+" is out of range 1-"+strconv.Itoa(s.live.TotalPages()), http.StatusConflict)
	}
	return c.JSON(http.StatusOK, s.live.View())
}

// handleAudioPlay starts playback. An unavailable recording is not an HTTP
// error: the returned status carries the disabled control.
func (s *Server) handleAudioPlay(c echo.Context) error {
	// the URL exchange outlives the request so a dropped connection cannot
	// disable the row
	ctx := context.WithoutCancel(c.Request().Context())
	st, err := s.live.PlayAudio(ctx, detection.ID(c.Param("id")))
	return s.audioResponse(c, st, err)
}

func (s *Server) handleAudioPause(c echo.Context) error {
	st, err := s.live.PauseAudio(detection.ID(c.Param("id")))
	return s.audioResponse(c, st, err)
}

func (s *Server) handleAudioEnded(c echo.Context) error {
	st, err := s.live.AudioEnded(detection.ID(c.Param("id")))
	return s.audioResponse(c, st, err)
}

func (s *Server) handleAudioError(c echo.Context) error {
	var req audioErrorRequest
	if err := c.Bind(&req); err != nil {
		return s.handleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Reason == "" {
		req.Reason = "playback failed"
	}
	st, err := s.live.AudioFailed(detection.ID(c.Param("id")), req.Reason)
	return s.audioResponse(c, st, err)
}

func (s *Server) audioResponse(c echo.Context, st livetable.AudioStatus, err error) error {
	if errors.IsNotFound(err) {
		return s.handleError(c, err, "detection not found", http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, st)
}
