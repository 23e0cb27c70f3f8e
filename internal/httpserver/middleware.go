package httpserver

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/wasatchbitworks/birdworks-live/internal/logger"
)

// configureMiddleware sets up middleware for the server.
func (s *Server) configureMiddleware(access logger.Logger) {
	s.Echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.Echo.Use(s.requestLogger(access))
	s.Echo.Use(middleware.Recover())
}

// requestLogger writes one access log line per request. Server errors log at
// error level, client errors at warn.
func (s *Server) requestLogger(access logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:          true,
		LogStatus:       true,
		LogLatency:      true,
		LogRemoteIP:     true,
		LogMethod:       true,
		LogError:        true,
		LogResponseSize: true,
		LogRequestID:    true,
		HandleError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("request_id", v.RequestID),
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
				logger.String("remote_ip", v.RemoteIP),
				logger.Int64("bytes_out", v.ResponseSize),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}

			switch {
			case v.Status >= 500:
				access.Error("request failed", fields...)
			case v.Status >= 400:
				access.Warn("request rejected", fields...)
			default:
				access.Info("request", fields...)
			}
			return nil
		},
	})
}

// requestID returns the id the RequestID middleware assigned.
func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
