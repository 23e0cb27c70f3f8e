// Package app holds the state shared by the commands once configuration is
// loaded, and builds the components they run.
package app

import (
	"io"
	"time"

	"github.com/spf13/viper"

	"github.com/wasatchbitworks/birdworks-live/internal/buildinfo"
	"github.com/wasatchbitworks/birdworks-live/internal/conf"
	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
)

// Context holds the overall application state.
type Context struct {
	Viper      *viper.Viper
	ConfigFile string
	Build      *buildinfo.Context

	Settings *conf.Settings
	Location *time.Location
	Logger   *logger.CentralLogger

	// Console overrides the log console, stdout when nil.
	Console io.Writer
}

// NewContext creates an uninitialized context. Flags bind to v before
// Initialize reads the configuration.
func NewContext(v *viper.Viper, build *buildinfo.Context) *Context {
	if v == nil {
		v = viper.New()
	}
	return &Context{Viper: v, Build: build}
}

// Initialize loads settings and sets up logging and error telemetry.
func (c *Context) Initialize() error {
	settings, err := conf.Load(c.Viper, c.ConfigFile)
	if err != nil {
		return err
	}

	loc, err := settings.Site.Zone()
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("timezone", settings.Site.Timezone).
			Build()
	}

	level := settings.Logging.Level
	if settings.Debug {
		level = string(logger.LogLevelDebug)
	}
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     settings.Site.Timezone,
		FilePath:     settings.Logging.File,
		Console:      c.Console,
	})
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logger").
			Build()
	}
	logger.SetGlobal(cl)

	if err := errors.InitSentry(settings.Telemetry.SentryDSN, c.Build.Release()); err != nil {
		// telemetry is optional
		cl.Module("app").Warn("error telemetry disabled", logger.Error(err))
	}

	c.Settings = settings
	c.Location = loc
	c.Logger = cl
	return nil
}

// Log returns a module logger, discarding output before Initialize.
func (c *Context) Log(module string) logger.Logger {
	if c.Logger == nil {
		return logger.NewSlogLogger(nil, logger.LogLevelInfo, nil).Module(module)
	}
	return c.Logger.Module(module)
}

// Close flushes the log file.
func (c *Context) Close() error {
	return c.Logger.Close()
}
