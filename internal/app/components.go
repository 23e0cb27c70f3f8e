package app

import (
	"github.com/wasatchbitworks/birdworks-live/internal/birdsapi"
	"github.com/wasatchbitworks/birdworks-live/internal/dashboard"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
	"github.com/wasatchbitworks/birdworks-live/internal/observability"
	"github.com/wasatchbitworks/birdworks-live/internal/observability/metrics"
	"github.com/wasatchbitworks/birdworks-live/internal/preference"
)

// NewCMSClient creates the birds CMS client from the api settings. m may be
// nil.
func (c *Context) NewCMSClient(m *observability.Metrics) (*birdsapi.Client, error) {
	var cms *metrics.CMSMetrics
	if m != nil {
		cms = m.CMS
	}
	return birdsapi.New(birdsapi.ConfigFromSettings(&c.Settings.API), c.Log("birdsapi"), cms)
}

// NewDashboard creates the chart builder from the chart and location
// settings.
func (c *Context) NewDashboard(m *observability.Metrics) *dashboard.Builder {
	opts := dashboard.OptionsFromSettings(c.Settings, c.Location)
	if m != nil {
		opts.Metrics = m.Charts
	}
	opts.Logger = c.Log("dashboard")
	return dashboard.New(opts)
}

// OpenPreferences opens the SQLite preference store, or an in-memory one
// when no database path is configured.
func (c *Context) OpenPreferences() (preference.Store, error) {
	path := c.Settings.Live.PreferenceDB
	if path == "" {
		c.Log("preference").Info("auto-refresh preference kept in memory")
		return preference.NewMemoryStore(), nil
	}
	store, err := preference.OpenSQLite(path, c.Log("preference"))
	if err != nil {
		return nil, err
	}
	c.Log("preference").Debug("preference store opened", logger.String("path", path))
	return store, nil
}
