package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wasatchbitworks/birdworks-live/internal/app"
	"github.com/wasatchbitworks/birdworks-live/internal/httpserver"
	"github.com/wasatchbitworks/birdworks-live/internal/livetable"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
	"github.com/wasatchbitworks/birdworks-live/internal/mqtt"
	"github.com/wasatchbitworks/birdworks-live/internal/observability"
)

// Command creates the command that serves the dashboard and live table.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and live detection table",
		Long:  "Start the web server with the charts, the live detection table and its refresh loop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), ctx)
		},
	}

	cmd.Flags().String("listen", "", "Listen address of the web server")
	if err := ctx.Viper.BindPFlag("webserver.listen", cmd.Flags().Lookup("listen")); err != nil {
		panic(fmt.Sprintf("error binding flags: %v", err))
	}

	return cmd
}

// Run wires the components together and blocks until SIGINT or SIGTERM, or
// until the server fails.
func Run(parent context.Context, appCtx *app.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := appCtx.Log("serve")
	settings := appCtx.Settings

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	prefs, err := appCtx.OpenPreferences()
	if err != nil {
		return err
	}
	defer func() {
		if err := prefs.Close(); err != nil {
			log.Warn("failed to close preference store", logger.Error(err))
		}
	}()

	client, err := appCtx.NewCMSClient(m)
	if err != nil {
		return err
	}
	defer client.Close()

	live := livetable.New(livetable.ConfigFromSettings(&settings.Live, appCtx.Location),
		client, prefs, client, livetable.Options{
			Logger:  appCtx.Log("livetable"),
			Metrics: m.Live,
		})

	if latest, err := client.Latest(ctx); err != nil {
		log.Warn("starting with an empty live table", logger.Error(err))
	} else {
		live.Seed(latest, time.Now())
	}
	if err := live.Start(ctx); err != nil {
		return err
	}
	defer live.Stop()

	if settings.MQTT.Enabled {
		trigger := mqtt.NewTrigger(mqtt.ConfigFromSettings(&settings.MQTT), live, appCtx.Log("mqtt"), m.MQTT)
		if err := trigger.Start(ctx); err != nil {
			log.Warn("MQTT refresh trigger unavailable", logger.Error(err))
		}
		defer trigger.Stop()
	}

	deps := httpserver.Deps{
		Source: client,
		Live:   live,
		Charts: appCtx.NewDashboard(m),
		Logger: appCtx.Log("httpserver"),
	}
	if settings.Telemetry.MetricsEnabled {
		deps.Metrics = m
	}
	server, err := httpserver.New(httpserver.Config{
		Listen:   settings.WebServer.Listen,
		SiteName: settings.Site.Name,
	}, deps)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	// the parent context is already cancelled here
	return server.Shutdown(context.WithoutCancel(ctx))
}
