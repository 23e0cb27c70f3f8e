package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wasatchbitworks/birdworks-live/internal/app"
	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/httpserver"
	"github.com/wasatchbitworks/birdworks-live/internal/livetable"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
	"github.com/wasatchbitworks/birdworks-live/internal/preference"
	"github.com/wasatchbitworks/birdworks-live/internal/svgwriter"
)

// Command creates the command that writes the dashboard as static files.
func Command(ctx *app.Context) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the dashboard to static files",
		Long:  "Fetch the detection data once and write every chart as SVG plus an index.html page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), ctx, outDir)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "dist", "Output directory")

	return cmd
}

// Run fetches a snapshot and writes <chart>.svg files and index.html to
// outDir. A failed fetch still produces a page carrying the error.
func Run(ctx context.Context, appCtx *app.Context, outDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := appCtx.Log("render")

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return writeError(err, outDir)
	}

	client, err := appCtx.NewCMSClient(nil)
	if err != nil {
		return err
	}
	defer client.Close()

	snap, err := client.Snapshot(ctx)
	if err != nil {
		log.Warn("rendering without detection data", logger.Error(err))
	}

	builder := appCtx.NewDashboard(nil)
	for _, scene := range builder.Build(snap).Ordered() {
		path := filepath.Join(outDir, scene.Name+".svg")
		if err := writeFile(path, func(f *os.File) error { return svgwriter.Encode(f, scene) }); err != nil {
			return err
		}
		log.Debug("chart written", logger.String("path", path))
	}

	live := livetable.New(livetable.ConfigFromSettings(&appCtx.Settings.Live, appCtx.Location),
		client, preference.NewMemoryStore(), client, livetable.Options{Logger: appCtx.Log("livetable")})
	live.Seed(snap.Latest, snap.GeneratedAt)
	view := live.View()
	live.Stop()

	page := httpserver.BuildPage(appCtx.Settings.Site.Name, snap, builder, &view, log)
	page.Static = true
	index := filepath.Join(outDir, "index.html")
	if err := writeFile(index, func(f *os.File) error { return httpserver.WritePage(f, page, log) }); err != nil {
		return err
	}

	log.Info("static dashboard written",
		logger.String("dir", outDir),
		logger.Int("charts", len(page.Charts)))
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return writeError(err, path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return writeError(err, path)
	}
	if err := f.Close(); err != nil {
		return writeError(err, path)
	}
	return nil
}

func writeError(err error, path string) error {
	return errors.New(fmt.Errorf("write %s: %w", path, err)).
		Component("render").
		Category(errors.CategoryRender).
		Context("path", path).
		Build()
}
