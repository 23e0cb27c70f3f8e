package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/wasatchbitworks/birdworks-live/cmd"
	"github.com/wasatchbitworks/birdworks-live/internal/app"
	"github.com/wasatchbitworks/birdworks-live/internal/buildinfo"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   string
	buildDate string
)

func main() {
	ctx := app.NewContext(viper.New(), buildinfo.NewContext(version, buildDate))

	if err := cmd.RootCommand(ctx).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
