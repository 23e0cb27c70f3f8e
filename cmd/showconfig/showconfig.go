package showconfig

import (
	"github.com/spf13/cobra"

	"github.com/wasatchbitworks/birdworks-live/internal/app"
	"github.com/wasatchbitworks/birdworks-live/internal/conf"
)

// Command creates the command that prints the effective configuration.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after defaults, config file and environment are merged. Credentials are masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return conf.Dump(cmd.OutOrStdout(), ctx.Settings)
		},
	}
}
