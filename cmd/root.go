package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wasatchbitworks/birdworks-live/cmd/render"
	"github.com/wasatchbitworks/birdworks-live/cmd/serve"
	"github.com/wasatchbitworks/birdworks-live/cmd/showconfig"
	"github.com/wasatchbitworks/birdworks-live/internal/app"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "birdworks",
		Short:         "BirdWorks live detection dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, ctx); err != nil {
		// flag names are static, binding only fails on programming errors
		panic(err)
	}

	versionCmd := versionCommand(ctx)
	subcommands := []*cobra.Command{
		serve.Command(ctx),
		render.Command(ctx),
		showconfig.Command(ctx),
		versionCmd,
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version needs no configuration
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return ctx.Initialize()
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return ctx.Close()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *app.Context) error {
	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigFile, "config", "c", "", "Path to config.yaml (default: ./, ~/.config/birdworks, /etc/birdworks)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := ctx.Viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func versionCommand(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "birdworks %s (built %s)\n",
				ctx.Build.GetVersion(), ctx.Build.GetBuildDate())
		},
	}
}
