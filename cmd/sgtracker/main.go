package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/giveawaysclub/sgtracker/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "sgtracker",
	Short:         "sgtracker keeps a local copy of the giveaways club's giveaways up to date.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
		return nil
	},
	RunE: runFetch,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log per-record updates and cache hits")
	addFetchFlags(rootCmd)
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("Ignoring .env file", "error", err)
	}

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
