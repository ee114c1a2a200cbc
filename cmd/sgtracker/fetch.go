package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/giveawaysclub/sgtracker/internal/processor"
	"github.com/giveawaysclub/sgtracker/internal/report"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch recent giveaways and merge them into the local file.",
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

func init() {
	addFetchFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "giveaways file (default from GIVEAWAYS_FILE)")
	cmd.Flags().Bool("all", false, "fetch every page instead of stopping at the 14 day cutoff")
	cmd.Flags().Bool("skip-cv", false, "do not resolve CV status")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	file, _ := cmd.Flags().GetString("file")
	all, _ := cmd.Flags().GetBool("all")
	skipCV, _ := cmd.Flags().GetBool("skip-cv")

	res, err := a.processor.Run(ctx, processor.RunOptions{Path: file, FetchAll: all, SkipCV: skipCV})
	if err != nil {
		return err
	}
	report.PrintSummary(cmd.OutOrStdout(), res, time.Now())
	return nil
}
