package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/giveawaysclub/sgtracker/internal/processor"
	"github.com/giveawaysclub/sgtracker/internal/report"
	"github.com/giveawaysclub/sgtracker/internal/scraper"
)

var checkDeletedCmd = &cobra.Command{
	Use:   "check-deleted",
	Short: "Mark ended giveaways without entries that the site reports as deleted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = a.config.DataFile
		}

		checker := processor.NewDeletionChecker(a.store, a.scraper, scraper.LoadConfig(), a.config)
		res, err := checker.Run(ctx, path)
		if err != nil {
			return err
		}
		report.PrintDeletionSummary(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	checkDeletedCmd.Flags().StringP("file", "f", "", "giveaways file (default from GIVEAWAYS_FILE)")
	rootCmd.AddCommand(checkDeletedCmd)
}
