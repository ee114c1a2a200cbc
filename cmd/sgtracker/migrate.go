package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/giveawaysclub/sgtracker/internal/config"
	"github.com/giveawaysclub/sgtracker/internal/processor"
	"github.com/giveawaysclub/sgtracker/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Rewrite a giveaways file in the current schema.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = cfg.DataFile
		}
		return migrateFile(storage.NewFileStore(), path)
	},
}

func init() {
	migrateCmd.Flags().StringP("file", "f", "", "giveaways file (default from GIVEAWAYS_FILE)")
	rootCmd.AddCommand(migrateCmd)
}

func migrateFile(store *storage.FileStore, path string) error {
	snap, err := store.Load(path)
	if err != nil {
		return err
	}
	if !snap.Found {
		return fmt.Errorf("giveaways file %s does not exist", path)
	}

	processor.SortGiveaways(snap.Giveaways)
	if err := store.Save(path, snap.Giveaways); err != nil {
		return err
	}
	slog.Info("Migrated giveaways file",
		"path", path,
		"from", snap.Version,
		"to", storage.SchemaV2,
		"records", len(snap.Giveaways),
		"migrated", snap.Migrated)
	return nil
}
