package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/giveawaysclub/sgtracker/internal/storage"
)

func TestMigrateFile_RewritesLegacyAndSorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_giveaways.json")
	legacy := `{"giveaways": [
  {"id": "17", "name": "Hades", "created_timestamp": 100, "end_timestamp": 900, "creator": "carol"},
  {"id": 18, "name": "Hollow Knight", "created_timestamp": 400, "end_timestamp": 800, "creator_username": "dave"}
]}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	store := storage.NewFileStore()
	if err := migrateFile(store, path); err != nil {
		t.Fatalf("migrateFile() error = %v", err)
	}

	snap, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Version != storage.SchemaV2 {
		t.Errorf("Version = %v, want v2", snap.Version)
	}
	if snap.Migrated != 0 {
		t.Errorf("Migrated = %d, want 0 after rewrite", snap.Migrated)
	}
	if len(snap.Giveaways) != 2 || snap.Giveaways[0].ID != 18 || snap.Giveaways[1].ID != 17 {
		t.Errorf("Giveaways = %+v, want ids [18 17]", snap.Giveaways)
	}
}

func TestMigrateFile_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	if err := migrateFile(storage.NewFileStore(), path); err == nil {
		t.Fatal("migrateFile() error = nil, want error for missing file")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("migrateFile() created %s", path)
	}
}

func TestMigrateFile_SchemaErrorIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte(`{"not": "giveaways"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	err := migrateFile(storage.NewFileStore(), path)
	var schemaErr *storage.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("migrateFile() error = %v, want *storage.SchemaError", err)
	}
}
