package main

import (
	"context"
	"log/slog"

	"github.com/giveawaysclub/sgtracker/internal/config"
	"github.com/giveawaysclub/sgtracker/internal/cvstatus"
	"github.com/giveawaysclub/sgtracker/internal/notifier"
	"github.com/giveawaysclub/sgtracker/internal/processor"
	"github.com/giveawaysclub/sgtracker/internal/scraper"
	"github.com/giveawaysclub/sgtracker/internal/storage"
	"github.com/giveawaysclub/sgtracker/internal/util"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	config    *config.Config
	store     *storage.FileStore
	scraper   *scraper.Client
	processor *processor.Processor

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) *app {
	a := &app{
		config:  cfg,
		store:   storage.NewFileStore(),
		scraper: scraper.New(cfg),
	}

	var cache cvstatus.Cache
	if cfg.RedisURL != "" {
		rc, err := cvstatus.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("Redis unavailable, caching bundle lookups in memory", "error", err)
		} else {
			cache = rc
			a.closers = append(a.closers, rc.Close)
		}
	}
	resolver := cvstatus.NewResolver(a.scraper, util.NewPacer(cfg.BundleLookupInterval), cache)

	opts := []processor.Option{processor.WithEnricher(resolver)}
	if cfg.DiscordWebhookURL != "" {
		opts = append(opts, processor.WithNotifier(notifier.New(cfg.DiscordWebhookURL, cfg.BaseURL)))
	}
	if cfg.ProjectID != "" {
		mirror, err := storage.NewMirror(ctx, cfg.ProjectID)
		if err != nil {
			slog.Warn("Firestore mirror disabled", "error", err)
		} else {
			opts = append(opts, processor.WithMirror(mirror))
			a.closers = append(a.closers, mirror.Close)
		}
	}

	a.processor = processor.New(a.store, a.scraper, util.NewPacer(cfg.RequestInterval), cfg, opts...)
	return a
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			slog.Warn("Failed to close client", "error", err)
		}
	}
}

// loadApp reads configuration and wires an app for a command.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg), nil
}
