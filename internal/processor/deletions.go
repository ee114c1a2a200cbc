package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/giveawaysclub/sgtracker/internal/config"
	"github.com/giveawaysclub/sgtracker/internal/models"
	"github.com/giveawaysclub/sgtracker/internal/scraper"
	"github.com/giveawaysclub/sgtracker/internal/util"
)

// DeletionResult summarises one deletion sweep.
type DeletionResult struct {
	Candidates int
	Deleted    int
	Failed     int
}

// DeletionChecker visits ended giveaways that drew no entries and marks the
// ones the site reports as deleted.
type DeletionChecker struct {
	store       Store
	fetcher     DocumentFetcher
	selectors   scraper.SelectorConfig
	config      *config.Config
	limiter     *rate.Limiter
	concurrency int
	now         func() time.Time
}

func NewDeletionChecker(store Store, fetcher DocumentFetcher, selectors scraper.SelectorConfig, cfg *config.Config) *DeletionChecker {
	return &DeletionChecker{
		store:       store,
		fetcher:     fetcher,
		selectors:   selectors,
		config:      cfg,
		limiter:     util.NewPacer(cfg.RequestInterval),
		concurrency: cfg.DeletionCheckConcurrency,
		now:         time.Now,
	}
}

// ShouldCheck reports whether g is a deletion candidate at epoch second now.
func ShouldCheck(g models.Giveaway, now int64) bool {
	return g.EndTimestamp < now && g.EntryCount == 0 && !g.Deleted
}

// Run checks every candidate in the file at path and rewrites the file when
// any giveaway was newly marked. Per-giveaway failures are logged and counted.
func (d *DeletionChecker) Run(ctx context.Context, path string) (*DeletionResult, error) {
	snap, err := d.store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load giveaways: %w", err)
	}
	giveaways := snap.Giveaways

	now := d.now().Unix()
	var candidates []int
	for i, g := range giveaways {
		if ShouldCheck(g, now) {
			candidates = append(candidates, i)
		}
	}
	res := &DeletionResult{Candidates: len(candidates)}
	slog.Info("Checking giveaways for deletion", "candidates", len(candidates), "total", len(giveaways))
	if len(candidates) == 0 {
		return res, nil
	}

	infos := make([]scraper.DeletionInfo, len(giveaways))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.concurrency, 1))
	for _, idx := range candidates {
		g.Go(func() error {
			if err := d.limiter.Wait(gctx); err != nil {
				return err
			}
			info, err := d.check(gctx, giveaways[idx])
			if err != nil {
				slog.Warn("Deletion check failed", "id", giveaways[idx].ID, "error", err)
				mu.Lock()
				res.Failed++
				mu.Unlock()
				return nil
			}
			infos[idx] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, idx := range candidates {
		if !infos[idx].Deleted {
			continue
		}
		giveaways[idx].Deleted = true
		giveaways[idx].DeletedReason = infos[idx].Reason
		res.Deleted++
		slog.Info("Giveaway was deleted", "id", giveaways[idx].ID, "name", giveaways[idx].Name, "reason", infos[idx].Reason)
	}

	if res.Deleted == 0 {
		slog.Info("No deleted giveaways found")
		return res, nil
	}
	if err := d.store.Save(path, giveaways); err != nil {
		return nil, fmt.Errorf("failed to save giveaways: %w", err)
	}
	slog.Info("Marked deleted giveaways", "count", res.Deleted, "failed", res.Failed)
	return res, nil
}

func (d *DeletionChecker) check(ctx context.Context, g models.Giveaway) (scraper.DeletionInfo, error) {
	if g.Link == "" {
		return scraper.DeletionInfo{}, fmt.Errorf("giveaway %d has no link", g.ID)
	}
	pageURL, err := util.GiveawayURL(d.config.BaseURL, g.Link)
	if err != nil {
		return scraper.DeletionInfo{}, fmt.Errorf("invalid link for giveaway %d: %w", g.ID, err)
	}
	doc, err := d.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		return scraper.DeletionInfo{}, err
	}
	return scraper.DetectDeletion(doc, d.selectors), nil
}
