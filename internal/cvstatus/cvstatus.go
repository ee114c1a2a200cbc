// Package cvstatus works out how much contributor value a giveaway earns its
// creator, based on when the game was added to the bundled games list.
package cvstatus

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/giveawaysclub/sgtracker/internal/models"
)

// BundleSearcher queries the bundle-games endpoint.
type BundleSearcher interface {
	FetchBundleGames(ctx context.Context, query string) (*models.BundleGamesResponse, error)
}

// Pacer spaces out bundle lookups.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Cache remembers lookups across giveaways. A nil game with found set means
// the game is not bundled.
type Cache interface {
	Get(ctx context.Context, key string) (game *models.BundleGame, found bool, err error)
	Set(ctx context.Context, key string, game *models.BundleGame) error
}

type Resolver struct {
	searcher BundleSearcher
	pacer    Pacer
	cache    Cache

	// failed holds keys whose lookup errored during this run.
	failed map[string]bool
}

func NewResolver(searcher BundleSearcher, pacer Pacer, cache Cache) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{
		searcher: searcher,
		pacer:    pacer,
		cache:    cache,
		failed:   make(map[string]bool),
	}
}

// CalculateStatus applies the contributor value rules to g given its bundle
// entry, or nil when the game was never bundled.
func CalculateStatus(g models.Giveaway, game *models.BundleGame) models.CVStatus {
	if game == nil {
		return models.FullCV
	}
	reduced := game.ReducedValueTimestamp
	noValue := game.NoValueTimestamp

	if reduced != nil && noValue != nil && *noValue < g.CreatedTimestamp {
		return models.NoCV
	}
	if reduced != nil && noValue == nil && *reduced < g.CreatedTimestamp {
		return models.ReducedCV
	}
	return models.FullCV
}

func cacheKey(g models.Giveaway) string {
	if g.AppID != nil {
		return "app:" + strconv.Itoa(*g.AppID)
	}
	return "name:" + strings.ToLower(g.Name)
}

// Status resolves the CV status of g. Lookup failures resolve to FULL_CV and
// are not retried for the rest of the run; only cancellation is returned.
func (r *Resolver) Status(ctx context.Context, g models.Giveaway) (models.CVStatus, error) {
	if g.AppID == nil && strings.TrimSpace(g.Name) == "" {
		return models.FullCV, nil
	}

	key := cacheKey(g)
	if r.failed[key] {
		return models.FullCV, nil
	}

	game, found, err := r.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("Bundle cache read failed", "key", key, "error", err)
	}
	if found {
		slog.Debug("Bundle cache hit", "key", key)
		return CalculateStatus(g, game), nil
	}

	game, err = r.lookup(ctx, g)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.Warn("Bundle lookup failed, assuming full CV", "id", g.ID, "name", g.Name, "error", err)
		r.failed[key] = true
		return models.FullCV, nil
	}

	if err := r.cache.Set(ctx, key, game); err != nil {
		slog.Warn("Bundle cache write failed", "key", key, "error", err)
	}
	return CalculateStatus(g, game), nil
}

func (r *Resolver) lookup(ctx context.Context, g models.Giveaway) (*models.BundleGame, error) {
	if err := r.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	query := g.Name
	if g.AppID != nil {
		query = strconv.Itoa(*g.AppID)
	}
	resp, err := r.searcher.FetchBundleGames(ctx, query)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, nil
	}

	for i := range resp.Results {
		candidate := resp.Results[i]
		if g.AppID != nil {
			if candidate.AppID == *g.AppID {
				return &candidate, nil
			}
			continue
		}
		if strings.EqualFold(candidate.Name, g.Name) {
			return &candidate, nil
		}
	}
	return nil, nil
}

// Enrich sets the CV status of every giveaway that has none.
func (r *Resolver) Enrich(ctx context.Context, giveaways []models.Giveaway) error {
	counts := make(map[models.CVStatus]int)
	resolved := 0
	for i := range giveaways {
		if giveaways[i].CVStatus != "" {
			continue
		}
		status, err := r.Status(ctx, giveaways[i])
		if err != nil {
			return err
		}
		giveaways[i].CVStatus = status
		counts[status]++
		resolved++
	}

	slog.Info("Resolved CV status",
		"resolved", resolved,
		"full", counts[models.FullCV],
		"reduced", counts[models.ReducedCV],
		"none", counts[models.NoCV])
	return nil
}
