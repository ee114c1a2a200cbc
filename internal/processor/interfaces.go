package processor

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/giveawaysclub/sgtracker/internal/models"
	"github.com/giveawaysclub/sgtracker/internal/storage"
)

// PageFetcher retrieves one page of the group search endpoint.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (*models.SearchResponse, error)
}

// DocumentFetcher retrieves and parses an HTML page.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Pacer spaces out upstream requests. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Store abstracts the local giveaways file.
type Store interface {
	Load(path string) (*storage.Snapshot, error)
	Save(path string, giveaways []models.Giveaway) error
}

// Enricher fills in the CV status of giveaways that have none, in place.
type Enricher interface {
	Enrich(ctx context.Context, giveaways []models.Giveaway) error
}

// Notifier announces newly discovered giveaways.
type Notifier interface {
	Announce(ctx context.Context, g models.Giveaway) error
}

// Mirror copies the saved collection to a secondary store.
type Mirror interface {
	Sync(ctx context.Context, giveaways []models.Giveaway) (storage.SyncResult, error)
}
