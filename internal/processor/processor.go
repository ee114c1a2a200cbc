package processor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/giveawaysclub/sgtracker/internal/config"
	"github.com/giveawaysclub/sgtracker/internal/models"
	"github.com/giveawaysclub/sgtracker/internal/storage"
	"github.com/giveawaysclub/sgtracker/internal/util"
)

// CutoffWindow is how far back an incremental run refreshes giveaways.
const CutoffWindow = 14 * 24 * time.Hour

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("a fetch run is already in progress")

// OrderError reports a page that broke the newest-first ordering the
// incremental stop condition relies on.
type OrderError struct {
	Page int
	ID   int
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("upstream ordering violated on page %d: giveaway %d is newer than the record before it", e.Page, e.ID)
}

// StopReason says why the page loop ended.
type StopReason string

const (
	StopEmptyPage       StopReason = "empty_page"
	StopCutoff          StopReason = "cutoff"
	StopUpstreamFailure StopReason = "upstream_failure"
	StopDuplicatePage   StopReason = "duplicate_page"
)

// Result summarises one fetch run.
type Result struct {
	Giveaways  []models.Giveaway
	Loaded     int
	Total      int
	New        int
	Updated    int
	Pages      int
	StopReason StopReason
	FailedPage int
	Added      []models.Giveaway
}

// RunOptions override configuration for a single run.
type RunOptions struct {
	Path     string
	FetchAll bool
	SkipCV   bool
}

type Processor struct {
	store    Store
	fetcher  PageFetcher
	pacer    Pacer
	config   *config.Config
	enricher Enricher
	notifier Notifier
	mirror   Mirror
	now      func() time.Time

	mu sync.Mutex
}

type Option func(*Processor)

func WithEnricher(e Enricher) Option { return func(p *Processor) { p.enricher = e } }
func WithNotifier(n Notifier) Option { return func(p *Processor) { p.notifier = n } }
func WithMirror(m Mirror) Option     { return func(p *Processor) { p.mirror = m } }

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return func(p *Processor) { p.now = now } }

func New(store Store, fetcher PageFetcher, pacer Pacer, cfg *config.Config, opts ...Option) *Processor {
	p := &Processor{
		store:   store,
		fetcher: fetcher,
		pacer:   pacer,
		config:  cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cutoff returns the epoch second before which an ended giveaway stops the
// incremental page loop.
func Cutoff(now time.Time) int64 {
	return now.Unix() - int64(CutoffWindow/time.Second)
}

// Run loads the collection, merges freshly fetched pages into it and saves the
// result. A transport error aborts the run and leaves the file untouched.
func (p *Processor) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	path := opts.Path
	if path == "" {
		path = p.config.DataFile
	}
	fetchAll := opts.FetchAll || p.config.FetchAllPages

	collection, err := p.loadCollection(path)
	if err != nil {
		return nil, err
	}
	loaded := len(collection)

	res, err := p.ingest(ctx, collection, fetchAll)
	if err != nil {
		return nil, err
	}
	res.Loaded = loaded

	res.Giveaways = sortedGiveaways(collection)
	res.Total = len(res.Giveaways)

	if p.enricher != nil && p.config.EnrichCVStatus && !opts.SkipCV {
		if err := p.enricher.Enrich(ctx, res.Giveaways); err != nil {
			return nil, fmt.Errorf("failed to resolve CV status: %w", err)
		}
	}

	if err := p.store.Save(path, res.Giveaways); err != nil {
		return nil, fmt.Errorf("failed to save giveaways: %w", err)
	}
	slog.Info("Saved giveaways", "path", path, "total", res.Total)

	res.Added = collectAdded(res.Giveaways, res.addedIDs)
	p.publish(ctx, res)

	return &res.Result, nil
}

func (p *Processor) loadCollection(path string) (map[int]models.Giveaway, error) {
	collection := make(map[int]models.Giveaway)

	snap, err := p.store.Load(path)
	if err != nil {
		var schemaErr *storage.SchemaError
		if errors.As(err, &schemaErr) {
			slog.Warn("Existing giveaways file is unusable, starting from an empty collection", "path", path, "error", err)
			return collection, nil
		}
		return nil, fmt.Errorf("failed to load giveaways: %w", err)
	}

	if !snap.Found {
		slog.Info("No existing giveaways file, starting fresh", "path", path)
		return collection, nil
	}
	if snap.Migrated > 0 {
		slog.Info("Migrated legacy records", "count", snap.Migrated, "schema", snap.Version)
	}
	for _, g := range snap.Giveaways {
		collection[g.ID] = g
	}
	slog.Info("Loaded existing giveaways", "count", len(collection), "path", path)
	return collection, nil
}

type ingestResult struct {
	Result
	addedIDs map[int]bool
}

// ingest drives the page loop and merges each page into collection.
func (p *Processor) ingest(ctx context.Context, collection map[int]models.Giveaway, fetchAll bool) (*ingestResult, error) {
	res := &ingestResult{addedIDs: make(map[int]bool)}
	cutoff := Cutoff(p.now())
	verifyOrder := !fetchAll && p.config.VerifyPageOrder
	seenPages := make(map[string]int)

	var prevCreated int64
	havePrev := false

	if fetchAll {
		slog.Info("Fetching all pages")
	} else {
		slog.Info("Fetching giveaways", "cutoff", time.Unix(cutoff, 0).UTC().Format(time.RFC3339))
	}

	for page := 1; ; page++ {
		if err := p.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := p.fetcher.FetchPage(ctx, page)
		if err != nil {
			return nil, err
		}

		if !resp.Success {
			slog.Warn("Upstream reported failure, stopping", "page", page)
			res.StopReason = StopUpstreamFailure
			res.FailedPage = page
			return res, nil
		}
		if len(resp.Results) == 0 {
			slog.Info("No more giveaways", "page", page)
			res.StopReason = StopEmptyPage
			return res, nil
		}
		if fetchAll {
			sig := pageSignature(resp.Results)
			if first, ok := seenPages[sig]; ok {
				slog.Info("Page repeats an earlier page, stopping", "page", page, "first_seen", first)
				res.StopReason = StopDuplicatePage
				return res, nil
			}
			seenPages[sig] = page
		}

		res.Pages++
		slog.Info("Fetched page", "page", page, "count", len(resp.Results))

		for _, g := range resp.Results {
			if verifyOrder {
				if havePrev && g.CreatedTimestamp > prevCreated {
					return nil, &OrderError{Page: page, ID: g.ID}
				}
				prevCreated = g.CreatedTimestamp
				havePrev = true
			}

			if !fetchAll && g.EndTimestamp < cutoff {
				slog.Info("Reached giveaways older than the cutoff, stopping", "page", page, "id", g.ID)
				res.StopReason = StopCutoff
				return res, nil
			}

			if g.ID <= 0 {
				slog.Warn("Skipping giveaway without a valid id", "page", page, "name", g.Name)
				continue
			}

			if merge(collection, g) {
				res.New++
				res.addedIDs[g.ID] = true
				slog.Info("New giveaway", "id", g.ID, "name", g.Name)
			} else {
				res.Updated++
				slog.Debug("Updated giveaway", "id", g.ID, "name", g.Name)
			}
		}
	}
}

// merge inserts or replaces g and reports whether its id was absent before.
// Fields the search endpoint never returns survive the replacement.
func merge(collection map[int]models.Giveaway, g models.Giveaway) bool {
	g.Link = util.TrimGiveawayLink(g.Link)
	existing, ok := collection[g.ID]
	if ok {
		if g.CVStatus == "" {
			g.CVStatus = existing.CVStatus
		}
		if !g.Deleted {
			g.Deleted = existing.Deleted
			g.DeletedReason = existing.DeletedReason
		}
	}
	collection[g.ID] = g
	return !ok
}

func pageSignature(results []models.Giveaway) string {
	ids := make([]string, len(results))
	for i, g := range results {
		ids[i] = strconv.Itoa(g.ID)
	}
	return strings.Join(ids, ",")
}

func sortedGiveaways(collection map[int]models.Giveaway) []models.Giveaway {
	out := make([]models.Giveaway, 0, len(collection))
	for _, g := range collection {
		out = append(out, g)
	}
	SortGiveaways(out)
	return out
}

// SortGiveaways orders giveaways newest first. Equal creation times are
// ordered by id, highest first, so output is deterministic.
func SortGiveaways(giveaways []models.Giveaway) {
	slices.SortFunc(giveaways, func(a, b models.Giveaway) int {
		if c := cmp.Compare(b.CreatedTimestamp, a.CreatedTimestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func collectAdded(giveaways []models.Giveaway, ids map[int]bool) []models.Giveaway {
	var added []models.Giveaway
	for _, g := range giveaways {
		if ids[g.ID] {
			added = append(added, g)
		}
	}
	return added
}

// publish pushes a saved run to the optional mirror and notifier. Failures
// only log: the file on disk is already up to date.
func (p *Processor) publish(ctx context.Context, res *ingestResult) {
	if p.mirror != nil {
		if _, err := p.mirror.Sync(ctx, res.Giveaways); err != nil {
			slog.Warn("Failed to mirror giveaways", "error", err)
		}
	}
	if p.notifier == nil {
		return
	}
	for _, g := range res.Added {
		if err := p.notifier.Announce(ctx, g); err != nil {
			slog.Warn("Failed to announce giveaway", "id", g.ID, "error", err)
		}
	}
}
