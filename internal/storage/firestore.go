package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/giveawaysclub/sgtracker/internal/models"
)

const firestoreCollection = "giveaways"

// Mirror copies the local collection into Firestore so other services can
// query it. The JSON file stays the source of truth.
type Mirror struct {
	client *firestore.Client
}

func NewMirror(ctx context.Context, projectID string) (*Mirror, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Mirror{client: client}, nil
}

func (m *Mirror) Close() error {
	return m.client.Close()
}

// SyncResult counts the documents written by Sync.
type SyncResult struct {
	Created int
	Updated int
}

func docID(id int) string {
	return strconv.Itoa(id)
}

// Sync upserts every giveaway into the mirror collection, keyed by upstream id.
// Documents for ids missing from giveaways are left in place.
func (m *Mirror) Sync(ctx context.Context, giveaways []models.Giveaway) (SyncResult, error) {
	var result SyncResult
	if len(giveaways) == 0 {
		return result, nil
	}

	existing, err := m.existingIDs(ctx)
	if err != nil {
		return result, err
	}

	collectionRef := m.client.Collection(firestoreCollection)
	bulkWriter := m.client.BulkWriter(ctx)

	jobs := make([]*firestore.BulkWriterJob, 0, len(giveaways))
	for _, g := range giveaways {
		id := docID(g.ID)
		job, err := bulkWriter.Set(collectionRef.Doc(id), g)
		if err != nil {
			slog.Warn("Failed to queue mirror write", "id", id, "error", err)
			continue
		}
		jobs = append(jobs, job)
		if existing[id] {
			result.Updated++
		} else {
			result.Created++
		}
	}
	bulkWriter.End()

	failed := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return result, fmt.Errorf("failed to mirror %d of %d giveaways", failed, len(jobs))
	}

	slog.Info("Mirrored giveaways to Firestore", "created", result.Created, "updated", result.Updated)
	return result, nil
}

func (m *Mirror) existingIDs(ctx context.Context) (map[string]bool, error) {
	iter := m.client.Collection(firestoreCollection).Select().Documents(ctx)
	defer iter.Stop()

	ids := make(map[string]bool)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list mirrored giveaways: %w", err)
		}
		ids[doc.Ref.ID] = true
	}
	return ids, nil
}

// GetGiveaway returns the mirrored record for id, or nil when it does not exist.
func (m *Mirror) GetGiveaway(ctx context.Context, id int) (*models.Giveaway, error) {
	doc, err := m.client.Collection(firestoreCollection).Doc(docID(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get giveaway %d: %w", id, err)
	}
	if !doc.Exists() {
		return nil, nil
	}

	var g models.Giveaway
	if err := doc.DataTo(&g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal giveaway data: %w", err)
	}
	return &g, nil
}

// Count returns the number of mirrored giveaways.
func (m *Mirror) Count(ctx context.Context) (int64, error) {
	snapshot, err := m.client.Collection(firestoreCollection).NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count mirrored giveaways: %w", err)
	}
	value, ok := snapshot["all"]
	if !ok {
		return 0, fmt.Errorf("count aggregation result was invalid: 'all' key missing")
	}
	return aggregateCount(value)
}

func aggregateCount(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case *firestorepb.Value:
		return v.GetIntegerValue(), nil
	default:
		return 0, fmt.Errorf("count aggregation result has unexpected type %T", value)
	}
}
