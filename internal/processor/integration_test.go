//go:build integration

package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/giveawaysclub/sgtracker/internal/config"
	"github.com/giveawaysclub/sgtracker/internal/models"
	"github.com/giveawaysclub/sgtracker/internal/scraper"
	"github.com/giveawaysclub/sgtracker/internal/storage"
)

// Wires the real scraper and file store against a fake upstream to run the
// whole fetch, merge and save pipeline.
func TestIntegration_FetchMergeSave(t *testing.T) {
	now := time.Unix(1_750_000_000, 0)
	cutoff := Cutoff(now)

	pages := map[string]string{
		"1": fmt.Sprintf(`{"success": true, "page": 1, "per_page": 2, "group": {"id": 1, "gid": "WlYTQ", "name": "Club"},
			"results": [
				{"id": 30, "name": "Hades", "link": "https://www.steamgifts.com/giveaway/AbCdE/hades",
				 "created_timestamp": %d, "end_timestamp": %d, "entry_count": 12,
				 "creator": {"id": 5, "steam_id": "7656", "username": "alice"}},
				{"id": 20, "name": "Portal 2", "link": "FgHiJ/portal-2",
				 "created_timestamp": %d, "end_timestamp": %d, "entry_count": 40,
				 "creator": {"id": 6, "steam_id": "7657", "username": "bob"}}
			]}`, cutoff+500, cutoff+9000, cutoff+400, cutoff+8000),
		"2": fmt.Sprintf(`{"success": true, "page": 2, "per_page": 2, "group": {"id": 1, "gid": "WlYTQ", "name": "Club"},
			"results": [
				{"id": 10, "name": "Celeste", "created_timestamp": %d, "end_timestamp": %d,
				 "creator": {"id": 7, "steam_id": "7658", "username": "carol"}}
			]}`, cutoff-9000, cutoff-1),
	}

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("Cookie") != "PHPSESSID=integration" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			fmt.Fprint(w, `{"success": true, "results": []}`)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	cfg := &config.Config{
		SessionID:       "integration",
		UserAgent:       "integration-test",
		BaseURL:         srv.URL,
		GroupSearchURL:  srv.URL + "/group/WlYTQ/thegiveawaysclub/search",
		DataFile:        filepath.Join(t.TempDir(), "all_giveaways.json"),
		HTTPTimeout:     5 * time.Second,
		VerifyPageOrder: true,
		AllowedDomains:  []string{u.Hostname()},
	}

	// Prior state in the legacy wrapped shape, with a stale entry count for id 20.
	legacy := `{"last_updated": "2025-01-01", "giveaways": [
		{"id": 20, "name": "Portal 2", "created_timestamp": 1, "end_timestamp": 2, "entry_count": 3, "creator": "bob"},
		{"id": 5, "name": "Braid", "created_timestamp": 0, "end_timestamp": 1, "creator": "dave"}
	]}`
	if err := os.WriteFile(cfg.DataFile, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(storage.NewFileStore(), scraper.New(cfg), rate.NewLimiter(rate.Inf, 1), cfg,
		WithClock(func() time.Time { return now }))

	res, err := p.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.New != 1 || res.Updated != 1 || res.Total != 3 || res.StopReason != StopCutoff {
		t.Errorf("Result = New %d, Updated %d, Total %d, Stop %v", res.New, res.Updated, res.Total, res.StopReason)
	}
	if requests != 2 {
		t.Errorf("Upstream requests = %d, want 2", requests)
	}

	data, err := os.ReadFile(cfg.DataFile)
	if err != nil {
		t.Fatal(err)
	}
	var saved []models.Giveaway
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("Saved file is not a bare array: %v", err)
	}
	wantIDs := []int{30, 20, 5}
	for i, g := range saved {
		if g.ID != wantIDs[i] {
			t.Errorf("saved[%d].ID = %d, want %d", i, g.ID, wantIDs[i])
		}
	}
	if saved[0].Link != "AbCdE/hades" {
		t.Errorf("Link = %q, want trimmed link", saved[0].Link)
	}
	if saved[1].EntryCount != 40 {
		t.Errorf("EntryCount = %d, want refreshed value 40", saved[1].EntryCount)
	}
	if saved[2].Creator.Username != "dave" {
		t.Errorf("Creator = %+v, want migrated username dave", saved[2].Creator)
	}
}
