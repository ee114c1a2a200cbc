package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/giveawaysclub/sgtracker/internal/config"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return New(&config.Config{
		SessionID:       "sess123",
		UserAgent:       "test-agent",
		BaseURL:         srv.URL,
		GroupSearchURL:  srv.URL + "/group/WlYTQ/thegiveawaysclub/search",
		BundleSearchURL: srv.URL + "/bundle-games/search",
		HTTPTimeout:     5 * time.Second,
		AllowedDomains:  []string{u.Hostname()},
	})
}

func TestFetchPage_SendsQueryAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/group/WlYTQ/thegiveawaysclub/search" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "3" {
			t.Errorf("page = %q, want 3", got)
		}
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q, want json", got)
		}
		if got := r.Header.Get("Cookie"); got != "PHPSESSID=sess123" {
			t.Errorf("Cookie = %q, want PHPSESSID=sess123", got)
		}
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("User-Agent = %q, want test-agent", got)
		}
		fmt.Fprint(w, `{"success": true, "page": 3, "per_page": 25,
			"group": {"id": 1, "gid": "WlYTQ", "name": "The Giveaways Club"},
			"results": [{"id": 42, "name": "Celeste", "created_timestamp": 100, "end_timestamp": 200,
				"creator": {"id": 7, "steam_id": "7656", "username": "alice"}}]}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv).FetchPage(context.Background(), 3)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if !resp.Success || resp.Page != 3 || resp.PerPage != 25 {
		t.Errorf("Unexpected envelope: %+v", resp)
	}
	if resp.Group.GID != "WlYTQ" {
		t.Errorf("Group.GID = %q, want WlYTQ", resp.Group.GID)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != 42 || resp.Results[0].Creator.Username != "alice" {
		t.Errorf("Unexpected results: %+v", resp.Results)
	}
}

func TestFetchPage_StatusError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"forbidden", http.StatusForbidden},
		{"server error", http.StatusInternalServerError},
		{"rate limited", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			resp, err := newTestClient(t, srv).FetchPage(context.Background(), 1)
			if resp != nil {
				t.Errorf("Expected no partial result, got %+v", resp)
			}
			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("FetchPage() error = %v, want *StatusError", err)
			}
			if statusErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, tt.status)
			}
			if calls != 1 {
				t.Errorf("Expected exactly 1 request (no retries), got %d", calls)
			}
		})
	}
}

func TestFetchPage_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>login required</html>`)
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv).FetchPage(context.Background(), 1); err == nil {
		t.Fatal("Expected decode error")
	}
}

func TestFetchBundleGames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bundle-games/search" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "Portal 2" {
			t.Errorf("q = %q, want Portal 2", got)
		}
		fmt.Fprint(w, `{"success": true, "page": 1, "per_page": 25, "results": [
			{"name": "Portal 2", "app_id": 620, "package_id": null,
			 "reduced_value_timestamp": 1500000000, "no_value_timestamp": null}]}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv).FetchBundleGames(context.Background(), "Portal 2")
	if err != nil {
		t.Fatalf("FetchBundleGames() error = %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(resp.Results))
	}
	game := resp.Results[0]
	if game.AppID != 620 || game.ReducedValueTimestamp == nil || *game.ReducedValueTimestamp != 1500000000 {
		t.Errorf("Unexpected game: %+v", game)
	}
	if game.NoValueTimestamp != nil {
		t.Errorf("NoValueTimestamp = %v, want nil", *game.NoValueTimestamp)
	}
}

func TestFetchDocument_NoCookieAndAllowlist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "" {
			t.Errorf("Expected no cookie on HTML fetch, got %q", r.Header.Get("Cookie"))
		}
		fmt.Fprint(w, `<html><body><div class="page__heading__breadcrumbs">Celeste</div></body></html>`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	doc, err := client.FetchDocument(context.Background(), srv.URL+"/giveaway/AbCdE/celeste")
	if err != nil {
		t.Fatalf("FetchDocument() error = %v", err)
	}
	if got := strings.TrimSpace(doc.Find(".page__heading__breadcrumbs").Text()); got != "Celeste" {
		t.Errorf("Heading = %q, want Celeste", got)
	}

	if _, err := client.FetchDocument(context.Background(), "https://evil.example.com/giveaway/x"); err == nil {
		t.Error("Expected allowlist violation for foreign host")
	}
}

const deletedPage = `<html><body>
<div class="page__heading__breadcrumbs">Error</div>
<div class="table__rows">
  <div class="table__row-outer-wrap">
    <div class="table__column--width-small"><strong>Error</strong></div>
    <div class="table__column--width-fill">Deleted by the creator</div>
  </div>
  <div class="table__row-outer-wrap">
    <div class="table__column--width-small"><strong>Reason</strong></div>
    <div class="table__column--width-fill">Game was gifted outside the site</div>
  </div>
</div>
</body></html>`

const otherErrorPage = `<html><body>
<div class="page__heading__breadcrumbs">Error</div>
<div class="table__row-outer-wrap">
  <div class="table__column--width-small"><strong>Error</strong></div>
  <div class="table__column--width-fill">You do not have permission to view this giveaway</div>
</div>
</body></html>`

const activePage = `<html><body>
<div class="page__heading__breadcrumbs">Celeste</div>
<div class="table__row-outer-wrap">
  <div class="table__column--width-small"><strong>Error</strong></div>
  <div class="table__column--width-fill">Deleted</div>
</div>
</body></html>`

func TestDetectDeletion(t *testing.T) {
	tests := []struct {
		name string
		html string
		want DeletionInfo
	}{
		{"deleted with reason", deletedPage, DeletionInfo{Deleted: true, Reason: "Game was gifted outside the site"}},
		{"other error", otherErrorPage, DeletionInfo{}},
		{"live giveaway", activePage, DeletionInfo{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			if err != nil {
				t.Fatal(err)
			}
			if got := DetectDeletion(doc, DefaultSelectors()); got != tt.want {
				t.Errorf("DetectDeletion() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadConfig_EmbeddedMatchesDefaults(t *testing.T) {
	t.Setenv(selectorsPathEnv, "")
	if got := LoadConfig(); got != DefaultSelectors() {
		t.Errorf("LoadConfig() = %+v, want defaults %+v", got, DefaultSelectors())
	}
}

func TestLoadConfig_ExternalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.json")
	content := `{"giveaway_page": {"breadcrumbs": ".crumbs", "error_row": ".row", "row_label": ".label", "row_value": ".value"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(selectorsPathEnv, path)

	got := LoadConfig()
	if got.GiveawayPage.Breadcrumbs != ".crumbs" || got.GiveawayPage.RowValue != ".value" {
		t.Errorf("LoadConfig() = %+v, want external selectors", got)
	}
}

func TestLoadConfig_BrokenExternalFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.json")
	if err := os.WriteFile(path, []byte(`{"giveaway_page": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(selectorsPathEnv, path)

	if got := LoadConfig(); got != DefaultSelectors() {
		t.Errorf("LoadConfig() = %+v, want defaults", got)
	}
}
