package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/giveawaysclub/sgtracker/internal/config"
	"github.com/giveawaysclub/sgtracker/internal/models"
	"github.com/giveawaysclub/sgtracker/internal/util"
)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed: status code %d", e.URL, e.StatusCode)
}

type Client struct {
	httpClient *http.Client
	config     *config.Config
}

func New(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		config: cfg,
	}
}

// FetchPage retrieves one page of the group search endpoint.
func (c *Client) FetchPage(ctx context.Context, page int) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("format", "json")

	var resp models.SearchResponse
	if err := c.getJSON(ctx, c.config.GroupSearchURL, params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
	}
	return &resp, nil
}

// FetchBundleGames searches the bundle-games list for query, an app id or a game name.
func (c *Client) FetchBundleGames(ctx context.Context, query string) (*models.BundleGamesResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	var resp models.BundleGamesResponse
	if err := c.getJSON(ctx, c.config.BundleSearchURL, params, &resp); err != nil {
		return nil, fmt.Errorf("failed to search bundle games for %q: %w", query, err)
	}
	return &resp, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse URL %s: %w", endpoint, err)
	}
	u.RawQuery = params.Encode()
	urlStr := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for URL %s: %w", urlStr, err)
	}
	req.Header.Set("Cookie", "PHPSESSID="+c.config.SessionID)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch URL %s: %w", urlStr, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		return &StatusError{StatusCode: res.StatusCode, URL: urlStr}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", urlStr, err)
	}
	return nil
}

// FetchDocument downloads an HTML page on an allow-listed host. The session
// cookie is not sent.
func (c *Client) FetchDocument(ctx context.Context, urlStr string) (*goquery.Document, error) {
	if !util.HostAllowed(urlStr, c.config.AllowedDomains) {
		return nil, fmt.Errorf("security violation: URL %s is not in allowlist", urlStr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for URL %s: %w", urlStr, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %s: %w", urlStr, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		slog.Debug("Unexpected status for HTML page", "url", urlStr, "status", res.StatusCode)
		return nil, &StatusError{StatusCode: res.StatusCode, URL: urlStr}
	}

	return goquery.NewDocumentFromReader(res.Body)
}
