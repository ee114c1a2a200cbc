package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/giveawaysclub/sgtracker/internal/models"
	"github.com/giveawaysclub/sgtracker/internal/util"
)

const (
	colorFullCV    = 5763719  // #57F287
	colorReducedCV = 16705372 // #FEE75C
	colorNoCV      = 15548997 // #ED4245
	colorUnknownCV = 3092790  // #2F3136

	maxRetries  = 3
	backoffBase = 500 * time.Millisecond
)

type Client struct {
	webhookURL  string
	baseURL     string
	client      *http.Client
	rateLimiter *rate.Limiter
}

// New returns a webhook client. baseURL is the site root used to link giveaways.
func New(webhookURL, baseURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Discord allows roughly 5 webhook requests per 2 seconds.
		rateLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

// Announce posts a new giveaway and discards the message ID.
func (c *Client) Announce(ctx context.Context, g models.Giveaway) error {
	_, err := c.Send(ctx, g)
	return err
}

// Send posts a giveaway embed and returns the Discord message ID.
func (c *Client) Send(ctx context.Context, g models.Giveaway) (string, error) {
	if c.webhookURL == "" {
		return "", nil
	}
	embed := c.formatGiveawayToEmbed(g)
	return c.sendAndGetMessageID(ctx, embed)
}

// Internal structures
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedThumbnail struct {
	URL string `json:"url,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string                `json:"title,omitempty"`
	Description string                `json:"description,omitempty"`
	URL         string                `json:"url,omitempty"`
	Timestamp   string                `json:"timestamp,omitempty"`
	Color       int                   `json:"color,omitempty"`
	Thumbnail   discordEmbedThumbnail `json:"thumbnail,omitempty"`
	Fields      []discordEmbedField   `json:"fields,omitempty"`
	Footer      discordEmbedFooter    `json:"footer,omitempty"`
}

type discordMessageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

func (c *Client) formatGiveawayToEmbed(g models.Giveaway) discordEmbed {
	title := g.Name
	if g.Copies > 1 {
		title = fmt.Sprintf("%s (%d copies)", g.Name, g.Copies)
	}

	var link string
	if g.Link != "" {
		if u, err := util.GiveawayURL(c.baseURL, g.Link); err == nil {
			link = u
		}
	}

	var thumbnail discordEmbedThumbnail
	if g.AppID != nil {
		thumbnail.URL = fmt.Sprintf("https://cdn.akamai.steamstatic.com/steam/apps/%d/header.jpg", *g.AppID)
	}

	var isoTimestamp string
	if g.CreatedTimestamp > 0 {
		isoTimestamp = time.Unix(g.CreatedTimestamp, 0).UTC().Format(time.RFC3339)
	}

	fields := []discordEmbedField{
		{Name: "Points", Value: strconv.Itoa(g.Points), Inline: true},
		{Name: "Ends", Value: fmt.Sprintf("<t:%d:R>", g.EndTimestamp), Inline: true},
	}
	if g.Creator.Username != "" {
		fields = append(fields, discordEmbedField{Name: "Created By", Value: g.Creator.Username, Inline: true})
	}
	if g.CVStatus != "" {
		fields = append(fields, discordEmbedField{Name: "CV", Value: cvLabel(g.CVStatus), Inline: true})
	}

	return discordEmbed{
		Title:     title,
		URL:       link,
		Timestamp: isoTimestamp,
		Color:     cvColor(g.CVStatus),
		Thumbnail: thumbnail,
		Fields:    fields,
		Footer:    discordEmbedFooter{Text: restrictionFooter(g)},
	}
}

func cvLabel(status models.CVStatus) string {
	switch status {
	case models.FullCV:
		return "Full"
	case models.ReducedCV:
		return "Reduced"
	case models.NoCV:
		return "None"
	default:
		return string(status)
	}
}

func cvColor(status models.CVStatus) int {
	switch status {
	case models.FullCV:
		return colorFullCV
	case models.ReducedCV:
		return colorReducedCV
	case models.NoCV:
		return colorNoCV
	default:
		return colorUnknownCV
	}
}

func restrictionFooter(g models.Giveaway) string {
	var parts []string
	if g.RegionRestricted {
		parts = append(parts, "Region restricted")
	}
	if g.InviteOnly {
		parts = append(parts, "Invite only")
	}
	if g.Whitelist {
		parts = append(parts, "Whitelist")
	}
	if g.ContributorLevel > 0 {
		parts = append(parts, fmt.Sprintf("Level %d+", g.ContributorLevel))
	}
	return strings.Join(parts, " · ")
}

// retryBackoff returns how long to wait before retrying resp, or zero when the
// status is not worth retrying.
func retryBackoff(resp *http.Response, attempt int) time.Duration {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
		return util.ExponentialBackoff(backoffBase, attempt)
	case resp.StatusCode >= 500:
		return util.ExponentialBackoff(backoffBase, attempt)
	default:
		return 0
	}
}

func (c *Client) sendAndGetMessageID(ctx context.Context, embed discordEmbed) (string, error) {
	payload := discordWebhookPayload{Embeds: []discordEmbed{embed}}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	parsedURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return "", err
	}
	q := parsedURL.Query()
	q.Set("wait", "true")
	parsedURL.RawQuery = q.Encode()
	target := parsedURL.String()

	var messageID string
	err = util.RetryWithBackoff(ctx, maxRetries, func(attempt int) (time.Duration, error) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return 0, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payloadBytes))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return util.ExponentialBackoff(backoffBase, attempt), err
		}
		defer resp.Body.Close()

		bodyBytes, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var msgResponse discordMessageResponse
			if err := json.Unmarshal(bodyBytes, &msgResponse); err != nil {
				return 0, err
			}
			messageID = msgResponse.ID
			return 0, nil
		}

		wait := retryBackoff(resp, attempt)
		if wait > 0 {
			slog.Warn("Discord request failed, retrying", "status", resp.StatusCode, "attempt", attempt+1, "wait", wait)
		}
		return wait, fmt.Errorf("discord status: %s, body: %s", resp.Status, string(bodyBytes))
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}
