package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultBaseURL   = "https://www.steamgifts.com"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	defaultDataFile  = "all_giveaways.json"
)

type Config struct {
	SessionID       string
	UserAgent       string
	BaseURL         string
	GroupSearchURL  string
	BundleSearchURL string
	DataFile        string

	RequestInterval      time.Duration
	BundleLookupInterval time.Duration
	HTTPTimeout          time.Duration

	FetchAllPages            bool
	VerifyPageOrder          bool
	EnrichCVStatus           bool
	DeletionCheckConcurrency int

	DiscordWebhookURL string
	ProjectID         string
	RedisURL          string
	Port              string

	AllowedDomains []string
}

// LoadDotEnv loads a .env file from the working directory if one exists.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func Load() (*Config, error) {
	sessionID := os.Getenv("SG_SESSION_ID")
	if sessionID == "" {
		slog.Warn("SG_SESSION_ID not set, requests will be sent without a session cookie")
	}

	userAgent := getEnv("SG_USER_AGENT", defaultUserAgent)

	baseURL := getEnv("SG_BASE_URL", defaultBaseURL)
	parsedBase, err := url.Parse(baseURL)
	if err != nil || parsedBase.Host == "" {
		return nil, fmt.Errorf("invalid SG_BASE_URL %q", baseURL)
	}

	groupSearchURL := getEnv("SG_GROUP_SEARCH_URL", baseURL+"/group/WlYTQ/thegiveawaysclub/search")
	bundleSearchURL := getEnv("SG_BUNDLE_SEARCH_URL", baseURL+"/bundle-games/search")
	dataFile := getEnv("GIVEAWAYS_FILE", defaultDataFile)

	requestInterval, err := getDuration("REQUEST_INTERVAL", 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	bundleLookupInterval, err := getDuration("BUNDLE_LOOKUP_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	httpTimeout, err := getDuration("HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	fetchAll, err := getBool("FETCH_ALL_PAGES", false)
	if err != nil {
		return nil, err
	}
	verifyOrder, err := getBool("VERIFY_PAGE_ORDER", true)
	if err != nil {
		return nil, err
	}
	enrichCV, err := getBool("ENRICH_CV_STATUS", true)
	if err != nil {
		return nil, err
	}

	concurrency := 2
	if v := os.Getenv("DELETION_CHECK_CONCURRENCY"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("invalid DELETION_CHECK_CONCURRENCY %q: must be a positive integer", v)
		}
		concurrency = parsed
	}

	discordWebhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if discordWebhookURL == "" {
		slog.Debug("DISCORD_WEBHOOK_URL not set, new giveaway announcements will be skipped")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return &Config{
		SessionID:                sessionID,
		UserAgent:                userAgent,
		BaseURL:                  baseURL,
		GroupSearchURL:           groupSearchURL,
		BundleSearchURL:          bundleSearchURL,
		DataFile:                 dataFile,
		RequestInterval:          requestInterval,
		BundleLookupInterval:     bundleLookupInterval,
		HTTPTimeout:              httpTimeout,
		FetchAllPages:            fetchAll,
		VerifyPageOrder:          verifyOrder,
		EnrichCVStatus:           enrichCV,
		DeletionCheckConcurrency: concurrency,
		DiscordWebhookURL:        discordWebhookURL,
		ProjectID:                os.Getenv("GOOGLE_CLOUD_PROJECT"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		Port:                     port,
		AllowedDomains:           []string{parsedBase.Hostname()},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, v)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
