package util

import (
	"net/url"
	"strings"
)

var giveawayPrefixes = []string{
	"https://www.steamgifts.com/giveaway/",
	"http://www.steamgifts.com/giveaway/",
	"https://steamgifts.com/giveaway/",
}

// TrimGiveawayLink reduces an absolute giveaway URL to its "code/slug" part.
// Links that are already relative are returned unchanged.
func TrimGiveawayLink(link string) string {
	for _, prefix := range giveawayPrefixes {
		if strings.HasPrefix(link, prefix) {
			return strings.TrimPrefix(link, prefix)
		}
	}
	return strings.TrimPrefix(link, "/giveaway/")
}

// GiveawayURL rebuilds the absolute page URL of a giveaway from a stored link.
func GiveawayURL(baseURL, link string) (string, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return "", err
	}
	return base.JoinPath("giveaway", TrimGiveawayLink(link)).String(), nil
}

// HostAllowed reports whether rawURL is http(s) and its host is one of domains.
func HostAllowed(rawURL string, domains []string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	hostname := parsed.Hostname()
	for _, d := range domains {
		if hostname == d {
			return true
		}
	}
	return false
}
