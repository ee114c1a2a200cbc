package scraper

import (
	"embed"
	"log/slog"
	"os"
)

//go:embed selectors.json
var embeddedSelectors embed.FS

const selectorsPathEnv = "SELECTORS_CONFIG_PATH"

// LoadConfig returns the giveaway page selectors. An external file named by
// SELECTORS_CONFIG_PATH wins over the embedded copy; built-in defaults are the
// last resort, so the returned config is always usable.
func LoadConfig() SelectorConfig {
	if path := os.Getenv(selectorsPathEnv); path != "" {
		sel, err := LoadSelectors(path)
		if err == nil {
			slog.Info("Loaded selectors from external file", "path", path)
			return sel
		}
		slog.Warn("Failed to load external selectors, trying embedded config", "path", path, "error", err)
	}

	data, err := embeddedSelectors.ReadFile("selectors.json")
	if err == nil {
		sel, parseErr := LoadSelectorsFromBytes(data)
		if parseErr == nil {
			return sel
		}
		err = parseErr
	}
	slog.Warn("Embedded selectors unusable, using hardcoded defaults", "error", err)
	return DefaultSelectors()
}
