package scraper

import (
	"encoding/json"
	"fmt"
	"os"
)

type SelectorConfig struct {
	GiveawayPage GiveawayPageSelectors `json:"giveaway_page"`
}

// GiveawayPageSelectors locate the error table shown in place of a removed giveaway.
type GiveawayPageSelectors struct {
	Breadcrumbs string `json:"breadcrumbs"` // e.g., ".page__heading__breadcrumbs"
	ErrorRow    string `json:"error_row"`
	RowLabel    string `json:"row_label"`
	RowValue    string `json:"row_value"`
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}

	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	if config.GiveawayPage.ErrorRow == "" || config.GiveawayPage.RowLabel == "" {
		return SelectorConfig{}, fmt.Errorf("selector config is missing giveaway_page rows")
	}

	return config, nil
}

// DefaultSelectors returns the fallback configuration if no JSON file is loaded.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		GiveawayPage: GiveawayPageSelectors{
			Breadcrumbs: ".page__heading__breadcrumbs",
			ErrorRow:    ".table__row-outer-wrap",
			RowLabel:    ".table__column--width-small strong",
			RowValue:    ".table__column--width-fill",
		},
	}
}
