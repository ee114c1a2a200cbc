package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DeletionInfo is what a giveaway page says about the giveaway's removal.
type DeletionInfo struct {
	Deleted bool
	Reason  string
}

// DetectDeletion inspects a giveaway page. Removed giveaways render an "Error"
// heading and a table whose "Error" row mentions "Deleted"; an optional
// "Reason" row explains why.
func DetectDeletion(doc *goquery.Document, selectors SelectorConfig) DeletionInfo {
	sel := selectors.GiveawayPage
	var info DeletionInfo

	if strings.TrimSpace(doc.Find(sel.Breadcrumbs).First().Text()) != "Error" {
		return info
	}

	doc.Find(sel.ErrorRow).Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find(sel.RowLabel).First().Text())
		value := strings.TrimSpace(row.Find(sel.RowValue).First().Text())
		switch label {
		case "Error":
			if strings.Contains(value, "Deleted") {
				info.Deleted = true
			}
		case "Reason":
			info.Reason = value
		}
	})

	if !info.Deleted {
		info.Reason = ""
	}
	return info
}
