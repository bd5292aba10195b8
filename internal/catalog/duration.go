package catalog

import (
	"regexp"
	"strings"

	"github.com/hyperjump/skillrec/internal/models"
)

var (
	completionTimeRe = regexp.MustCompile(`(?im)Approximate Completion Time in minutes\s*=\s*(.+?)(?:\s+Test Type|$)`)
	minutesSuffixRe  = regexp.MustCompile(`(?i)\s*minutes\.?$`)
)

// ExtractDuration finds "Approximate Completion Time in minutes = <value>" in text and
// returns <value> without a trailing "minutes" token. The first occurrence wins.
func ExtractDuration(text string) (string, bool) {
	m := completionTimeRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(minutesSuffixRe.ReplaceAllString(strings.TrimSpace(m[1]), ""))
	if v == "" {
		return "", false
	}
	return v, true
}

func isMissingDuration(d string) bool {
	d = strings.TrimSpace(d)
	return d == "" || strings.EqualFold(d, models.NotAvailable)
}

// backfillDuration fills a missing duration from the description, or sets "N/A".
func backfillDuration(e *models.CatalogEntry) {
	if !isMissingDuration(e.Duration) {
		return
	}
	if d, ok := ExtractDuration(e.Description); ok {
		e.Duration = d
		return
	}
	e.Duration = models.NotAvailable
}
