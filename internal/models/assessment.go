// Package models defines core data structures for catalog entries, queries, and recommendations.
package models

import (
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/skillrec/pkg/utils"
)

// NotAvailable marks an unknown catalog value.
const NotAvailable = "N/A"

// CatalogEntry is one assessment row from the product catalog.
type CatalogEntry struct {
	ID              string `json:"id" db:"id"`
	Name            string `json:"name" db:"name"`
	Description     string `json:"description" db:"description"`
	TestType        string `json:"test_type" db:"test_type"`
	URL             string `json:"url" db:"url"`
	Duration        string `json:"duration" db:"duration"`
	RemoteSupport   string `json:"remote_support" db:"remote_support"`
	AdaptiveSupport string `json:"adaptive_support" db:"adaptive_support"`
	CombinedText    string `json:"combined_text" db:"combined_text"`
}

// EntryID returns a stable identifier for a catalog entry, derived from its url or,
// when the url is empty, from its name.
func EntryID(url, name string) string {
	key := strings.TrimSpace(url)
	if key == "" {
		key = "name:" + strings.TrimSpace(name)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// Finalize derives ID and CombinedText from the authored fields.
func (e *CatalogEntry) Finalize() {
	e.ID = EntryID(e.URL, e.Name)
	e.CombinedText = utils.CleanText(e.Name + " " + e.Description + " " + e.TestType)
}

// TestTypes returns the comma-separated test type codes as a list.
func (e *CatalogEntry) TestTypes() []string {
	return utils.SplitList(e.TestType)
}

// Assessment is the API projection of a catalog entry.
type Assessment struct {
	URL             string   `json:"url"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	TestType        []string `json:"test_type"`
	Duration        string   `json:"duration"`
	RemoteSupport   string   `json:"remote_support"`
	AdaptiveSupport string   `json:"adaptive_support"`
}

// ToAssessment projects e for API responses and audit records.
func (e *CatalogEntry) ToAssessment() Assessment {
	return Assessment{
		URL:             e.URL,
		Name:            e.Name,
		Description:     e.Description,
		TestType:        e.TestTypes(),
		Duration:        e.Duration,
		RemoteSupport:   e.RemoteSupport,
		AdaptiveSupport: e.AdaptiveSupport,
	}
}
