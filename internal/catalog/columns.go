// Package catalog loads assessment catalogs from CSV, JSON, and spreadsheet files
// into canonical catalog entries.
package catalog

import "strings"

// Canonical column names.
const (
	ColName            = "name"
	ColDescription     = "description"
	ColURL             = "url"
	ColTestType        = "test_type"
	ColDuration        = "duration"
	ColRemoteSupport   = "remote_support"
	ColAdaptiveSupport = "adaptive_support"
)

// CanonicalColumns lists the canonical schema in output order.
var CanonicalColumns = []string{
	ColName, ColURL, ColDescription, ColTestType, ColDuration, ColRemoteSupport, ColAdaptiveSupport,
}

// columnSynonyms maps header spellings seen in exported catalogs to canonical names.
var columnSynonyms = map[string]string{
	"Solution Name":        ColName,
	"Product Name":         ColName,
	"Assessment Name":      ColName,
	"Title":                ColName,
	"title":                ColName,
	"Solution Description": ColDescription,
	"Product Description":  ColDescription,
	"Description":          ColDescription,
	"Details":              ColDescription,
	"content":              ColDescription,
	"Link":                 ColURL,
	"URL":                  ColURL,
	"Product Link":         ColURL,
	"Test Type":            ColTestType,
	"Type":                 ColTestType,
	"Duration":             ColDuration,
	"Time":                 ColDuration,
	"Remote Testing":       ColRemoteSupport,
	"Remote":               ColRemoteSupport,
	"remote_testing":       ColRemoteSupport,
	"Adaptive/IRT":         ColAdaptiveSupport,
	"Adaptive":             ColAdaptiveSupport,
	"adaptive_irt":         ColAdaptiveSupport,
}

// CanonicalColumn returns the canonical name for an exact synonym header.
func CanonicalColumn(header string) (string, bool) {
	c, ok := columnSynonyms[strings.TrimSpace(header)]
	return c, ok
}

// MapColumns resolves each canonical column to the index of the header that feeds it.
// Exact synonyms win; canonical columns left unmatched fall back to a header equal to
// the canonical name ignoring case. Columns with no source are absent from the result.
func MapColumns(headers []string) map[string]int {
	mapping := make(map[string]int, len(CanonicalColumns))
	for i, h := range headers {
		if c, ok := CanonicalColumn(h); ok {
			if _, taken := mapping[c]; !taken {
				mapping[c] = i
			}
		}
	}
	for _, c := range CanonicalColumns {
		if _, ok := mapping[c]; ok {
			continue
		}
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), c) {
				mapping[c] = i
				break
			}
		}
	}
	return mapping
}
