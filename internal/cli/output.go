// Package cli renders search results and recommendations for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/skillrec/internal/models"
	"github.com/hyperjump/skillrec/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRecommendation writes rec to w in the given format.
func WriteRecommendation(w io.Writer, rec *models.Recommendation, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, rec)
	}
	fmt.Fprintf(w, "\n%s\n", rec.Text)
	if rec.Source == models.SourceGenerated && len(rec.Entries) > 0 {
		fmt.Fprintln(w, "\nRetrieved assessments:")
		for _, r := range rec.Entries {
			fmt.Fprintf(w, "  %d. %s  %s\n", r.Rank, r.Entry.Name, r.Entry.URL)
		}
	}
	return nil
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results for %q\n\n", response.Total, response.Query)
	for _, r := range response.Results {
		writeOneResult(w, r)
	}
	return nil
}

func writeOneResult(w io.Writer, r models.RankedEntry) {
	e := r.Entry
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Distance: %.4f\n", r.Rank, r.Distance)
	fmt.Fprintf(w, "Name: %s\n", e.Name)
	if e.URL != "" {
		fmt.Fprintf(w, "URL: %s\n", e.URL)
	}
	fmt.Fprintf(w, "Test Type: %s | Duration: %s | Remote: %s | Adaptive: %s\n",
		e.TestType, e.Duration, e.RemoteSupport, e.AdaptiveSupport)
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(e.Description, 200))
	fmt.Fprintln(w)
}
