package models

import "fmt"

// Source records which path produced a recommendation text.
type Source string

const (
	// SourceGenerated means the text came from the generative model.
	SourceGenerated Source = "generated"
	// SourceFallback means generation was unavailable and the text is a formatted listing.
	SourceFallback Source = "fallback"
	// SourceEmpty means retrieval found nothing.
	SourceEmpty Source = "empty"
)

// RankedEntry is a retrieved catalog entry with its distance to the query.
type RankedEntry struct {
	Entry    *CatalogEntry `json:"entry"`
	Distance float64       `json:"distance"`
	Rank     int           `json:"rank"`
}

// Recommendation is the outcome of a recommend call.
type Recommendation struct {
	Query   string        `json:"query"`
	Text    string        `json:"text"`
	Source  Source        `json:"source"`
	Entries []RankedEntry `json:"entries"`
}

// RecommendRequest is the body of POST /recommend.
type RecommendRequest struct {
	Query string `json:"query"`
}

// Validate returns an error when the request has no query.
func (r *RecommendRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}

// RecommendResponse is the body returned by POST /recommend.
type RecommendResponse struct {
	RecommendedAssessments []Assessment `json:"recommended_assessments"`
	Explanation            string       `json:"explanation"`
}

// SearchResponse is returned by the catalog search endpoints and the CLI.
type SearchResponse struct {
	Query   string        `json:"query"`
	Total   int           `json:"total"`
	Results []RankedEntry `json:"results"`
}
