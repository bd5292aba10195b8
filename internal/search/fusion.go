// Package search fuses keyword and semantic matches over the catalog into one ranking.
package search

import (
	"sort"

	"github.com/hyperjump/skillrec/internal/index"
	"github.com/hyperjump/skillrec/internal/keyword"
	"github.com/hyperjump/skillrec/internal/models"
)

// Default weights for Fuse.
const (
	DefaultKeywordWeight  = 0.4
	DefaultSemanticWeight = 0.6
)

// FusedResult is a catalog entry with its combined and per-source scores.
type FusedResult struct {
	Entry         *models.CatalogEntry
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// NormalizeKeywordScores scales keyword scores to [0,1] by the maximum score.
func NormalizeKeywordScores(results []*keyword.Result) map[*models.CatalogEntry]float64 {
	normalized := make(map[*models.CatalogEntry]float64, len(results))
	var maxScore float64
	for _, r := range results {
		maxScore = max(maxScore, r.Score)
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.Entry] = r.Score / maxScore
		} else {
			normalized[r.Entry] = 0
		}
	}
	return normalized
}

// SemanticScores converts Euclidean distances between unit vectors into cosine
// similarity, clamped to [0,1].
func SemanticScores(hits []index.Hit) map[*models.CatalogEntry]float64 {
	scores := make(map[*models.CatalogEntry]float64, len(hits))
	for _, h := range hits {
		sim := 1 - h.Distance*h.Distance/2
		scores[h.Entry] = min(1, max(0, sim))
	}
	return scores
}

// Fuse merges keyword and semantic scores with the given weights. Results are sorted
// by combined score descending, ties by name, and truncated to limit when limit > 0.
func Fuse(keywordScores, semanticScores map[*models.CatalogEntry]float64, keywordWeight, semanticWeight float64, limit int) []*FusedResult {
	scoreMap := make(map[*models.CatalogEntry]*FusedResult, len(keywordScores)+len(semanticScores))
	for e, score := range keywordScores {
		scoreMap[e] = &FusedResult{Entry: e, KeywordScore: score}
	}
	for e, score := range semanticScores {
		if r, ok := scoreMap[e]; ok {
			r.SemanticScore = score
		} else {
			scoreMap[e] = &FusedResult{Entry: e, SemanticScore: score}
		}
	}
	results := make([]*FusedResult, 0, len(scoreMap))
	for _, r := range scoreMap {
		r.Score = keywordWeight*r.KeywordScore + semanticWeight*r.SemanticScore
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.Name < results[j].Entry.Name
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
