// Package evaluation measures retrieval quality as recall@k against catalog-derived queries.
package evaluation

// RecallAtK returns the fraction of relevant items found in the first k predictions.
// It is 0 when relevant is empty.
func RecallAtK(predicted, relevant []string, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if k < len(predicted) {
		predicted = predicted[:max(k, 0)]
	}
	top := make(map[string]struct{}, len(predicted))
	for _, p := range predicted {
		top[p] = struct{}{}
	}
	rel := make(map[string]struct{}, len(relevant))
	for _, r := range relevant {
		rel[r] = struct{}{}
	}
	hits := 0
	for r := range rel {
		if _, ok := top[r]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

// MeanRecall averages scores, 0 for none.
func MeanRecall(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
