package keyword

import (
	"sort"
	"strings"
	"sync"
)

// Dictionary supplies indexed terms and their document frequencies.
type Dictionary interface {
	Terms() (map[string]int, error)
}

// Suggestion is a candidate correction for one query term.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
	Score     float64
}

// SpellCheckResult is the outcome of checking a query against the catalog vocabulary.
type SpellCheckResult struct {
	OriginalQuery   string
	CorrectedQuery  string
	HasCorrections  bool
	MisspelledTerms []string
	Suggestions     []Suggestion
}

// SpellChecker proposes "did you mean" corrections from the catalog vocabulary.
type SpellChecker struct {
	dictionary     Dictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	once  sync.Once
	terms map[string]int
	err   error
}

// SpellCheckerOption configures a SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the largest edit distance considered a correction.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores terms found in fewer than f entries.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions caps suggestions per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker returns a spell checker over dict. The vocabulary is read once, on first use.
func NewSpellChecker(dict Dictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SpellChecker) vocabulary() (map[string]int, error) {
	s.once.Do(func() {
		s.terms, s.err = s.dictionary.Terms()
	})
	return s.terms, s.err
}

// Check replaces each unknown query term with its best suggestion, if any.
func (s *SpellChecker) Check(query string) (*SpellCheckResult, error) {
	vocab, err := s.vocabulary()
	if err != nil {
		return nil, err
	}
	terms := tokenizeQuery(query)
	result := &SpellCheckResult{
		OriginalQuery:   query,
		MisspelledTerms: []string{},
		Suggestions:     []Suggestion{},
	}
	corrected := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, ok := vocab[term]; ok {
			corrected = append(corrected, term)
			continue
		}
		suggestions := s.suggest(vocab, term)
		if len(suggestions) == 0 {
			corrected = append(corrected, term)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, term)
		result.Suggestions = append(result.Suggestions, suggestions...)
		corrected = append(corrected, suggestions[0].Term)
	}
	result.CorrectedQuery = strings.Join(corrected, " ")
	return result, nil
}

// Suggest returns corrections for a single term, best first.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	vocab, err := s.vocabulary()
	if err != nil {
		return nil
	}
	return s.suggest(vocab, strings.ToLower(term))
}

func (s *SpellChecker) suggest(vocab map[string]int, term string) []Suggestion {
	n := len([]rune(term))
	out := make([]Suggestion, 0)
	for candidate, freq := range vocab {
		if candidate == term || freq < s.minFreq {
			continue
		}
		diff := len([]rune(candidate)) - n
		if diff > s.maxDistance || -diff > s.maxDistance {
			continue
		}
		d := LevenshteinDistance(term, candidate)
		if d > s.maxDistance {
			continue
		}
		out = append(out, Suggestion{
			Term:      candidate,
			Distance:  d,
			Frequency: freq,
			Score:     float64(freq) / float64(d+1),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}

// SuggestedQuery returns the corrected query, or "" when nothing was corrected.
func (s *SpellChecker) SuggestedQuery(query string) string {
	res, err := s.Check(query)
	if err != nil || !res.HasCorrections {
		return ""
	}
	return res.CorrectedQuery
}
