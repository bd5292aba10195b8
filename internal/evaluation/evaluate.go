package evaluation

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/hyperjump/skillrec/internal/index"
	"github.com/hyperjump/skillrec/internal/models"
)

// QueryType distinguishes how a test case query was derived.
type QueryType string

const (
	QueryTitle       QueryType = "title"
	QueryDescription QueryType = "description"
)

const (
	minDescriptionLen   = 20
	descriptionQueryLen = 100
)

// ResultsFile is the file Append writes to inside the output directory.
const ResultsFile = "evaluation_results.csv"

// Case is one evaluation query with the names that count as relevant.
type Case struct {
	Query    string
	Relevant []string
	Type     QueryType
}

// Searcher retrieves the nearest catalog entries for a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]index.Hit, error)
}

// Report holds mean recall per query type for one k.
type Report struct {
	K                 int
	Cases             int
	TitleRecall       float64
	DescriptionRecall float64
}

// BuildCases derives one title query per named entry and, when the description is
// longer than 20 bytes, a query of its first 100 bytes. The entry name is the only
// relevant answer.
func BuildCases(entries []*models.CatalogEntry) []Case {
	cases := make([]Case, 0, 2*len(entries))
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		cases = append(cases, Case{Query: e.Name, Relevant: []string{e.Name}, Type: QueryTitle})
		if d := e.Description; len(d) > minDescriptionLen {
			cases = append(cases, Case{Query: prefix(d, descriptionQueryLen), Relevant: []string{e.Name}, Type: QueryDescription})
		}
	}
	return cases
}

// prefix returns at most n bytes of s without splitting a rune.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Run searches every case at depth k and averages recall per query type.
func Run(ctx context.Context, s Searcher, cases []Case, k int) (*Report, error) {
	var title, desc []float64
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits, err := s.Search(ctx, c.Query, k)
		if err != nil {
			return nil, fmt.Errorf("failed to search %q: %w", c.Query, err)
		}
		predicted := make([]string, len(hits))
		for i, h := range hits {
			predicted[i] = h.Entry.Name
		}
		score := RecallAtK(predicted, c.Relevant, k)
		if c.Type == QueryTitle {
			title = append(title, score)
		} else {
			desc = append(desc, score)
		}
	}
	return &Report{
		K:                 k,
		Cases:             len(cases),
		TitleRecall:       MeanRecall(title),
		DescriptionRecall: MeanRecall(desc),
	}, nil
}

// Append adds the report's rows to dir/evaluation_results.csv, writing the header
// when the file is new.
func Append(dir string, r *Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(dir, ResultsFile)
	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write([]string{"k", "query_type", "mean_recall"}); err != nil {
			return err
		}
	}
	k := strconv.Itoa(r.K)
	rows := [][]string{
		{k, string(QueryTitle), strconv.FormatFloat(r.TitleRecall, 'f', 4, 64)},
		{k, string(QueryDescription), strconv.FormatFloat(r.DescriptionRecall, 'f', 4, 64)},
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Reset removes a previous results file so a new run starts fresh.
func Reset(dir string) error {
	err := os.Remove(filepath.Join(dir, ResultsFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
