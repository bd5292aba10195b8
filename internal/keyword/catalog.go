// Package keyword provides exact and fuzzy keyword lookup over catalog entries using Bleve.
package keyword

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/skillrec/internal/models"
)

const (
	fieldName        = "name"
	fieldDescription = "description"
	fieldTestType    = "test_type"
)

// SearchOptions tunes a lookup. Nil means defaults.
type SearchOptions struct {
	// NameBoost multiplies matches in the assessment name. Default 3.
	NameBoost float64
	// Fuzziness is the edit distance allowed per term; 0 disables fuzzy matching.
	Fuzziness int
}

// Result is a single lookup hit.
type Result struct {
	Entry *models.CatalogEntry
	Score float64
}

// CatalogIndex is an in-memory Bleve index over a fixed set of catalog entries.
// Documents are keyed by catalog position so duplicate urls stay distinct.
type CatalogIndex struct {
	index   bleve.Index
	entries []*models.CatalogEntry
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase and tokenize without stemming, so "java" matches "Java" only.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt(fieldName, text)
	doc.AddFieldMappingsAt(fieldDescription, text)
	doc.AddFieldMappingsAt(fieldTestType, text)
	im.DefaultMapping = doc
	return im
}

// NewCatalogIndex indexes entries.
func NewCatalogIndex(entries []*models.CatalogEntry) (*CatalogIndex, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	batch := idx.NewBatch()
	for i, e := range entries {
		doc := map[string]interface{}{
			fieldName:        e.Name,
			fieldDescription: e.Description,
			fieldTestType:    e.TestType,
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("failed to index entry %d: %w", i, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to index catalog: %w", err)
	}
	return &CatalogIndex{index: idx, entries: entries}, nil
}

// Search returns up to limit entries matching any query term, best first.
func (c *CatalogIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	terms := tokenizeQuery(query)
	if len(terms) == 0 || limit <= 0 {
		return []*Result{}, nil
	}
	nameBoost := 3.0
	fuzziness := 0
	if opts != nil {
		if opts.NameBoost > 0 {
			nameBoost = opts.NameBoost
		}
		fuzziness = opts.Fuzziness
	}

	fieldQuery := func(field string, boost float64) blevequery.Query {
		q := bleve.NewMatchQuery(strings.Join(terms, " "))
		q.SetField(field)
		q.SetBoost(boost)
		if fuzziness > 0 {
			q.SetFuzziness(fuzziness)
		}
		return q
	}
	q := bleve.NewDisjunctionQuery(
		fieldQuery(fieldName, nameBoost),
		fieldQuery(fieldDescription, 1),
		fieldQuery(fieldTestType, 1),
	)

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil || pos < 0 || pos >= len(c.entries) {
			continue
		}
		out = append(out, &Result{Entry: c.entries[pos], Score: hit.Score})
	}
	return out, nil
}

// DocCount returns the number of indexed entries.
func (c *CatalogIndex) DocCount() (uint64, error) {
	return c.index.DocCount()
}

// Terms returns every indexed term of the name and description fields with the
// number of entries containing it.
func (c *CatalogIndex) Terms() (map[string]int, error) {
	terms := make(map[string]int)
	for _, field := range []string{fieldName, fieldDescription} {
		dict, err := c.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil {
				_ = dict.Close()
				return nil, fmt.Errorf("failed to read %s terms: %w", field, err)
			}
			if entry == nil {
				break
			}
			if n := int(entry.Count); n > terms[entry.Term] {
				terms[entry.Term] = n
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}

// Close releases the index.
func (c *CatalogIndex) Close() error {
	return c.index.Close()
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}
