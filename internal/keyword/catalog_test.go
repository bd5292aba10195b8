package keyword

import (
	"context"
	"testing"

	"github.com/hyperjump/skillrec/internal/models"
)

func testEntries() []*models.CatalogEntry {
	return []*models.CatalogEntry{
		{Name: "Java 8 (New)", Description: "Multiple choice test of Java programming", TestType: "K"},
		{Name: "Verbal Reasoning", Description: "Reading comprehension and written passages", TestType: "A"},
		{Name: "Programming Concepts", Description: "General coding knowledge including java and python", TestType: "K"},
	}
}

func newTestIndex(t *testing.T) *CatalogIndex {
	t.Helper()
	idx, err := NewCatalogIndex(testEntries())
	if err != nil {
		t.Fatalf("NewCatalogIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestCatalogIndex_Search(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	results, err := idx.Search(ctx, "Java", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Entry.Name != "Java 8 (New)" {
		t.Errorf("name match should rank first, got %q", results[0].Entry.Name)
	}

	results, err = idx.Search(ctx, "comprehension", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Entry.Name != "Verbal Reasoning" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestCatalogIndex_SearchLimitAndEmpty(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	results, err := idx.Search(ctx, "java", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("limit not applied: %d results", len(results))
	}
	results, err = idx.Search(ctx, "   ", 10, nil)
	if err != nil || len(results) != 0 {
		t.Errorf("blank query should return nothing, got %d (%v)", len(results), err)
	}
}

func TestCatalogIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	exact, err := idx.Search(ctx, "verbl", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(exact) != 0 {
		t.Errorf("exact lookup should not match a typo, got %d", len(exact))
	}
	fuzzy, err := idx.Search(ctx, "verbl", 10, &SearchOptions{Fuzziness: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy) == 0 || fuzzy[0].Entry.Name != "Verbal Reasoning" {
		t.Errorf("fuzzy lookup should find Verbal Reasoning, got %+v", fuzzy)
	}
}

func TestCatalogIndex_TermsFeedSpellChecker(t *testing.T) {
	idx := newTestIndex(t)
	n, err := idx.DocCount()
	if err != nil || n != 3 {
		t.Fatalf("DocCount = %d, %v", n, err)
	}
	terms, err := idx.Terms()
	if err != nil {
		t.Fatal(err)
	}
	if terms["java"] != 2 {
		t.Errorf("java should appear in 2 entries, got %d", terms["java"])
	}
	sc := NewSpellChecker(idx)
	if q := sc.SuggestedQuery("pyhton"); q != "python" {
		t.Errorf("expected python, got %q", q)
	}
}
