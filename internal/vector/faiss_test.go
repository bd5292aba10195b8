//go:build faiss && cgo
// +build faiss,cgo

package vector

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestFAISSIndex_MatchesMemoryIndex(t *testing.T) {
	ctx := context.Background()
	vecs := [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}}
	ids := []string{"a", "b", "c"}

	fi, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer fi.Close()
	mi, _ := NewMemoryIndex(3)
	if err := fi.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	_ = mi.Add(ctx, ids, vecs)

	query := []float32{0.8, 0.3, 0}
	got, err := fi.Search(ctx, query, 3)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := mi.Search(ctx, query, 3)
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Position != want[i].Position {
			t.Errorf("result %d: got %+v, want %+v", i, got[i], want[i])
		}
		if math.Abs(got[i].Distance-want[i].Distance) > 1e-4 {
			t.Errorf("distance %d: got %v, want %v", i, got[i].Distance, want[i].Distance)
		}
	}
}

func TestFAISSIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx")

	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if err := idx.Add(ctx, []string{"a", "b", "c"}, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".ids"); err != nil {
		t.Fatalf("ids file not created: %v", err)
	}

	idx2, _ := NewFAISSIndex(3)
	defer idx2.Close()
	if err := idx2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	results, err := idx2.Search(ctx, []float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "c" || results[0].Distance > 1e-6 {
		t.Errorf("Search after Load: got %+v", results)
	}

	idx3, _ := NewFAISSIndex(4)
	defer idx3.Close()
	if err := idx3.Load(path); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFAISSIndex_LoadMissingFile(t *testing.T) {
	idx, err := NewFAISSIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if err := idx.Load(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestFAISSIndex_DimensionMismatch(t *testing.T) {
	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	if err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Add: expected ErrDimensionMismatch, got %v", err)
	}
	_ = idx.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}})
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search: expected ErrDimensionMismatch, got %v", err)
	}
}
