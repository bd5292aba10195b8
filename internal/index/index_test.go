package index

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/skillrec/internal/models"
	"github.com/hyperjump/skillrec/internal/vector"
)

func testData() ([][]float32, []*models.CatalogEntry) {
	entries := []*models.CatalogEntry{
		{Name: "Verbal Reasoning Test", URL: "https://example.com/verbal", TestType: "A", Duration: "19"},
		{Name: "Numerical Reasoning Test", URL: "https://example.com/numerical", TestType: "A, K", Duration: "N/A"},
		{Name: "Coding Challenge", URL: "https://example.com/coding", TestType: "K", Duration: "45"},
	}
	for _, e := range entries {
		e.Finalize()
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	return vectors, entries
}

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	vectors, entries := testData()
	idx, err := Build(context.Background(), vectors, entries, BuildOptions{ModelID: "test", Dimensions: 3})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBuild_LengthMismatch(t *testing.T) {
	vectors, entries := testData()
	_, err := Build(context.Background(), vectors[:2], entries, BuildOptions{Dimensions: 3})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestSearch_NearestNeighbor(t *testing.T) {
	idx := buildTestIndex(t)
	hits, err := idx.Search(context.Background(), []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Entry.Name != "Numerical Reasoning Test" {
		t.Fatalf("unexpected hits %+v", hits)
	}
	if math.Abs(hits[0].Distance) > 1e-6 {
		t.Errorf("expected distance 0, got %v", hits[0].Distance)
	}
}

func TestSearch_Bounds(t *testing.T) {
	idx := buildTestIndex(t)
	ctx := context.Background()
	for _, k := range []int{-1, 0, 1, 2, 3, 4, 100} {
		hits, err := idx.Search(ctx, []float32{0.3, 0.3, 0.3}, k)
		if err != nil {
			t.Fatal(err)
		}
		want := max(0, min(k, idx.Size()))
		if len(hits) != want {
			t.Errorf("k=%d: %d hits, want %d", k, len(hits), want)
		}
		for i := 1; i < len(hits); i++ {
			if hits[i].Distance < hits[i-1].Distance {
				t.Errorf("k=%d: distances not ascending", k)
			}
		}
	}
}

func TestPersistLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := buildTestIndex(t)
	dir := filepath.Join(t.TempDir(), "index")
	if err := idx.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("expected index to exist after Persist")
	}

	loaded, err := Load(ctx, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer loaded.Close()

	m := loaded.Manifest()
	if m.ModelID != "test" || m.Dimensions != 3 || m.Count != 3 || m.IndexType != "memory" {
		t.Errorf("unexpected manifest %+v", m)
	}
	if !m.CreatedAt.Equal(idx.Manifest().CreatedAt) {
		t.Errorf("created_at changed: %v vs %v", m.CreatedAt, idx.Manifest().CreatedAt)
	}

	for _, q := range [][]float32{{1, 0, 0}, {0.2, 0.5, 0.9}, {-1, 2, 0}} {
		want, _ := idx.Search(ctx, q, 3)
		got, err := loaded.Search(ctx, q, 3)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(want) {
			t.Fatalf("got %d hits, want %d", len(got), len(want))
		}
		for i := range want {
			if *got[i].Entry != *want[i].Entry {
				t.Errorf("hit %d entry: got %+v, want %+v", i, got[i].Entry, want[i].Entry)
			}
			if math.Abs(got[i].Distance-want[i].Distance) > 1e-9 {
				t.Errorf("hit %d distance: got %v, want %v", i, got[i].Distance, want[i].Distance)
			}
		}
	}
}

func TestPersist_Overwrites(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "index")
	if err := buildTestIndex(t).Persist(ctx, dir); err != nil {
		t.Fatal(err)
	}
	vectors, entries := testData()
	small, err := Build(ctx, vectors[:1], entries[:1], BuildOptions{Dimensions: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := small.Persist(ctx, dir); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	defer loaded.Close()
	if loaded.Size() != 1 {
		t.Errorf("expected 1 entry after overwrite, got %d", loaded.Size())
	}
	if _, err := os.Stat(dir + ".tmp"); !os.IsNotExist(err) {
		t.Error("staging directory should be gone")
	}
}

func TestPersist_FailedSwapKeepsPreviousIndex(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "index")
	if err := buildTestIndex(t).Persist(ctx, dir); err != nil {
		t.Fatal(err)
	}

	vectors, entries := testData()
	small, err := Build(ctx, vectors[:1], entries[:1], BuildOptions{Dimensions: 3})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = small.Close() })

	rename = func(from, to string) error {
		if to == dir && from == dir+".tmp" {
			return &os.LinkError{Op: "rename", Old: from, New: to, Err: os.ErrPermission}
		}
		return os.Rename(from, to)
	}
	t.Cleanup(func() { rename = os.Rename })

	if err := small.Persist(ctx, dir); err == nil {
		t.Fatal("expected Persist to fail when the staged index cannot be moved")
	}
	loaded, err := Load(ctx, dir)
	if err != nil {
		t.Fatalf("previous index should be restored: %v", err)
	}
	defer loaded.Close()
	if loaded.Size() != 3 {
		t.Errorf("expected the previous 3 entries, got %d", loaded.Size())
	}
	for _, leftover := range []string{dir + ".bak", dir + ".tmp"} {
		if _, err := os.Stat(leftover); !os.IsNotExist(err) {
			t.Errorf("%s should not remain after a failed swap", leftover)
		}
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "index")
	if err := buildTestIndex(t).Persist(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, vectorsFile), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(ctx, dir)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}

	if err := os.Remove(filepath.Join(dir, vectorsFile)); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(ctx, dir); !errors.Is(err, ErrCorrupt) {
		t.Errorf("missing vectors: expected ErrCorrupt, got %v", err)
	}
}

func TestOpenCatalog(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "index")
	if _, err := OpenCatalog(dir); !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
	idx := buildTestIndex(t)
	if err := idx.Persist(ctx, dir); err != nil {
		t.Fatal(err)
	}
	store, err := OpenCatalog(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	want := idx.Entries()[1]
	got, err := store.GetEntry(ctx, want.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

type closeCounter struct {
	vector.VectorIndex
	closed atomic.Int32
}

func (c *closeCounter) Close() error {
	c.closed.Add(1)
	return nil
}

func TestIndex_ReadersDelayClose(t *testing.T) {
	vectors, entries := testData()
	vi, err := vector.NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := vi.Add(context.Background(), ids, vectors); err != nil {
		t.Fatal(err)
	}
	counter := &closeCounter{VectorIndex: vi}
	idx := newIndex(counter, entries, Manifest{Dimensions: 3, Count: 3})

	if !idx.Acquire() {
		t.Fatal("Acquire should succeed while the owner holds the index")
	}
	_ = idx.Close()
	_ = idx.Close()
	if n := counter.closed.Load(); n != 0 {
		t.Fatalf("vectors closed %d times while a reader holds the index", n)
	}
	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 1)
	if err != nil || len(hits) != 1 {
		t.Fatalf("held index should stay searchable: %v %v", hits, err)
	}

	_ = idx.Release()
	if n := counter.closed.Load(); n != 1 {
		t.Errorf("expected vectors closed once after the last release, got %d", n)
	}
	if idx.Acquire() {
		t.Error("Acquire should fail once every reference is released")
	}
}
