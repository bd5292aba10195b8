// Package index pairs catalog entries with their vectors and persists both as one unit.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperjump/skillrec/internal/models"
	"github.com/hyperjump/skillrec/internal/vector"
)

var (
	// ErrIndexNotFound is returned by Load when no persisted index exists.
	ErrIndexNotFound = errors.New("index not found")
	// ErrLengthMismatch is returned by Build when vectors and entries differ in count.
	ErrLengthMismatch = errors.New("vectors and entries length mismatch")
	// ErrCorrupt is returned when persisted parts disagree with each other.
	ErrCorrupt = errors.New("index is corrupt")
)

// Manifest describes how a persisted index was built.
type Manifest struct {
	ModelID    string    `json:"model_id"`
	Dimensions int       `json:"dimensions"`
	Count      int       `json:"count"`
	IndexType  string    `json:"index_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// BuildOptions configures Build.
type BuildOptions struct {
	IndexType  string
	ModelID    string
	Dimensions int
}

// Hit is a retrieved entry with its distance to the query.
type Hit struct {
	Entry    *models.CatalogEntry
	Distance float64
	Position int
}

// Index holds vectors and the entry at the same position for each vector.
// It is read-only after Build or Load.
//
// The creator owns one reference, dropped by Close. Readers that may outlive the
// owner's reference take their own with Acquire; the vector index is freed when
// the last reference is released.
type Index struct {
	vectors  vector.VectorIndex
	entries  []*models.CatalogEntry
	manifest Manifest

	refs      atomic.Int64
	closeOnce sync.Once
}

func newIndex(vi vector.VectorIndex, entries []*models.CatalogEntry, m Manifest) *Index {
	idx := &Index{vectors: vi, entries: entries, manifest: m}
	idx.refs.Store(1)
	return idx
}

// Build indexes vectors[i] for entries[i].
func Build(ctx context.Context, vectors [][]float32, entries []*models.CatalogEntry, opts BuildOptions) (*Index, error) {
	if len(vectors) != len(entries) {
		return nil, fmt.Errorf("%w: %d vectors, %d entries", ErrLengthMismatch, len(vectors), len(entries))
	}
	dims := opts.Dimensions
	if dims == 0 && len(vectors) > 0 {
		dims = len(vectors[0])
	}
	vi, err := vector.NewVectorIndex(opts.IndexType, dims)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := vi.Add(ctx, ids, vectors); err != nil {
		_ = vi.Close()
		return nil, fmt.Errorf("failed to add vectors: %w", err)
	}
	return newIndex(vi, entries, Manifest{
		ModelID:    opts.ModelID,
		Dimensions: dims,
		Count:      len(entries),
		IndexType:  vi.Type(),
		CreatedAt:  time.Now().UTC(),
	}), nil
}

// Search returns up to min(k, Size()) hits ordered by ascending distance.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(idx.entries) == 0 {
		return []Hit{}, nil
	}
	results, err := idx.vectors.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if r.Position < 0 || r.Position >= len(idx.entries) || idx.entries[r.Position].ID != r.ID {
			return nil, fmt.Errorf("%w: vector %d (%s) has no matching entry", ErrCorrupt, r.Position, r.ID)
		}
		hits = append(hits, Hit{Entry: idx.entries[r.Position], Distance: r.Distance, Position: r.Position})
	}
	return hits, nil
}

// Size returns the number of indexed entries.
func (idx *Index) Size() int {
	return len(idx.entries)
}

// Entries returns the indexed entries in position order.
func (idx *Index) Entries() []*models.CatalogEntry {
	return idx.entries
}

// Manifest returns build metadata.
func (idx *Index) Manifest() Manifest {
	return idx.manifest
}

// Acquire takes a reader reference. It returns false once every reference has
// been released and the vector index is freed.
func (idx *Index) Acquire() bool {
	for {
		n := idx.refs.Load()
		if n <= 0 {
			return false
		}
		if idx.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference taken with Acquire.
func (idx *Index) Release() error {
	if idx.refs.Add(-1) == 0 {
		return idx.vectors.Close()
	}
	return nil
}

// Close drops the owner's reference. Repeated calls are no-ops.
func (idx *Index) Close() error {
	var err error
	idx.closeOnce.Do(func() { err = idx.Release() })
	return err
}
