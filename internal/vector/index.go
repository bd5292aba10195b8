// Package vector provides exact L2 nearest-neighbor indexes over fixed-dimension vectors.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// VectorIndex stores vectors in insertion order and answers k-nearest-neighbor queries.
// Indexes are append-only; a changed catalog is indexed again from scratch.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// VectorResult is a single search hit. Position is the insertion index of the vector.
type VectorResult struct {
	ID       string
	Position int
	Distance float64 // Euclidean distance to the query, ascending across results
}
