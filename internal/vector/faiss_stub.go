//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import (
	"context"
	"errors"
)

// ErrFAISSUnavailable is returned by every FAISSIndex operation in builds without
// the faiss tag.
var ErrFAISSUnavailable = errors.New("faiss index unavailable: rebuild with -tags=faiss and libfaiss_c installed")

// FAISSIndex is a placeholder so configurations naming "faiss" fail with a clear error.
type FAISSIndex struct{}

// NewFAISSIndex always fails with ErrFAISSUnavailable.
func NewFAISSIndex(int) (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

func (*FAISSIndex) Add(context.Context, []string, [][]float32) error { return ErrFAISSUnavailable }

func (*FAISSIndex) Search(context.Context, []float32, int) ([]*VectorResult, error) {
	return nil, ErrFAISSUnavailable
}

func (*FAISSIndex) Save(string) error { return ErrFAISSUnavailable }
func (*FAISSIndex) Load(string) error { return ErrFAISSUnavailable }
func (*FAISSIndex) Size() int { return 0 }
func (*FAISSIndex) Dimensions() int { return 0 }
func (*FAISSIndex) Close() error { return nil }
func (*FAISSIndex) Type() string { return string(IndexTypeFAISS) }
