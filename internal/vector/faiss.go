//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"unsafe"
)

// FAISSIndex is an exact L2 index backed by FAISS IndexFlatL2. FAISS labels are
// insertion positions; ids holds the entry ID for each label.
type FAISSIndex struct {
	index      *C.FaissIndex
	dimensions int
	ids        []string
	mu         sync.RWMutex
}

// NewFAISSIndex creates a flat L2 FAISS index with the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	var index *C.FaissIndexFlatL2
	ret := C.faiss_IndexFlatL2_new_with(&index, C.idx_t(dimensions))
	if ret != 0 {
		return nil, faissError("create IndexFlatL2")
	}

	return &FAISSIndex{
		index:      (*C.FaissIndex)(index),
		dimensions: dimensions,
		ids:        make([]string, 0),
	}, nil
}

// faissError wraps the message FAISS recorded for the last failed call.
func faissError(op string) error {
	msg := "unknown error"
	if cErr := C.faiss_get_last_error(); cErr != nil {
		msg = C.GoString(cErr)
	}
	return fmt.Errorf("faiss %s: %s", op, msg)
}

func (f *FAISSIndex) flatten(vectors [][]float32) ([]float32, error) {
	flat := make([]float32, 0, len(vectors)*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return nil, fmt.Errorf("%w: vector %d has %d, expected %d", ErrDimensionMismatch, i, len(vec), f.dimensions)
		}
		flat = append(flat, vec...)
	}
	return flat, nil
}

// Add appends vectors with the given IDs.
func (f *FAISSIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d ids, %d vectors", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		return nil
	}

	flat, err := f.flatten(vectors)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if C.faiss_Index_add(f.index, C.idx_t(len(vectors)), (*C.float)(unsafe.Pointer(&flat[0]))) != 0 {
		return faissError("add")
	}
	f.ids = append(f.ids, ids...)
	return nil
}

// Search returns up to k vectors closest to query. FAISS reports squared L2
// distances; results carry the Euclidean distance so both backends agree.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), f.dimensions)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	if k > len(f.ids) {
		k = len(f.ids)
	}

	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, faissError("search")
	}

	results := make([]*VectorResult, 0, k)
	for i := 0; i < k; i++ {
		label := labels[i]
		if label < 0 || int(label) >= len(f.ids) {
			continue
		}
		results = append(results, &VectorResult{
			ID:       f.ids[label],
			Position: int(label),
			Distance: math.Sqrt(math.Max(0, float64(distances[i]))),
		})
	}
	return results, nil
}

// Save writes the FAISS index to path+".faiss" and the label ids to path+".ids".
func (f *FAISSIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	cPath := C.CString(path + ".faiss")
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		return faissError("write " + path)
	}

	idFile, err := os.Create(path + ".ids")
	if err != nil {
		return fmt.Errorf("create id file: %w", err)
	}
	defer idFile.Close()
	if err := gob.NewEncoder(idFile).Encode(f.ids); err != nil {
		return fmt.Errorf("encode ids: %w", err)
	}
	return idFile.Close()
}

// Load reads an index written by Save. A missing file returns an error wrapping os.ErrNotExist.
func (f *FAISSIndex) Load(path string) error {
	faissPath := path + ".faiss"
	if _, err := os.Stat(faissPath); err != nil {
		return fmt.Errorf("stat FAISS index: %w", err)
	}

	idFile, err := os.Open(path + ".ids")
	if err != nil {
		return fmt.Errorf("open id file: %w", err)
	}
	defer idFile.Close()
	var ids []string
	if err := gob.NewDecoder(idFile).Decode(&ids); err != nil {
		return fmt.Errorf("decode ids: %w", err)
	}

	cPath := C.CString(faissPath)
	defer C.free(unsafe.Pointer(cPath))
	var loaded *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &loaded); ret != 0 {
		return faissError("read " + path)
	}
	if d := int(C.faiss_Index_d(loaded)); d != f.dimensions {
		C.faiss_Index_free(loaded)
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, d, f.dimensions)
	}
	if n := int(C.faiss_Index_ntotal(loaded)); n != len(ids) {
		C.faiss_Index_free(loaded)
		return fmt.Errorf("corrupt FAISS index %s: %d vectors, %d ids", path, n, len(ids))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded
	f.ids = ids
	return nil
}

// Size returns the number of vectors.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimensions returns the vector dimension.
func (f *FAISSIndex) Dimensions() int {
	return f.dimensions
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
