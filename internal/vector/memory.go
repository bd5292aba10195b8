package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// memoryIndexMagic prefixes files written by MemoryIndex.Save ("SKV1").
const memoryIndexMagic uint32 = 0x31564b53

// MemoryIndex is an exact index using brute-force L2 search. Catalog-sized
// collections (thousands of vectors) search in well under a millisecond.
type MemoryIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Add appends vectors with the given IDs. Either all vectors are added or none.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d ids, %d vectors", len(ids), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != m.dimensions {
			return fmt.Errorf("%w: vector %d has %d, expected %d", ErrDimensionMismatch, i, len(vec), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns up to k vectors closest to query, nearest first. Equal distances
// keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	results := make([]*VectorResult, len(m.ids))
	for i, vec := range m.vectors {
		results[i] = &VectorResult{ID: m.ids[i], Position: i, Distance: L2Distance(query, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

type memoryFileHeader struct {
	Magic      uint32
	Dimensions uint32
	Count      uint32
}

// Save writes the index to path, creating its directory. The file is a
// little-endian header (magic, dimensions, count) followed by one record per
// vector: id length, id bytes, then the float32 components.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	le := binary.LittleEndian
	hdr := memoryFileHeader{memoryIndexMagic, uint32(m.dimensions), uint32(len(m.ids))}
	if err := binary.Write(w, le, hdr); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, id := range m.ids {
		if err := binary.Write(w, le, uint32(len(id))); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
		if _, err := w.WriteString(id); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
		if err := binary.Write(w, le, m.vectors[i]); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush index file: %w", err)
	}
	return f.Close()
}

// Load replaces the contents with the index stored at path. A missing file wraps
// os.ErrNotExist; a foreign, truncated or oversized file is reported as corrupt.
func (m *MemoryIndex) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	le := binary.LittleEndian

	var hdr memoryFileHeader
	if err := binary.Read(r, le, &hdr); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if hdr.Magic != memoryIndexMagic {
		return fmt.Errorf("corrupt index file %s: bad magic %#x", path, hdr.Magic)
	}
	if int(hdr.Dimensions) != m.dimensions {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, hdr.Dimensions, m.dimensions)
	}

	ids := make([]string, 0, hdr.Count)
	vectors := make([][]float32, 0, hdr.Count)
	for i := uint32(0); i < hdr.Count; i++ {
		var n uint32
		if err := binary.Read(r, le, &n); err != nil {
			return fmt.Errorf("failed to read record %d: %w", i, err)
		}
		id := make([]byte, n)
		if _, err := io.ReadFull(r, id); err != nil {
			return fmt.Errorf("failed to read record %d: %w", i, err)
		}
		vec := make([]float32, m.dimensions)
		if err := binary.Read(r, le, vec); err != nil {
			return fmt.Errorf("failed to read record %d: %w", i, err)
		}
		ids = append(ids, string(id))
		vectors = append(vectors, vec)
	}
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("corrupt index file %s: trailing data after %d vectors", path, hdr.Count)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = ids
	m.vectors = vectors
	return nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
