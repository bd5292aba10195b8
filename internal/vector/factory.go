package vector

import (
	"fmt"
	"sort"
	"strings"
)

// IndexType names a VectorIndex backend.
type IndexType string

const (
	// IndexTypeMemory is exact brute-force search held in process memory.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS is a FAISS IndexFlatL2. Only usable in builds with -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

var constructors = map[IndexType]func(dimensions int) (VectorIndex, error){
	IndexTypeMemory: func(d int) (VectorIndex, error) {
		idx, err := NewMemoryIndex(d)
		if err != nil {
			return nil, err
		}
		return idx, nil
	},
	IndexTypeFAISS: func(d int) (VectorIndex, error) {
		idx, err := NewFAISSIndex(d)
		if err != nil {
			return nil, err
		}
		return idx, nil
	},
}

// NewVectorIndex returns an empty index of the named type. An empty name selects memory.
func NewVectorIndex(indexType string, dimensions int) (VectorIndex, error) {
	t := IndexType(strings.ToLower(strings.TrimSpace(indexType)))
	if t == "" {
		t = IndexTypeMemory
	}
	newIndex, ok := constructors[t]
	if !ok {
		return nil, fmt.Errorf("unknown index type %q (supported: %s)", indexType, strings.Join(supportedTypes(), ", "))
	}
	return newIndex(dimensions)
}

func supportedTypes() []string {
	names := make([]string, 0, len(constructors))
	for t := range constructors {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

// IsFAISSAvailable reports whether this binary was built with FAISS support.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
