package embedding

import (
	"container/list"
	"sync"
)

// EmbeddingCache is a bounded LRU of embeddings keyed by input text. Vectors are
// copied on the way in and out so callers can modify what they receive.
type EmbeddingCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front is most recently used
}

type cached struct {
	text   string
	vector []float32
}

// NewEmbeddingCache returns a cache holding at most capacity vectors (minimum 1).
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: max(capacity, 1),
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns a copy of the vector cached for text.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[text]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return cloneVector(el.Value.(*cached).vector), true
}

// Set caches vector for text, evicting the least recently used entry when full.
func (c *EmbeddingCache) Set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[text]; ok {
		el.Value.(*cached).vector = cloneVector(vector)
		c.order.MoveToFront(el)
		return
	}
	c.items[text] = c.order.PushFront(&cached{text: text, vector: cloneVector(vector)})
	for c.order.Len() > c.capacity {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.items, last.Value.(*cached).text)
	}
}

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func cloneVector(v []float32) []float32 {
	return append([]float32(nil), v...)
}
