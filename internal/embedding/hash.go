package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/hyperjump/skillrec/pkg/utils"
)

// DefaultDimensions is used when no dimension is configured.
const DefaultDimensions = 384

// HashEmbedder is a deterministic bag-of-words embedder. Each normalized token is
// hashed into one of Dimensions buckets and the counts are L2 normalized, so texts
// sharing words are closer than texts that do not. It needs no model files.
type HashEmbedder struct {
	dimensions int
	cache      *EmbeddingCache
}

// NewHashEmbedder returns a hash embedder with the given dimensions.
func NewHashEmbedder(dimensions, cacheSize int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &HashEmbedder{dimensions: dimensions, cache: NewEmbeddingCache(cacheSize)}
}

// Embed returns the embedding for text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	emb := make([]float32, e.dimensions)
	for _, tok := range strings.Fields(utils.CleanText(text)) {
		emb[e.bucket(tok)]++
	}
	utils.NormalizeL2(emb)
	e.cache.Set(text, emb)
	return emb, nil
}

func (e *HashEmbedder) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dimensions))
}

// EmbedBatch embeds each text in order.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelID identifies the embedding scheme for index manifests.
func (e *HashEmbedder) ModelID() string {
	return fmt.Sprintf("hash-fnv32a-%d", e.dimensions)
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}
