// Package embedding converts catalog text and queries into fixed-dimension vectors.
package embedding

import (
	"context"
	"fmt"
	"strings"
)

// Embedder produces vector embeddings for text.
// EmbedBatch returns one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelID() string
	Close() error
}

// Provider names accepted by New.
const (
	ProviderHash   = "hash"
	ProviderONNX   = "onnx"
	ProviderGemini = "gemini"
)

// Options configures an embedder built by New.
type Options struct {
	Provider   string
	Model      string
	Dimensions int
	MaxTokens  int
	CacheSize  int
	APIKey     string
}

// New builds the embedder named by opts.Provider. A model that cannot be loaded is
// returned as an error; callers treat it as fatal.
func New(ctx context.Context, opts Options) (Embedder, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1000
	}
	switch strings.ToLower(opts.Provider) {
	case ProviderHash, "":
		return NewHashEmbedder(opts.Dimensions, opts.CacheSize), nil
	case ProviderONNX:
		e, err := NewONNXEmbedder(opts.Model, opts.Dimensions, opts.MaxTokens, opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load ONNX model %s: %w", opts.Model, err)
		}
		return e, nil
	case ProviderGemini:
		e, err := NewGeminiEmbedder(ctx, opts.APIKey, opts.Model, opts.Dimensions, opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini embedder: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
}

// embedEach runs embed for every text, stopping at the first error or cancellation.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
