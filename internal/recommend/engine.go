// Package recommend retrieves catalog entries for a query and phrases them as a recommendation.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/skillrec/internal/catalog"
	"github.com/hyperjump/skillrec/internal/embedding"
	"github.com/hyperjump/skillrec/internal/index"
	"github.com/hyperjump/skillrec/internal/llm"
	"github.com/hyperjump/skillrec/internal/models"
)

// State is the engine lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateBuilding
	StateReady
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// ErrNotReady is returned when a query reaches an engine that has no index.
var ErrNotReady = errors.New("recommendation engine is not ready")

const (
	defaultTopK      = 5
	defaultBatchSize = 64
)

// Engine owns the index for its lifetime and answers Search and Recommend.
// The index is swapped atomically by Rebuild and never mutated in place.
type Engine struct {
	embedder    embedding.Embedder
	generator   llm.Generator
	catalogPath string
	indexDir    string
	indexType   string
	topK        int
	batchSize   int
	outputDir   string
	forceBuild  bool
	logger      *zap.Logger

	index     atomic.Pointer[index.Index]
	state     atomic.Int32
	rebuildMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithGenerator enables the generation stage. Without it Recommend always returns the fallback listing.
func WithGenerator(g llm.Generator) Option {
	return func(e *Engine) { e.generator = g }
}

// WithTopK sets how many entries Recommend retrieves.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithIndexType selects the vector index backend used when building.
func WithIndexType(t string) Option {
	return func(e *Engine) { e.indexType = t }
}

// WithBatchSize sets how many texts are embedded per EmbedBatch call while building.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithOutputDir sets where fallback audit files are written.
func WithOutputDir(dir string) Option {
	return func(e *Engine) { e.outputDir = dir }
}

// WithForceBuild makes NewEngine ignore any persisted index and rebuild from the catalog.
func WithForceBuild() Option {
	return func(e *Engine) { e.forceBuild = true }
}

// NewEngine loads the persisted index from indexDir, or builds it from the catalog at
// catalogPath and persists it when none exists. A corrupt index, an unreadable catalog
// or an index built by a different embedding model is an error.
func NewEngine(ctx context.Context, emb embedding.Embedder, catalogPath, indexDir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		embedder:    emb,
		catalogPath: catalogPath,
		indexDir:    indexDir,
		topK:        defaultTopK,
		batchSize:   defaultBatchSize,
		outputDir:   "outputs",
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	var (
		idx *index.Index
		err = index.ErrIndexNotFound
	)
	if !e.forceBuild {
		idx, err = index.Load(ctx, indexDir)
	}
	switch {
	case err == nil:
		if err := e.checkManifest(idx.Manifest()); err != nil {
			_ = idx.Close()
			return nil, err
		}
		e.logger.Info("loaded index",
			zap.String("dir", indexDir),
			zap.Int("entries", idx.Size()),
			zap.String("model", idx.Manifest().ModelID))
	case errors.Is(err, index.ErrIndexNotFound):
		e.logger.Info("index not found, building", zap.String("dir", indexDir), zap.String("catalog", catalogPath))
		e.state.Store(int32(StateBuilding))
		idx, err = e.build(ctx)
		if err != nil {
			e.state.Store(int32(StateUninitialized))
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	e.index.Store(idx)
	e.state.Store(int32(StateReady))
	return e, nil
}

func (e *Engine) checkManifest(m index.Manifest) error {
	if m.Dimensions != e.embedder.Dimensions() {
		return fmt.Errorf("index dimension %d does not match embedder dimension %d; rebuild the index", m.Dimensions, e.embedder.Dimensions())
	}
	if m.ModelID != e.embedder.ModelID() {
		return fmt.Errorf("index was built with model %q but embedder is %q; rebuild the index", m.ModelID, e.embedder.ModelID())
	}
	return nil
}

// build loads the catalog, embeds it and persists a new index.
func (e *Engine) build(ctx context.Context) (*index.Index, error) {
	start := time.Now()
	entries, err := catalog.Load(e.catalogPath)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(entries))
	for i := 0; i < len(entries); i += e.batchSize {
		end := min(i+e.batchSize, len(entries))
		texts := make([]string, 0, end-i)
		for _, entry := range entries[i:end] {
			texts = append(texts, entry.CombinedText)
		}
		batch, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed catalog rows %d-%d: %w", i, end, err)
		}
		vectors = append(vectors, batch...)
	}

	idx, err := index.Build(ctx, vectors, entries, index.BuildOptions{
		IndexType:  e.indexType,
		ModelID:    e.embedder.ModelID(),
		Dimensions: e.embedder.Dimensions(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	if err := idx.Persist(ctx, e.indexDir); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to persist index: %w", err)
	}
	e.logger.Info("built index",
		zap.Int("entries", idx.Size()),
		zap.String("dir", e.indexDir),
		zap.Duration("took", time.Since(start)))
	return idx, nil
}

// Rebuild re-reads the catalog, builds and persists a new index and swaps it in.
// Queries keep using the previous index until the swap; searches already running
// against it finish before its vectors are freed.
func (e *Engine) Rebuild(ctx context.Context) error {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	idx, err := e.build(ctx)
	if err != nil {
		return err
	}
	old := e.index.Swap(idx)
	e.state.Store(int32(StateReady))
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Index returns the current index, or nil before the engine is ready.
func (e *Engine) Index() *index.Index {
	return e.index.Load()
}

// Search embeds query and returns up to k nearest catalog entries, closest first.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]index.Hit, error) {
	idx, err := e.acquire()
	if err != nil {
		return nil, err
	}
	defer func() { _ = idx.Release() }()
	if k <= 0 {
		return []index.Hit{}, nil
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return idx.Search(ctx, vec, k)
}

// acquire returns the current index with a reader reference held. An index that
// was swapped out and drained between the load and the acquire is skipped.
func (e *Engine) acquire() (*index.Index, error) {
	for {
		idx := e.index.Load()
		if idx == nil {
			return nil, ErrNotReady
		}
		if idx.Acquire() {
			return idx, nil
		}
	}
}

// Recommend retrieves the top entries for query and returns a generated recommendation,
// or the fallback listing when no generator is configured or generation fails.
func (e *Engine) Recommend(ctx context.Context, query string) (*models.Recommendation, error) {
	hits, err := e.Search(ctx, query, e.topK)
	if err != nil {
		return nil, err
	}
	rec := &models.Recommendation{Query: query, Entries: RankedEntries(hits)}
	if len(hits) == 0 {
		rec.Source = models.SourceEmpty
		rec.Text = NoResultsMessage
		return rec, nil
	}

	if text, ok := e.generate(ctx, query, hits); ok {
		rec.Source = models.SourceGenerated
		rec.Text = text
		return rec, nil
	}

	text, records := FormatFallback(hits)
	if err := WriteOutputs(e.outputDir, records); err != nil {
		e.logger.Error("failed to write recommendation outputs", zap.String("dir", e.outputDir), zap.Error(err))
	}
	rec.Source = models.SourceFallback
	rec.Text = text
	return rec, nil
}

// generate runs the generation stage. ok is false when there is no generator or it failed.
func (e *Engine) generate(ctx context.Context, query string, hits []index.Hit) (string, bool) {
	if e.generator == nil {
		return "", false
	}
	text, err := e.generator.GenerateContent(ctx, BuildPrompt(query, BuildContext(hits)))
	if err != nil {
		e.logger.Warn("generation failed, using fallback listing",
			zap.String("model", e.generator.Model()),
			zap.Bool("rate_limited", errors.Is(err, llm.ErrRateLimited)),
			zap.Error(err))
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// TopK returns the retrieval depth used by Recommend.
func (e *Engine) TopK() int {
	return e.topK
}

// Close releases the index and the embedder.
func (e *Engine) Close() error {
	var errs []error
	if idx := e.index.Swap(nil); idx != nil {
		errs = append(errs, idx.Close())
	}
	errs = append(errs, e.embedder.Close())
	e.state.Store(int32(StateUninitialized))
	return errors.Join(errs...)
}

// RankedEntries converts hits to ranked entries, rank starting at 1.
func RankedEntries(hits []index.Hit) []models.RankedEntry {
	out := make([]models.RankedEntry, len(hits))
	for i, h := range hits {
		out[i] = models.RankedEntry{Entry: h.Entry, Distance: h.Distance, Rank: i + 1}
	}
	return out
}
