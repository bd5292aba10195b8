package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/hyperjump/skillrec/internal/storage"
	"github.com/hyperjump/skillrec/internal/vector"
)

const (
	vectorsFile = "vectors.bin"
	catalogFile = "catalog.db"

	metaModelID    = "model_id"
	metaDimensions = "dimensions"
	metaCount      = "count"
	metaIndexType  = "index_type"
	metaCreatedAt  = "created_at"

	lockTimeout = 30 * time.Second
)

// Exists reports whether dir holds a persisted index.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, catalogFile))
	return err == nil
}

// Persist writes the index to dir, replacing any previous contents. Files are written
// to a sibling directory first and swapped in, so readers never see a partial index.
func (idx *Index) Persist(ctx context.Context, dir string) error {
	unlock, err := acquireLock(ctx, dir)
	if err != nil {
		return err
	}
	defer unlock()

	tmp := dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("failed to clear staging dir: %w", err)
	}
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	if err := idx.writeTo(ctx, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if err := swapInto(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	return nil
}

// rename is replaced in tests to simulate filesystem failures.
var rename = os.Rename

// swapInto moves staged into dir. A previous index is kept as a backup until the
// move succeeds and restored if it fails.
func swapInto(staged, dir string) error {
	backup := dir + ".bak"
	if err := os.RemoveAll(backup); err != nil {
		return fmt.Errorf("failed to clear backup dir: %w", err)
	}
	hadPrevious := true
	if err := rename(dir, backup); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to back up previous index: %w", err)
		}
		hadPrevious = false
	}
	if err := rename(staged, dir); err != nil {
		if hadPrevious {
			_ = rename(backup, dir)
		}
		return fmt.Errorf("failed to move index into place: %w", err)
	}
	if hadPrevious {
		_ = os.RemoveAll(backup)
	}
	return nil
}

func (idx *Index) writeTo(ctx context.Context, dir string) error {
	if err := idx.vectors.Save(filepath.Join(dir, vectorsFile)); err != nil {
		return fmt.Errorf("failed to save vectors: %w", err)
	}
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, catalogFile))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ReplaceEntries(ctx, idx.entries); err != nil {
		return fmt.Errorf("failed to save entries: %w", err)
	}
	m := idx.manifest
	meta := map[string]string{
		metaModelID:    m.ModelID,
		metaDimensions: strconv.Itoa(m.Dimensions),
		metaCount:      strconv.Itoa(m.Count),
		metaIndexType:  m.IndexType,
		metaCreatedAt:  m.CreatedAt.Format(time.RFC3339Nano),
	}
	for k, v := range meta {
		if err := store.SetMeta(ctx, k, v); err != nil {
			return fmt.Errorf("failed to save %s: %w", k, err)
		}
	}
	return store.Close()
}

// Load reads an index written by Persist. It returns ErrIndexNotFound when dir holds
// no index and ErrCorrupt when its parts disagree.
func Load(ctx context.Context, dir string) (*Index, error) {
	if !Exists(dir) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, dir)
	}
	unlock, err := acquireLock(ctx, dir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	store, err := storage.OpenSQLiteStorage(filepath.Join(dir, catalogFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer store.Close()

	m, err := readManifest(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	entries, err := store.AllEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read entries: %v", ErrCorrupt, err)
	}
	if len(entries) != m.Count {
		return nil, fmt.Errorf("%w: manifest count %d, %d entries", ErrCorrupt, m.Count, len(entries))
	}

	vi, err := vector.NewVectorIndex(m.IndexType, m.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	if err := vi.Load(filepath.Join(dir, vectorsFile)); err != nil {
		_ = vi.Close()
		if errors.Is(err, vector.ErrDimensionMismatch) {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return nil, fmt.Errorf("%w: load vectors: %v", ErrCorrupt, err)
	}
	if vi.Size() != len(entries) {
		_ = vi.Close()
		return nil, fmt.Errorf("%w: %d vectors, %d entries", ErrCorrupt, vi.Size(), len(entries))
	}
	return newIndex(vi, entries, m), nil
}

func readManifest(ctx context.Context, store storage.Storage) (Manifest, error) {
	var m Manifest
	values := make(map[string]string)
	for _, k := range []string{metaModelID, metaDimensions, metaCount, metaIndexType, metaCreatedAt} {
		v, err := store.GetMeta(ctx, k)
		if err != nil {
			return m, err
		}
		values[k] = v
	}
	dims, err := strconv.Atoi(values[metaDimensions])
	if err != nil {
		return m, fmt.Errorf("bad dimensions %q", values[metaDimensions])
	}
	count, err := strconv.Atoi(values[metaCount])
	if err != nil {
		return m, fmt.Errorf("bad count %q", values[metaCount])
	}
	created, err := time.Parse(time.RFC3339Nano, values[metaCreatedAt])
	if err != nil {
		return m, fmt.Errorf("bad created_at %q", values[metaCreatedAt])
	}
	return Manifest{
		ModelID:    values[metaModelID],
		Dimensions: dims,
		Count:      count,
		IndexType:  values[metaIndexType],
		CreatedAt:  created,
	}, nil
}

// acquireLock takes the inter-process lock guarding dir.
func acquireLock(ctx context.Context, dir string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index parent dir: %w", err)
	}
	lockPath := dir + ".lock"
	l := flock.New(lockPath)
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := l.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("cannot acquire index lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("index %s is locked by another process", dir)
	}
	return func() { _ = l.Unlock() }, nil
}

// OpenCatalog opens the entry table of the index persisted in dir. The caller closes it.
func OpenCatalog(dir string) (*storage.SQLiteStorage, error) {
	if !Exists(dir) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, dir)
	}
	return storage.OpenSQLiteStorage(filepath.Join(dir, catalogFile))
}
