// Package storage persists catalog entries and index metadata.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/skillrec/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Storage defines catalog entry persistence. Entries keep the position they were
// stored at, which is also their position in the vector index.
type Storage interface {
	ReplaceEntries(ctx context.Context, entries []*models.CatalogEntry) error
	GetEntry(ctx context.Context, id string) (*models.CatalogEntry, error)
	ListEntries(ctx context.Context, offset, limit int) ([]*models.CatalogEntry, error)
	AllEntries(ctx context.Context) ([]*models.CatalogEntry, error)
	CountEntries(ctx context.Context) (int64, error)

	SetMeta(ctx context.Context, key, value string) error
	GetMeta(ctx context.Context, key string) (string, error)

	Close() error
}
