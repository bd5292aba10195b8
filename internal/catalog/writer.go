package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/skillrec/internal/models"
)

// Write stores entries at path as JSON (.json) or CSV (anything else) using the
// canonical column names, creating parent directories as needed.
func Write(path string, entries []*models.CatalogEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create catalog %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		return f.Close()
	}

	w := csv.NewWriter(f)
	if err := w.Write(CanonicalColumns); err != nil {
		return fmt.Errorf("failed to write catalog header: %w", err)
	}
	for _, e := range entries {
		if err := w.Write(Row(e)); err != nil {
			return fmt.Errorf("failed to write catalog row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush catalog: %w", err)
	}
	return f.Close()
}

// Row returns e's fields in CanonicalColumns order.
func Row(e *models.CatalogEntry) []string {
	return []string{e.Name, e.URL, e.Description, e.TestType, e.Duration, e.RemoteSupport, e.AdaptiveSupport}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
