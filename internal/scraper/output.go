package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/skillrec/internal/catalog"
	"github.com/hyperjump/skillrec/internal/models"
)

// SaveLinks writes the listing results as indented JSON.
func SaveLinks(path string, items []Assessment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create links dir: %w", err)
	}
	if items == nil {
		items = []Assessment{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal links: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write links: %w", err)
	}
	return nil
}

// LoadLinks reads a file written by SaveLinks.
func LoadLinks(path string) ([]Assessment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}
	var items []Assessment
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse links: %w", err)
	}
	return items, nil
}

// SaveCatalog writes items as a catalog file readable by the catalog loader: JSON
// for a .json path, CSV otherwise.
func SaveCatalog(path string, items []Assessment) error {
	entries := make([]*models.CatalogEntry, len(items))
	for i, a := range items {
		entries[i] = a.Entry()
	}
	if err := catalog.Write(path, entries); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}
