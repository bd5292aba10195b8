package catalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/skillrec/internal/models"
)

// Load reads the catalog at path and returns one entry per data row.
// The format is chosen by extension: .json, .xlsx/.xls, anything else is read as CSV.
func Load(path string) ([]*models.CatalogEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	entries, err := Parse(content, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes catalog content for the given extension (with leading dot).
func Parse(content []byte, ext string) ([]*models.CatalogEntry, error) {
	var (
		headers []string
		rows    [][]string
		err     error
	)
	switch ext {
	case ".json":
		return parseJSON(content)
	case ".xlsx", ".xls", ".xlsm":
		headers, rows, err = readSpreadsheet(content)
	default:
		headers, rows, err = readCSV(content)
	}
	if err != nil {
		return nil, err
	}
	return buildEntries(headers, rows), nil
}

func buildEntries(headers []string, rows [][]string) []*models.CatalogEntry {
	mapping := MapColumns(headers)
	field := func(row []string, col string) string {
		i, ok := mapping[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	entries := make([]*models.CatalogEntry, 0, len(rows))
	for _, row := range rows {
		e := &models.CatalogEntry{
			Name:            field(row, ColName),
			Description:     field(row, ColDescription),
			TestType:        field(row, ColTestType),
			URL:             field(row, ColURL),
			Duration:        field(row, ColDuration),
			RemoteSupport:   field(row, ColRemoteSupport),
			AdaptiveSupport: field(row, ColAdaptiveSupport),
		}
		backfillDuration(e)
		e.Finalize()
		entries = append(entries, e)
	}
	return entries
}

func readCSV(content []byte) ([]string, [][]string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty CSV: no header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV header: %w", err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV rows: %w", err)
	}
	return headers, rows, nil
}

func readSpreadsheet(content []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("spreadsheet has no sheets")
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("sheet %q has no header row", sheets[0])
	}
	return all[0], all[1:], nil
}

// parseJSON decodes an array of objects. Each object is mapped on its own keys, so
// records exported with different header spellings can share one file.
func parseJSON(content []byte) ([]*models.CatalogEntry, error) {
	var records []map[string]any
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("decode JSON catalog: %w", err)
	}

	entries := make([]*models.CatalogEntry, 0, len(records))
	for _, rec := range records {
		headers := sortedKeys(rec)
		row := make([]string, len(headers))
		for i, k := range headers {
			row[i] = jsonString(rec[k])
		}
		entries = append(entries, buildEntries(headers, [][]string{row})...)
	}
	return entries, nil
}

func jsonString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := jsonString(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
