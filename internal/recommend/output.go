package recommend

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Audit file names written on the fallback path.
const (
	OutputJSON = "output.json"
	OutputCSV  = "output.csv"
)

var outputColumns = []string{"name", "url", "description", "test_type", "remote_support", "adaptive_support", "duration"}

// WriteOutputs overwrites dir/output.json and dir/output.csv with records.
func WriteOutputs(dir string, records []Record) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, OutputJSON), records); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, OutputCSV), records)
}

func writeJSON(path string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(outputColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		row := []string{r.Name, r.URL, r.Description, strings.Join(r.TestType, ", "), r.RemoteSupport, r.AdaptiveSupport, r.Duration}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}
