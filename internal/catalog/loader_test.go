package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/skillrec/internal/models"
)

const sampleCSV = `Solution Name,Link,Description,Test Type,Remote Testing,Adaptive/IRT
Verbal Reasoning Test,https://example.com/verbal,"Reading comprehension. Approximate Completion Time in minutes = 19 Test Type: A",A,Yes,Yes
Numerical Reasoning Test,https://example.com/numerical,Working with numbers and data,"A, K",Yes,No
"Coding Challenge, Python",https://example.com/python,Write code,K,No,No
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func checkNonNull(t *testing.T, entries []*models.CatalogEntry) {
	t.Helper()
	for i, e := range entries {
		if e.ID == "" {
			t.Errorf("entry %d: empty ID", i)
		}
		if e.Duration == "" {
			t.Errorf("entry %d: duration should be a value or N/A", i)
		}
	}
}

func TestLoad_CSV(t *testing.T) {
	entries, err := Load(writeFile(t, "catalog.csv", sampleCSV))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	checkNonNull(t, entries)

	v := entries[0]
	if v.Name != "Verbal Reasoning Test" || v.URL != "https://example.com/verbal" {
		t.Errorf("unexpected first entry: %+v", v)
	}
	if v.Duration != "19" {
		t.Errorf("duration backfill: got %q", v.Duration)
	}
	if v.RemoteSupport != "Yes" || v.AdaptiveSupport != "Yes" {
		t.Errorf("support flags: %q %q", v.RemoteSupport, v.AdaptiveSupport)
	}
	if entries[1].Duration != models.NotAvailable {
		t.Errorf("expected N/A duration, got %q", entries[1].Duration)
	}
	if entries[1].TestType != "A, K" {
		t.Errorf("test type: got %q", entries[1].TestType)
	}
	if entries[2].CombinedText != "coding challenge python write code k" {
		t.Errorf("combined text: got %q", entries[2].CombinedText)
	}
}

func TestLoad_CaseInsensitiveFallbackAndMissingColumns(t *testing.T) {
	csv := "NAME,Description,Duration\nJava 8,Core Java,30\n,,\n"
	entries, err := Load(writeFile(t, "c.csv", csv))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "Java 8" || entries[0].Duration != "30" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
	if entries[0].URL != "" || entries[0].TestType != "" || entries[0].RemoteSupport != "" {
		t.Errorf("unmatched columns should be empty: %+v", entries[0])
	}
	if entries[1].Duration != models.NotAvailable {
		t.Errorf("blank row duration: got %q", entries[1].Duration)
	}
}

func TestLoad_JSON(t *testing.T) {
	js := `[
	  {"title": "OPQ32r", "content": "Personality questionnaire", "Type": ["P"], "Duration": 25, "remote_testing": true, "adaptive_irt": false},
	  {"name": "Verify G+", "description": "General ability. Approximate Completion Time in minutes = 36 minutes", "url": "https://example.com/g"}
	]`
	entries, err := Load(writeFile(t, "catalog.json", js))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	checkNonNull(t, entries)
	o := entries[0]
	if o.Name != "OPQ32r" || o.Description != "Personality questionnaire" || o.TestType != "P" {
		t.Errorf("unexpected entry: %+v", o)
	}
	if o.Duration != "25" || o.RemoteSupport != "Yes" || o.AdaptiveSupport != "No" {
		t.Errorf("unexpected scalar conversion: %+v", o)
	}
	if entries[1].Duration != "36" {
		t.Errorf("duration backfill: got %q", entries[1].Duration)
	}
}

func TestLoad_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Product Name", "Product Link", "Product Description", "Test Type", "Time"},
		{"Account Manager Solution", "https://example.com/am", "Sales role bundle", "C, P, A", "49"},
		{"Bookkeeping", "https://example.com/bk", "Accounting basics", "K", ""},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	entries, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "Account Manager Solution" || entries[0].Duration != "49" || entries[0].TestType != "C, P, A" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
	if entries[1].Duration != models.NotAvailable {
		t.Errorf("expected N/A, got %q", entries[1].Duration)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "bad.json", "{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := Load(writeFile(t, "empty.csv", "")); err == nil {
		t.Error("expected error for empty CSV")
	}
	if _, err := Load(writeFile(t, "bad.xlsx", "not a zip")); err == nil {
		t.Error("expected error for malformed spreadsheet")
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	entries, err := Parse([]byte(sampleCSV), ".csv")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"out.csv", "out.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			if err := Write(path, entries); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(got) != len(entries) {
				t.Fatalf("expected %d entries, got %d", len(entries), len(got))
			}
			for i := range got {
				if *got[i] != *entries[i] {
					t.Errorf("entry %d: got %+v, want %+v", i, got[i], entries[i])
				}
			}
		})
	}
}
