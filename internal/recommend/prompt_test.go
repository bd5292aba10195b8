package recommend

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/skillrec/internal/index"
	"github.com/hyperjump/skillrec/internal/models"
)

func sampleHits() []index.Hit {
	return []index.Hit{
		{Entry: &models.CatalogEntry{
			Name: "Numerical Reasoning Test", URL: "https://example.com/numerical",
			Description: "Numbers", TestType: "A, K", Duration: "25",
			RemoteSupport: "Yes", AdaptiveSupport: "No",
		}},
		{Entry: &models.CatalogEntry{Name: "Coding Challenge", Duration: models.NotAvailable}},
	}
}

func TestBuildContext(t *testing.T) {
	ctx := BuildContext(sampleHits())
	blocks := strings.Split(ctx, "\n---\n")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d:\n%s", len(blocks), ctx)
	}
	want := "Name: Numerical Reasoning Test\nTest Type: A, K\nDescription: Numbers\nRemote Testing: Yes\nAdaptive/IRT: No\nDuration: 25\n"
	if blocks[0] != want {
		t.Errorf("first block:\ngot  %q\nwant %q", blocks[0], want)
	}
	if !strings.Contains(blocks[1], "Description: N/A") {
		t.Errorf("missing fields should render as N/A: %q", blocks[1])
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("java developer", "Name: X")
	if !strings.Contains(p, "Context:\nName: X\n") {
		t.Error("prompt should embed the context")
	}
	if !strings.Contains(p, "User Request: java developer") {
		t.Error("prompt should embed the query")
	}
	if !strings.Contains(p, "Recommended Assessments") {
		t.Error("prompt should describe the output format")
	}
}

func TestDisplayDuration(t *testing.T) {
	tests := []struct{ in, want string }{
		{"30", "30 minutes"},
		{"30 minutes", "30 minutes"},
		{"", "N/A"},
		{"N/A", "N/A"},
	}
	for _, tt := range tests {
		if got := DisplayDuration(tt.in); got != tt.want {
			t.Errorf("DisplayDuration(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatFallback(t *testing.T) {
	text, records := FormatFallback(sampleHits())
	if !strings.HasPrefix(text, FallbackHeader) {
		t.Error("missing header")
	}
	for _, s := range []string{
		"1. Numerical Reasoning Test\nTest Type: A, K",
		"Duration: 25 minutes",
		"2. Coding Challenge",
		"Backend JSON (API response example)",
		`"test_type": [`,
	} {
		if !strings.Contains(text, s) {
			t.Errorf("fallback missing %q", s)
		}
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if got := records[0].TestType; len(got) != 2 || got[0] != "A" || got[1] != "K" {
		t.Errorf("test types: %v", got)
	}
	if records[1].URL != models.NotAvailable {
		t.Errorf("missing url should be N/A, got %q", records[1].URL)
	}
}

func TestWriteOutputs_Overwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	_, records := FormatFallback(sampleHits())
	if err := WriteOutputs(dir, records); err != nil {
		t.Fatal(err)
	}
	if err := WriteOutputs(dir, records[:1]); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, OutputJSON))
	if err != nil {
		t.Fatal(err)
	}
	var got []Record
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Numerical Reasoning Test" {
		t.Errorf("json not overwritten: %+v", got)
	}

	f, err := os.Open(filepath.Join(dir, OutputCSV))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d rows", len(rows))
	}
	if rows[0][0] != "name" || rows[1][3] != "A, K" {
		t.Errorf("unexpected csv: %v", rows)
	}
}
