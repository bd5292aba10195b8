package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/skillrec/internal/evaluation"
	"github.com/hyperjump/skillrec/internal/models"
	"go.uber.org/zap"
)

const testCatalog = `Solution Name,Link,Description,Test Type,Remote Testing,Adaptive/IRT,Duration
Verbal Reasoning Test,https://example.com/verbal,Verbal comprehension of written business passages,A,Yes,Yes,19
Numerical Reasoning Test,https://example.com/numerical,Numerical data interpretation from tables and charts,"A, K",Yes,No,25
Coding Challenge Python,https://example.com/python,Coding exercise in Python for backend developers,K,No,No,
`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "SKILLREC_CATALOG_PATH", "SKILLREC_EMBEDDING_MODEL", "SKILLREC_GEMINI_MODEL", "SKILLREC_TOP_K"} {
		t.Setenv(k, "")
	}
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "catalog.csv"), []byte(testCatalog), 0644); err != nil {
		t.Fatal(err)
	}
	config := `
debug: false
server:
  port: 9100
catalog:
  path: catalog.csv
embedding:
  provider: hash
  dimensions: 512
index:
  dir: index
recommend:
  top_k: 2
  output_dir: outputs
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfig_PrefersCwdConfig(t *testing.T) {
	clearEnv(t)
	dir := writeProject(t)
	t.Chdir(dir)

	cfg, path, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if path != defaultConfigFile {
		t.Errorf("expected %s to be loaded, got %q", defaultConfigFile, path)
	}
	if cfg.Server.Port != 9100 || cfg.Recommend.TopK != 2 {
		t.Errorf("config file not applied: port=%d top_k=%d", cfg.Server.Port, cfg.Recommend.TopK)
	}
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, path, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Errorf("expected defaults, got path %q", path)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
}

func TestLoadConfig_ExplicitPathMissing(t *testing.T) {
	clearEnv(t)
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestReadQuery(t *testing.T) {
	jd := filepath.Join(t.TempDir(), "jd.txt")
	if err := os.WriteFile(jd, []byte("Looking for a\n  Python developer\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		file    string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "args joined", args: []string{"java", "developer", " "}, want: "java developer"},
		{name: "file", file: jd, want: "Looking for a Python developer"},
		{name: "stdin", stdin: "  sales manager\n", want: "sales manager"},
		{name: "args and file", args: []string{"java"}, file: jd, wantErr: true},
		{name: "empty stdin", stdin: " \n", wantErr: true},
		{name: "missing file", file: filepath.Join(t.TempDir(), "missing.pdf"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readQuery(tt.args, tt.file, strings.NewReader(tt.stdin), false)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitializeComponents_BuildsIndex(t *testing.T) {
	clearEnv(t)
	dir := writeProject(t)
	t.Chdir(dir)

	cfg, _, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	engine, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	if engine.Index().Size() != 3 {
		t.Errorf("expected 3 indexed entries, got %d", engine.Index().Size())
	}
	if engine.TopK() != 2 {
		t.Errorf("expected top_k 2, got %d", engine.TopK())
	}
	rec, err := engine.Recommend(context.Background(), "python developer")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Source != models.SourceFallback {
		t.Errorf("expected fallback without an API key, got %s", rec.Source)
	}
	if _, err := os.Stat(filepath.Join(dir, "index")); err != nil {
		t.Errorf("index should be persisted: %v", err)
	}
}

func TestRunEvaluation(t *testing.T) {
	clearEnv(t)
	dir := writeProject(t)
	t.Chdir(dir)

	cfg, _, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	engine, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	outDir := filepath.Join(dir, "eval")
	var out bytes.Buffer
	for range 2 {
		out.Reset()
		if err := runEvaluation(context.Background(), engine, engine.Index().Entries(), outDir, []int{1, 3}, &out); err != nil {
			t.Fatal(err)
		}
	}
	if !strings.Contains(out.String(), "recall@1") || !strings.Contains(out.String(), "recall@3") {
		t.Errorf("unexpected output %q", out.String())
	}

	f, err := os.Open(filepath.Join(outDir, evaluation.ResultsFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// header plus title and description rows per k; a rerun replaces the file
	if len(rows) != 5 {
		t.Errorf("expected 5 rows, got %d: %v", len(rows), rows)
	}
	if rows[3][0] != "3" {
		t.Errorf("expected k=3 rows last, got %v", rows[3])
	}

	if err := runEvaluation(context.Background(), engine, engine.Index().Entries(), outDir, []int{0}, &out); err == nil {
		t.Error("expected error for k=0")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := loadConfig(path)
	if err != nil {
		t.Fatalf("written config should load: %v", err)
	}
	if cfg.Server.Port != 8000 || cfg.Recommend.TopK != 5 {
		t.Errorf("unexpected defaults: port=%d top_k=%d", cfg.Server.Port, cfg.Recommend.TopK)
	}
	if err := writeDefaultConfig(path, false); err == nil {
		t.Error("expected error when the file exists")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Errorf("force should overwrite: %v", err)
	}
}
