package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func docxBytes(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(docxBody)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jd.txt")
	content := "Hiring a Java developer\n\n  who collaborates   with business teams.\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor(0).Extract(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Hiring a Java developer who collaborates with business teams."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtract_SizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jd.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("a", 64)), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewExtractor(10).Extract(path); err == nil {
		t.Error("expected error for oversized file")
	}
	if _, err := NewExtractor(64).Extract(path); err != nil {
		t.Errorf("file at the limit should be read: %v", err)
	}
}

func TestExtract_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewExtractor(0).Extract(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := NewExtractor(0).Extract(dir); err == nil {
		t.Error("expected error for directory")
	}
}

func TestExtractBytes_Plain(t *testing.T) {
	e := NewExtractor(0)
	got, err := e.ExtractBytes([]byte("analyst\xffrole"), ".txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "analyst�role" {
		t.Errorf("invalid UTF-8 should be replaced, got %q", got)
	}
	got, err = e.ExtractBytes([]byte("sales manager"), ".weird")
	if err != nil || got != "sales manager" {
		t.Errorf("unknown extension: got %q, %v", got, err)
	}
}

func TestExtractBytes_Empty(t *testing.T) {
	for _, content := range []string{"", "  \n\t "} {
		if _, err := NewExtractor(0).ExtractBytes([]byte(content), ".txt"); !errors.Is(err, ErrEmpty) {
			t.Errorf("%q: expected ErrEmpty, got %v", content, err)
		}
	}
}

func TestExtractBytes_DOCX(t *testing.T) {
	body := `<w:document><w:body>` +
		`<w:p w:rsidR="00A1"><w:r><w:t>Senior </w:t></w:r><w:r><w:t xml:space="preserve">Data Analyst</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>SQL &amp; Python</w:t></w:r></w:p>` +
		`<w:p><w:r><w:tab/></w:r></w:p>` +
		`</w:body></w:document>`
	got, err := NewExtractor(0).ExtractBytes(docxBytes(t, body), ".DOCX")
	if err != nil {
		t.Fatal(err)
	}
	if want := "Senior Data Analyst SQL & Python"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_DOCXErrors(t *testing.T) {
	e := NewExtractor(0)
	if _, err := e.ExtractBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if _, err := w.Create("word/other.xml"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ExtractBytes(buf.Bytes(), ".docx"); err == nil {
		t.Error("expected error when document body is missing")
	}
}

func TestExtractBytes_InvalidPDF(t *testing.T) {
	if _, err := NewExtractor(0).ExtractBytes([]byte("plain text, not a pdf"), ".pdf"); err == nil {
		t.Error("expected error for invalid pdf")
	}
}
