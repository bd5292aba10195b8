package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const docxBody = "word/document.xml"

var (
	// <w:t> runs may carry attributes such as xml:space="preserve".
	docxText      = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	docxParagraph = regexp.MustCompile(`</w:p>`)
)

// extractDOCX pulls the text runs out of word/document.xml, one line per paragraph.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	f, err := zr.Open(docxBody)
	if err != nil {
		return "", fmt.Errorf("failed to open docx body: %w", err)
	}
	defer f.Close()
	body, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read docx body: %w", err)
	}

	var b strings.Builder
	for _, para := range docxParagraph.Split(string(body), -1) {
		runs := docxText.FindAllStringSubmatch(para, -1)
		if len(runs) == 0 {
			continue
		}
		for _, run := range runs {
			b.WriteString(html.UnescapeString(run[1]))
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}
