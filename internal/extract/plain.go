package extract

import (
	"strings"
	"unicode/utf8"
)

func extractPlain(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return strings.ToValidUTF8(string(content), "�")
}
