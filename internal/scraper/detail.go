package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var detailDurationRe = regexp.MustCompile(`(\d+)\s*(min|minute)`)

// ParseDuration scans the product detail sections of a page for the first
// "<n> min" mention and returns it as "<n> minutes".
func ParseDuration(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	var found string
	doc.Find("div.product-detail__section").EachWithBreak(func(_ int, sec *goquery.Selection) bool {
		text := strings.ToLower(strings.Join(strings.Fields(sec.Text()), " "))
		if m := detailDurationRe.FindStringSubmatch(text); m != nil {
			found = m[1] + " minutes"
			return false
		}
		return true
	})
	return found, found != ""
}

// Validate reports whether count reaches the expected catalog size.
func Validate(count, want int) bool {
	return count >= want
}
