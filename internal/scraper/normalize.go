// internal/scraper/normalize.go
package scraper

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// NormalizeText collapses runs of whitespace into single spaces and trims
// leading and trailing whitespace. Non-whitespace characters pass through
// unmodified; the result is NFC-normalized so that visually identical
// multi-byte script text compares equal regardless of the source encoding's
// composition form.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	text = whitespaceRE.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	return norm.NFC.String(text)
}
