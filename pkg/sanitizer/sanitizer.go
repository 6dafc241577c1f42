// Package sanitizer cleans text extracted from untrusted HTML.
package sanitizer

import (
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var strictPolicy = bluemonday.StrictPolicy()

// StripTags removes all HTML/XML tags from the input and returns the
// concatenated text content. Whitespace between text nodes is collapsed
// to single spaces.
//
// Note: this is a content-cleaning helper, not an XSS defense; use
// SanitizeText for untrusted output.
func StripTags(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var parts []string

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			if tokenizer.Err() == io.EOF {
				break
			}
			return ""
		}
		if tt == html.TextToken {
			if text := strings.TrimSpace(tokenizer.Token().Data); text != "" {
				parts = append(parts, text)
			}
		}
	}

	return strings.Join(parts, " ")
}

// SanitizeText strips every element and attribute from the input and
// unescapes the remaining entities, leaving plain text that is safe to
// hand to API clients.
func SanitizeText(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}
