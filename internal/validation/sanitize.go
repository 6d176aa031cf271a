package validation

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// StripMarkup removes every HTML tag from user text and trims it. Entities
// are decoded again so "R&D" stays "R&D".
func StripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// StripMarkupList applies StripMarkup to each entry and drops empties.
func StripMarkupList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = StripMarkup(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
