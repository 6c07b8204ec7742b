// Package sanitize strips markup from user-submitted plain-text fields.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy removes all HTML tags and attributes.
var strictPolicy = bluemonday.StrictPolicy()

// Text strips every HTML tag from input and trims it. Entities are decoded
// before sanitizing, so escaped markup is stripped like literal markup and
// the result is HTML-escaped text.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(strictPolicy.Sanitize(html.UnescapeString(input)))
}

// Fields applies Text to each referenced string in place.
func Fields(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = Text(*f)
		}
	}
}
