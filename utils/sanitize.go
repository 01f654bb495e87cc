package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// catalog texts are plain text, so no markup survives
var sanitizer = bluemonday.StrictPolicy()

// SanitizeText strips all HTML from content and trims surrounding whitespace.
// Entities escaped by the sanitizer are decoded again so the stored text reads naturally.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(input)))
}
