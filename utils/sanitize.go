package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicy   = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans rich-text content (descriptions, reply bodies) to prevent XSS.
func Sanitize(input string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(input))
}

// SanitizePlain strips all markup; used for titles and media links.
func SanitizePlain(input string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(input))
}

// SanitizeTags cleans, trims and de-duplicates tags, dropping empty ones.
func SanitizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = SanitizePlain(t); t != "" {
			out = append(out, t)
		}
	}
	return UniqueStrings(out)
}
