package domain

import "strings"

// NormalizeLink trims raw and prefixes http:// when neither http:// nor
// https:// (in any case) starts it.
// Empty input stays empty.
//
// Examples:
//
//	"example.com"        -> "http://example.com"
//	"https://x.com/a?b"  -> "https://x.com/a?b"
//	"  "                 -> ""
func NormalizeLink(raw string) string {
	link := strings.TrimSpace(raw)
	if link == "" {
		return ""
	}
	lower := strings.ToLower(link)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return link
	}
	return "http://" + link
}
