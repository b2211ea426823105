// Package text extracts lexical signals from free text and formats descriptions for display.
package text

import (
	"regexp"
	"strings"
)

// DefaultMaxWords is the description length used when callers pass a non-positive limit.
const DefaultMaxWords = 50

// MinKeywordLen is the shortest token kept by ExtractKeywords; shorter tokens carry no signal.
const MinKeywordLen = 3

const ellipsis = "..."

var nonWord = regexp.MustCompile(`\W+`)

// ExtractKeywords lowercases text, splits it on runs of non-word characters,
// and keeps tokens of at least MinKeywordLen bytes, in input order.
// Duplicates are kept. Empty input yields an empty slice.
func ExtractKeywords(s string) []string {
	parts := nonWord.Split(strings.ToLower(s), -1)
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) >= MinKeywordLen {
			keywords = append(keywords, p)
		}
	}
	return keywords
}

// Tags dedupes keywords, keeping first occurrences, and caps the result at limit.
// Terms past the limit are dropped. limit <= 0 means no cap.
func Tags(keywords []string, limit int) []string {
	seen := make(map[string]struct{}, len(keywords))
	tags := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		tags = append(tags, kw)
		if limit > 0 && len(tags) == limit {
			break
		}
	}
	return tags
}

// NormalizeTag lowercases and trims a topical label.
func NormalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TrimDescription returns s unchanged when it has at most maxWords
// whitespace-separated words; otherwise the first maxWords words joined by
// single spaces, followed by an ellipsis.
func TrimDescription(s string, maxWords int) string {
	if s == "" {
		return ""
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + ellipsis
}

// JoinTags renders a tag set as the source text of a tag embedding.
// Ingestion and query time must agree on this format.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
