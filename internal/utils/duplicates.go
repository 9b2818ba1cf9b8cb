package utils

import (
	"strings"
)

// SuggestionFilter drops case-insensitive duplicates from a result set.
// It is not safe for concurrent use.
type SuggestionFilter struct {
	seen map[string]bool
}

// NewSuggestionFilter creates a filter that already excludes the typed input
func NewSuggestionFilter(input string) *SuggestionFilter {
	f := &SuggestionFilter{seen: make(map[string]bool)}
	if input != "" {
		f.seen[strings.ToLower(input)] = true
	}
	return f
}

// ShouldInclude reports whether word is new, and marks it seen.
func (f *SuggestionFilter) ShouldInclude(word string) bool {
	lower := strings.ToLower(word)
	if f.seen[lower] {
		return false
	}
	f.seen[lower] = true
	return true
}
