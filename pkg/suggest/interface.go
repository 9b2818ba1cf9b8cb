// Package suggest completes typed prefixes from a word dictionary and
// offers the results to an expander controller.
package suggest

import "context"

// Entry is one popup row.
type Entry struct {
	// Label is what the popup shows.
	Label string
	// Value replaces the typed fragment on commit.
	Value string
	// Detail is optional secondary text.
	Detail string
	Score  int
}

// Source answers prefix queries. Implementations must honour ctx.
type Source interface {
	Suggest(ctx context.Context, prefix string, limit int) ([]Entry, error)
}

// Rememberer is implemented by sources that learn from committed words.
type Rememberer interface {
	Remember(word string)
}

// ICompleter defines the interface for word completion engines
type ICompleter interface {
	Source
	Rememberer

	// Complete returns up to limit suggestions for prefix.
	Complete(prefix string, limit int) []Suggestion
	AddWord(word string, score int)
	RemoveWord(word string)
	Stats() map[string]int
}
