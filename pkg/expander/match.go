package expander

import (
	"strings"
	"unicode"
)

// Match is an activation key followed by the fragment typed after it.
// Position is the rune offset into the field value just past Key.
type Match struct {
	Text     string
	Key      string
	Position int
}

// Start returns the rune offset where the key begins.
func (m Match) Start() int {
	return m.Position - len([]rune(m.Key))
}

// End returns the rune offset just past the typed fragment.
func (m Match) End() int {
	return m.Position + len([]rune(m.Text))
}

// Find looks for key at the word that ends at cursor.
//
// Only the nearest occurrence of key before the cursor is considered. It
// matches when no space sits between it and the cursor and when the rune
// before it is absent, whitespace, '(' or '['. Offsets are in runes.
func Find(text, key string, cursor int) (Match, bool) {
	k := []rune(key)
	if len(k) == 0 || cursor <= 0 {
		return Match{}, false
	}
	runes := []rune(text)
	if cursor > len(runes) {
		cursor = len(runes)
	}

	at := lastIndex(runes, k, cursor-1)
	if at < 0 {
		return Match{}, false
	}
	// a key running past the cursor is not typed yet
	if at+len(k) > cursor {
		return Match{}, false
	}
	if space := lastIndex(runes, []rune{' '}, cursor-1); space >= at {
		return Match{}, false
	}
	if at > 0 && !isBoundary(runes[at-1]) {
		return Match{}, false
	}

	pos := at + len(k)
	return Match{
		Text:     string(runes[pos:cursor]),
		Key:      key,
		Position: pos,
	}, true
}

// FindFirst tries keys in order and returns the first match.
func FindFirst(text string, keys []string, cursor int) (Match, bool) {
	for _, key := range keys {
		if m, ok := Find(text, key, cursor); ok {
			return m, true
		}
	}
	return Match{}, false
}

// ParseKeys splits a space separated key list.
func ParseKeys(s string) []string {
	return strings.Fields(s)
}

func isBoundary(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == '['
}

// lastIndex returns the last index i <= from where needle starts in haystack.
func lastIndex(haystack, needle []rune, from int) int {
	if from > len(haystack)-len(needle) {
		from = len(haystack) - len(needle)
	}
	for i := from; i >= 0; i-- {
		if runesEqual(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
