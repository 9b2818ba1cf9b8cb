// Package fuzzy corrects mistyped prefixes against a word list.
//
// Candidates must share the input's first letter and lie within
// MaxDistance edits. Among those, fewer edits win, then higher frequency.
package fuzzy

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// MaxDistance is the largest edit distance still considered a typo.
const MaxDistance = 2

// minCorrectLen keeps very short inputs from being rewritten.
const minCorrectLen = 2

// Matcher suggests corrections for misspelled words.
type Matcher struct {
	mu      sync.RWMutex
	freq    map[string]int
	byFirst map[rune][]string
}

// NewMatcher creates a matcher over words and their frequencies.
func NewMatcher(words map[string]int) *Matcher {
	m := &Matcher{
		freq:    make(map[string]int, len(words)),
		byFirst: make(map[rune][]string),
	}
	for w, f := range words {
		m.add(w, f)
	}
	return m
}

// Add inserts or updates a word.
func (m *Matcher) Add(word string, freq int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(word, freq)
}

// Remove deletes a word.
func (m *Matcher) Remove(word string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := strings.ToLower(word)
	if _, ok := m.freq[w]; !ok {
		return
	}
	delete(m.freq, w)
	r, _ := utf8.DecodeRuneInString(w)
	bucket := m.byFirst[r]
	for i, c := range bucket {
		if c == w {
			m.byFirst[r] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
}

// Len returns the number of known words.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.freq)
}

func (m *Matcher) add(word string, freq int) {
	w := strings.ToLower(word)
	if w == "" {
		return
	}
	if _, ok := m.freq[w]; !ok {
		r, _ := utf8.DecodeRuneInString(w)
		m.byFirst[r] = append(m.byFirst[r], w)
	}
	m.freq[w] = freq
}

type candidate struct {
	word string
	dist int
	freq int
}

// Correct returns the best correction for input and whether it differs
// from a known word. Unknown inputs with no close match come back as is.
func (m *Matcher) Correct(input string) (string, bool) {
	best := m.Candidates(input, 1)
	if len(best) == 0 {
		lower := strings.ToLower(input)
		m.mu.RLock()
		_, known := m.freq[lower]
		m.mu.RUnlock()
		if known {
			return lower, false
		}
		return input, false
	}
	return best[0], true
}

// Candidates returns up to limit corrections, best first. Known words and
// inputs shorter than two runes yield none.
func (m *Matcher) Candidates(input string, limit int) []string {
	if utf8.RuneCountInString(input) < minCorrectLen {
		return nil
	}
	lower := strings.ToLower(input)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.freq[lower]; ok {
		return nil
	}
	first, _ := utf8.DecodeRuneInString(lower)
	n := utf8.RuneCountInString(lower)

	var found []candidate
	for _, w := range m.byFirst[first] {
		if abs(utf8.RuneCountInString(w)-n) > MaxDistance {
			continue
		}
		if d := Distance(lower, w); d <= MaxDistance {
			found = append(found, candidate{word: w, dist: d, freq: m.freq[w]})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.freq != b.freq {
			return a.freq > b.freq
		}
		return a.word < b.word
	})

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.word
	}
	return out
}

// Distance returns the Levenshtein distance between a and b in runes.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
