package suggest

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bastiangx/wordexpand/internal/utils"
	"github.com/bastiangx/wordexpand/pkg/fuzzy"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

type Suggestion struct {
	Word            string
	Frequency       int
	WasCorrected    bool   `msgpack:",omitempty"`
	OriginalPrefix  string `msgpack:",omitempty"`
	CorrectedPrefix string `msgpack:",omitempty"`
}

// Options tunes a Completer.
type Options struct {
	// MinFrequency is the lowest score returned for ordinary prefixes.
	MinFrequency int
	// MinFrequencyShortPrefix applies to prefixes of one or two runes and
	// to repetitive ones like "aaa".
	MinFrequencyShortPrefix int
	// HotWords caps the recently committed words cache. Zero disables it.
	HotWords int
	// Fuzzy retries a prefix with no results after correcting a typo.
	Fuzzy bool
}

// DefaultOptions returns the thresholds wordserve ships with.
func DefaultOptions() Options {
	return Options{
		MinFrequency:            20,
		MinFrequencyShortPrefix: 24,
		HotWords:                2000,
		Fuzzy:                   true,
	}
}

// Completer is a concurrency-safe word index. It implements
// dictionary.Sink so loaders can feed it directly.
type Completer struct {
	mu           sync.RWMutex
	trie         *patricia.Trie
	totalWords   int
	maxFrequency int

	opts     Options
	hotCache *HotCache
	matcher  *fuzzy.Matcher
}

var _ ICompleter = (*Completer)(nil)

func NewCompleter(opts Options) *Completer {
	c := &Completer{
		trie: patricia.NewTrie(),
		opts: opts,
	}
	if opts.HotWords > 0 {
		c.hotCache = NewHotCache(opts.HotWords)
	}
	if opts.Fuzzy {
		c.matcher = fuzzy.NewMatcher(nil)
	}
	return c
}

// AddWord inserts word or replaces its score.
func (c *Completer) AddWord(word string, score int) {
	lower := strings.ToLower(word)
	if lower == "" {
		return
	}

	c.mu.Lock()
	if c.trie.Get(patricia.Prefix(lower)) == nil {
		c.totalWords++
	}
	c.trie.Set(patricia.Prefix(lower), score)
	if score > c.maxFrequency {
		c.maxFrequency = score
	}
	c.mu.Unlock()

	if c.matcher != nil {
		c.matcher.Add(lower, score)
	}
}

// RemoveWord deletes word from the index.
func (c *Completer) RemoveWord(word string) {
	lower := strings.ToLower(word)

	c.mu.Lock()
	if c.trie.Delete(patricia.Prefix(lower)) {
		c.totalWords--
	}
	c.mu.Unlock()

	if c.matcher != nil {
		c.matcher.Remove(lower)
	}
}

// Len returns the number of indexed words.
func (c *Completer) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalWords
}

// Complete returns up to limit words starting with prefix, excluding the
// prefix itself. Recently remembered words come first, then dictionary
// words by score. The typed capitalisation is carried onto each word.
// When nothing matches and fuzzy correction is on, the corrected prefix is
// searched instead and its results are flagged.
func (c *Completer) Complete(prefix string, limit int) []Suggestion {
	lower, caps := utils.ProcessCapitals(prefix)
	if lower == "" {
		return nil
	}

	results := c.complete(lower, lower, caps, limit)
	if len(results) > 0 || c.matcher == nil {
		return results
	}

	corrected, ok := c.matcher.Correct(lower)
	if !ok {
		return nil
	}
	log.Debugf("Correcting prefix %q to %q", prefix, corrected)
	results = c.complete(corrected, lower, caps, limit)
	for i := range results {
		results[i].WasCorrected = true
		results[i].OriginalPrefix = prefix
		results[i].CorrectedPrefix = corrected
	}
	return results
}

func (c *Completer) complete(lookup, exclude string, caps utils.CapitalInfo, limit int) []Suggestion {
	threshold := c.opts.MinFrequency
	if utf8.RuneCountInString(lookup) <= 2 || utils.IsRepetitive(lookup) {
		threshold = c.opts.MinFrequencyShortPrefix
	}

	filter := utils.NewSuggestionFilter(exclude)
	var out []Suggestion
	add := func(s Suggestion) bool {
		if !filter.ShouldInclude(s.Word) {
			return true
		}
		s.Word = utils.ApplyCapitals(s.Word, caps)
		out = append(out, s)
		return limit <= 0 || len(out) < limit
	}

	if c.hotCache != nil {
		for _, s := range c.hotCache.Search(lookup) {
			if !add(s) {
				return out
			}
		}
	}

	c.mu.RLock()
	found := searchTrie(c.trie, lookup, threshold)
	c.mu.RUnlock()

	for _, s := range found {
		if !add(s) {
			break
		}
	}
	return out
}

// Remember moves word to the front of future completions.
func (c *Completer) Remember(word string) {
	if c.hotCache == nil {
		return
	}
	lower := strings.ToLower(word)
	score := c.opts.MinFrequency

	c.mu.RLock()
	if item, ok := c.trie.Get(patricia.Prefix(lower)).(int); ok {
		score = item
	}
	c.mu.RUnlock()

	c.hotCache.Add(lower, score)
}

// Suggest implements Source.
func (c *Completer) Suggest(ctx context.Context, prefix string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Entries(c.Complete(prefix, limit)), nil
}

// Entries converts suggestions to popup rows.
func Entries(suggestions []Suggestion) []Entry {
	entries := make([]Entry, len(suggestions))
	for i, s := range suggestions {
		entries[i] = Entry{Label: s.Word, Value: s.Word, Score: s.Frequency}
		if s.WasCorrected {
			entries[i].Detail = "for " + s.OriginalPrefix
		}
	}
	return entries
}

func (c *Completer) Stats() map[string]int {
	c.mu.RLock()
	stats := map[string]int{
		"totalWords":   c.totalWords,
		"maxFrequency": c.maxFrequency,
	}
	c.mu.RUnlock()

	if c.hotCache != nil {
		for k, v := range c.hotCache.Stats() {
			stats[k] = v
		}
	}
	return stats
}
