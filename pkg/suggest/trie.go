package suggest

import (
	"sort"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// searchTrie collects the words under lowerPrefix scoring at least
// minThreshold, highest score first.
func searchTrie(trie *patricia.Trie, lowerPrefix string, minThreshold int) []Suggestion {
	var suggestions []Suggestion

	err := trie.VisitSubtree(patricia.Prefix(lowerPrefix), func(p patricia.Prefix, item patricia.Item) error {
		freq, ok := item.(int)
		if !ok {
			log.Errorf("Unknown item type: %T for word %s", item, p)
			return nil
		}
		if freq < minThreshold {
			return nil
		}
		suggestions = append(suggestions, Suggestion{Word: string(p), Frequency: freq})
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting trie subtree: %v", err)
		return nil
	}

	sort.Slice(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.Word < b.Word
	})
	return suggestions
}
