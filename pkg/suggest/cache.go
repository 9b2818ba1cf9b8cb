package suggest

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// HotCache keeps recently committed words so they rank ahead of the
// dictionary. The least recently used word is evicted when full.
type HotCache struct {
	mu          sync.Mutex
	hotTrie     *patricia.Trie
	accessTime  map[string]int64
	accessCount int64
	hits        int
	maxWords    int
}

func NewHotCache(maxWords int) *HotCache {
	return &HotCache{
		hotTrie:    patricia.NewTrie(),
		accessTime: make(map[string]int64, maxWords),
		maxWords:   maxWords,
	}
}

// Add inserts word or refreshes its score and recency.
func (hc *HotCache) Add(word string, score int) {
	if hc.maxWords <= 0 || word == "" {
		return
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if _, ok := hc.accessTime[word]; !ok && len(hc.accessTime) >= hc.maxWords {
		hc.evictLRU()
	}
	hc.hotTrie.Set(patricia.Prefix(word), score)
	hc.accessTime[word] = hc.nextAccessTime()
}

// Search returns cached words under lowerPrefix, most recent first, and
// marks them used.
func (hc *HotCache) Search(lowerPrefix string) []Suggestion {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	var results []Suggestion
	err := hc.hotTrie.VisitSubtree(patricia.Prefix(lowerPrefix), func(p patricia.Prefix, item patricia.Item) error {
		results = append(results, Suggestion{Word: string(p), Frequency: item.(int)})
		return nil
	})
	if err != nil {
		log.Errorf("Error searching hot cache: %v", err)
		return nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return hc.accessTime[results[i].Word] > hc.accessTime[results[j].Word]
	})
	for i := len(results) - 1; i >= 0; i-- {
		hc.accessTime[results[i].Word] = hc.nextAccessTime()
	}
	hc.hits += len(results)
	return results
}

// Len returns the number of cached words.
func (hc *HotCache) Len() int {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return len(hc.accessTime)
}

func (hc *HotCache) Stats() map[string]int {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	return map[string]int{
		"hotCacheWords": len(hc.accessTime),
		"maxHotWords":   hc.maxWords,
		"hotCacheHits":  hc.hits,
	}
}

func (hc *HotCache) nextAccessTime() int64 {
	hc.accessCount++
	return hc.accessCount
}

func (hc *HotCache) evictLRU() {
	var oldestWord string
	var oldestTime int64 = 1<<63 - 1

	for word, t := range hc.accessTime {
		if t < oldestTime {
			oldestTime = t
			oldestWord = word
		}
	}

	if oldestWord != "" {
		hc.hotTrie.Delete(patricia.Prefix(oldestWord))
		delete(hc.accessTime, oldestWord)
		log.Debugf("Evicted word '%s' from hot cache", oldestWord)
	}
}
