package dictionary

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrDictionarySize is returned for chunk counts outside the available range.
var ErrDictionarySize = errors.New("dictionary: invalid dictionary size")

// RuntimeLoader grows and shrinks the loaded dictionary while serving.
type RuntimeLoader struct {
	loader *ChunkLoader
	mu     sync.Mutex
}

// NewRuntimeLoader creates a new runtime loader
func NewRuntimeLoader(loader *ChunkLoader) *RuntimeLoader {
	return &RuntimeLoader{loader: loader}
}

// AvailableChunkCount returns the number of chunk files on disk.
func (rl *RuntimeLoader) AvailableChunkCount() (int, error) {
	chunks, err := rl.loader.GetAvailable()
	if err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// LoadedChunkCount returns the number of chunks in memory.
func (rl *RuntimeLoader) LoadedChunkCount() int {
	return len(rl.loader.GetLoadedIDs())
}

// SetDictionarySize loads or evicts chunks until exactly target chunks,
// the lowest ids first, are in memory.
func (rl *RuntimeLoader) SetDictionarySize(target int) error {
	chunks, err := rl.loader.GetAvailable()
	if err != nil {
		return err
	}
	if target < 1 || target > len(chunks) {
		return fmt.Errorf("%w: %d chunks requested, %d available", ErrDictionarySize, target, len(chunks))
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	want := make(map[int]bool, target)
	for _, c := range chunks[:target] {
		want[c.ID] = true
	}

	loaded := rl.loader.GetLoadedIDs()
	log.Debugf("Setting dictionary size: current=%d chunks, target=%d chunks", len(loaded), target)

	for i := len(loaded) - 1; i >= 0; i-- {
		if id := loaded[i]; !want[id] {
			if err := rl.loader.Evict(id); err != nil {
				return err
			}
		}
	}
	for _, c := range chunks[:target] {
		if err := rl.loader.Load(c.ID); err != nil {
			return err
		}
	}
	return nil
}

// SizeOptions lists the dictionary sizes that can be selected.
func (rl *RuntimeLoader) SizeOptions() ([]SizeOption, error) {
	chunks, err := rl.loader.GetAvailable()
	if err != nil {
		return nil, err
	}

	options := make([]SizeOption, 0, len(chunks))
	total := 0
	for i, chunk := range chunks {
		total += chunk.WordCount
		options = append(options, SizeOption{
			ChunkCount: i + 1,
			WordCount:  total,
			SizeLabel:  fmt.Sprintf("%dK words", total/1000),
		})
	}
	return options, nil
}

// SizeOption represents a dictionary size option
type SizeOption struct {
	ChunkCount int    `msgpack:"chunk_count"`
	WordCount  int    `msgpack:"word_count"`
	SizeLabel  string `msgpack:"size_label"`
}
