package dictionary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// ErrNoChunks is returned when a directory holds no dict_*.bin files.
	ErrNoChunks = errors.New("dictionary: no chunk files found")
	// ErrNotLoaded is returned when unloading a chunk that is not in memory.
	ErrNotLoaded = errors.New("dictionary: chunk not loaded")
	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("dictionary: loader stopped")
)

// Sink receives words as chunks are loaded and unloaded.
type Sink interface {
	AddWord(word string, score int)
	RemoveWord(word string)
}

// ChunkLoader lazily loads dictionary chunks into a Sink.
type ChunkLoader struct {
	dirPath      string
	maxWords     int
	sink         Sink
	loadedChunks map[int]bool
	chunkWords   map[int][]string
	totalWords   int
	maxFrequency int
	mu           sync.RWMutex
	loadingCh    chan int
	done         chan struct{}
	stopOnce     sync.Once
	startOnce    sync.Once
	pending      sync.WaitGroup
	errorCount   map[int]int
	maxRetries   int
	retryDelay   time.Duration
}

// ChunkInfo contains metadata about a chunk file
type ChunkInfo struct {
	ID        int
	Filename  string
	WordCount int
}

// LoaderStats provides statistics about the loading process
type LoaderStats struct {
	LoadedWords     int
	LoadedChunks    int
	AvailableChunks int
	MaxFrequency    int
	IsLoading       bool
}

// NewChunkLoader creates a loader over dirPath. maxWords caps the words
// queued at start; zero loads every chunk.
func NewChunkLoader(dirPath string, maxWords int, sink Sink) *ChunkLoader {
	return &ChunkLoader{
		dirPath:      dirPath,
		maxWords:     maxWords,
		sink:         sink,
		loadedChunks: make(map[int]bool),
		chunkWords:   make(map[int][]string),
		loadingCh:    make(chan int, 16),
		done:         make(chan struct{}),
		errorCount:   make(map[int]int),
		maxRetries:   3,
		retryDelay:   time.Second,
	}
}

// ChunkName returns the file name of chunk id.
func ChunkName(id int) string {
	return fmt.Sprintf("dict_%04d.bin", id)
}

// GetAvailable scans the directory for chunk files, ordered by id.
func (cl *ChunkLoader) GetAvailable() ([]ChunkInfo, error) {
	return scanChunks(cl.dirPath)
}

func scanChunks(dir string) ([]ChunkInfo, error) {
	files, err := filepath.Glob(filepath.Join(dir, "dict_*.bin"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan for chunk files: %w", err)
	}

	var chunks []ChunkInfo
	for _, file := range files {
		idStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), "dict_"), ".bin")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		count, err := chunkWordCount(file)
		if err != nil {
			log.Warnf("Failed to get word count for chunk %s: %v", file, err)
		}
		chunks = append(chunks, ChunkInfo{ID: id, Filename: file, WordCount: count})
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID < chunks[j].ID
	})
	return chunks, nil
}

// chunkWordCount reads the word count from a chunk file's header
func chunkWordCount(filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var wordCount int32
	if err := binary.Read(file, binary.LittleEndian, &wordCount); err != nil {
		return 0, err
	}
	return int(wordCount), nil
}

// StartLazyLoading starts the background loader and queues chunks until
// maxWords is covered. It returns before the chunks are read; use Wait to
// block until the queue drains.
func (cl *ChunkLoader) StartLazyLoading() error {
	chunks, err := cl.GetAvailable()
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w in %s", ErrNoChunks, cl.dirPath)
	}
	log.Debugf("Found %d chunk files", len(chunks))

	cl.startOnce.Do(func() { go cl.backgroundLoader() })

	queued := 0
	for _, chunk := range chunks {
		if cl.maxWords > 0 && queued >= cl.maxWords {
			break
		}
		if err := cl.enqueue(chunk.ID); err != nil {
			return err
		}
		queued += chunk.WordCount
	}
	return nil
}

func (cl *ChunkLoader) enqueue(id int) error {
	cl.pending.Add(1)
	select {
	case cl.loadingCh <- id:
		log.Debugf("Queued chunk %d for loading", id)
		return nil
	case <-cl.done:
		cl.pending.Done()
		return ErrStopped
	}
}

// Wait blocks until every queued chunk has loaded or given up.
func (cl *ChunkLoader) Wait() {
	cl.pending.Wait()
}

// backgroundLoader runs in a goroutine and loads chunks from the queue
func (cl *ChunkLoader) backgroundLoader() {
	for {
		select {
		case id := <-cl.loadingCh:
			cl.loadQueued(id)
		case <-cl.done:
			return
		}
	}
}

func (cl *ChunkLoader) loadQueued(id int) {
	err := cl.Load(id)
	if err == nil {
		log.Debugf("Successfully loaded chunk %d", id)
		cl.pending.Done()
		return
	}
	log.Errorf("Failed to load chunk %d: %v", id, err)

	cl.mu.Lock()
	cl.errorCount[id]++
	attempts := cl.errorCount[id]
	cl.mu.Unlock()

	if attempts >= cl.maxRetries {
		log.Errorf("Chunk %d failed %d times, giving up", id, attempts)
		cl.pending.Done()
		return
	}

	log.Debugf("Retrying chunk %d (attempt %d/%d)", id, attempts+1, cl.maxRetries)
	go func() {
		select {
		case <-time.After(time.Duration(attempts) * cl.retryDelay):
		case <-cl.done:
			cl.pending.Done()
			return
		}
		select {
		case cl.loadingCh <- id:
		case <-cl.done:
			cl.pending.Done()
		}
	}()
}

// Load reads chunk id into the sink. Loading a chunk twice is a no-op.
func (cl *ChunkLoader) Load(id int) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.loadedChunks[id] {
		return nil
	}

	filename := filepath.Join(cl.dirPath, ChunkName(id))
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open chunk file %s: %w", filename, err)
	}
	defer file.Close()

	var words []string
	err = ReadChunk(bufio.NewReader(file), func(word string, score int) {
		cl.sink.AddWord(word, score)
		words = append(words, word)
		if score > cl.maxFrequency {
			cl.maxFrequency = score
		}
	})
	if err != nil {
		for _, w := range words {
			cl.sink.RemoveWord(w)
		}
		return fmt.Errorf("chunk %d: %w", id, err)
	}

	cl.chunkWords[id] = words
	cl.loadedChunks[id] = true
	cl.totalWords += len(words)
	log.Debugf("Chunk %d loaded: %d words", id, len(words))
	return nil
}

// ReadChunk decodes a chunk stream, calling fn for each word with its
// score. Rank 1 scores highest.
func ReadChunk(r io.Reader, fn func(word string, score int)) error {
	var total int32
	if err := binary.Read(r, binary.LittleEndian, &total); err != nil {
		return fmt.Errorf("failed to read chunk header: %w", err)
	}

	for i := 0; i < int(total); i++ {
		var wordLen uint16
		if err := binary.Read(r, binary.LittleEndian, &wordLen); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read word length: %w", err)
		}

		buf := make([]byte, wordLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("failed to read word: %w", err)
		}

		var rank uint16
		if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
			return fmt.Errorf("failed to read rank: %w", err)
		}
		fn(string(buf), RankScore(rank))
	}
	return nil
}

// RankScore converts a rank to a score; rank 1 becomes 65535.
func RankScore(rank uint16) int {
	return 65535 - int(rank) + 1
}

// Evict removes chunk id's words from the sink.
func (cl *ChunkLoader) Evict(id int) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if !cl.loadedChunks[id] {
		return fmt.Errorf("%w: %d", ErrNotLoaded, id)
	}
	log.Debugf("Unloading chunk %d", id)

	words := cl.chunkWords[id]
	for _, w := range words {
		cl.sink.RemoveWord(w)
	}
	cl.totalWords -= len(words)
	delete(cl.chunkWords, id)
	delete(cl.loadedChunks, id)
	return nil
}

// GetStats returns current loading statistics
func (cl *ChunkLoader) GetStats() LoaderStats {
	chunks, _ := cl.GetAvailable()

	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return LoaderStats{
		LoadedWords:     cl.totalWords,
		LoadedChunks:    len(cl.loadedChunks),
		AvailableChunks: len(chunks),
		MaxFrequency:    cl.maxFrequency,
		IsLoading:       len(cl.loadingCh) > 0,
	}
}

// GetLoadedIDs returns the loaded chunk ids in ascending order.
func (cl *ChunkLoader) GetLoadedIDs() []int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	ids := make([]int, 0, len(cl.loadedChunks))
	for id := range cl.loadedChunks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Stop stops the background loader. Calling it again is a no-op.
func (cl *ChunkLoader) Stop() {
	cl.stopOnce.Do(func() { close(cl.done) })
}

// RequestMoreChunks queues unloaded chunks until about additionalWords
// more words are on their way.
func (cl *ChunkLoader) RequestMoreChunks(additionalWords int) error {
	chunks, err := cl.GetAvailable()
	if err != nil {
		return err
	}
	cl.startOnce.Do(func() { go cl.backgroundLoader() })

	queued := 0
	for _, chunk := range chunks {
		if queued >= additionalWords {
			break
		}
		cl.mu.RLock()
		loaded := cl.loadedChunks[chunk.ID]
		cl.mu.RUnlock()
		if loaded {
			continue
		}
		if err := cl.enqueue(chunk.ID); err != nil {
			return err
		}
		queued += chunk.WordCount
	}
	return nil
}
