package dictionary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bastiangx/wordexpand/internal/utils"
	"github.com/charmbracelet/log"
)

// FileFormat represents different dictionary file formats
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatChunk              // dict_NNNN.bin
	FormatText               // one word per line, optional frequency
)

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "unknown"
}

// FormatInfo contains metadata about a dictionary file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64
}

// maxChunkWords bounds the header of a valid chunk file.
const maxChunkWords = 1_000_000

var ErrFormat = errors.New("dictionary: invalid file format")

var supportedFormats = map[FileFormat]FormatInfo{
	FormatChunk: {
		Format:      FormatChunk,
		Description: "Chunked Binary Dictionary",
		Extensions:  []string{".bin"},
		MinSize:     4,
	},
	FormatText: {
		Format:      FormatText,
		Description: "Plain Text Dictionary",
		Extensions:  []string{".txt"},
		MinSize:     1,
	},
}

// ValidateFileFormat checks if a file matches the expected format
func ValidateFileFormat(filename string, expected FileFormat) error {
	info, exists := supportedFormats[expected]
	if !exists {
		return fmt.Errorf("%w: unknown format %d", ErrFormat, expected)
	}

	stat, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}
	if stat.Size() < info.MinSize {
		return fmt.Errorf("%w: %s is too small (%d bytes) for %s",
			ErrFormat, filename, stat.Size(), info.Description)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	valid := false
	for _, e := range info.Extensions {
		if ext == e {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s has extension %q, expected %v",
			ErrFormat, filename, ext, info.Extensions)
	}

	if expected == FormatChunk {
		return validateChunk(filename)
	}
	return nil
}

func validateChunk(filename string) error {
	count, err := chunkWordCount(filename)
	if err != nil {
		return fmt.Errorf("failed to read header from %s: %w", filename, err)
	}
	if count < 0 || count > maxChunkWords {
		return fmt.Errorf("%w: %s claims %d words", ErrFormat, filename, count)
	}
	log.Debugf("Binary file %s validated: %d words", filename, count)
	return nil
}

// DetectFileFormat attempts to detect the format of a file
func DetectFileFormat(filename string) (FileFormat, error) {
	base := strings.ToLower(filepath.Base(filename))
	switch {
	case strings.HasPrefix(base, "dict_") && strings.HasSuffix(base, ".bin"):
		if err := ValidateFileFormat(filename, FormatChunk); err != nil {
			return FormatUnknown, err
		}
		return FormatChunk, nil
	case strings.HasSuffix(base, ".txt"):
		if err := ValidateFileFormat(filename, FormatText); err != nil {
			return FormatUnknown, err
		}
		return FormatText, nil
	}
	return FormatUnknown, fmt.Errorf("%w: cannot detect format of %s", ErrFormat, filename)
}

// LoadText reads a word list into sink and returns the number of words.
//
// Each line holds a word and an optional frequency. Lines without one are
// ranked by position, so the first line scores highest. Blank lines and
// lines starting with # are skipped.
func LoadText(r io.Reader, sink Sink) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		word := fields[0]
		score := RankScore(clampRank(n + 1))
		if len(fields) > 1 {
			f, err := strconv.Atoi(fields[1])
			if err != nil {
				return n, fmt.Errorf("%w: line %q: %v", ErrFormat, line, err)
			}
			score = f
		}
		sink.AddWord(word, score)
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("failed to read word list: %w", err)
	}
	return n, nil
}

// ReadWordList returns the words of a text list in file order.
func ReadWordList(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, strings.Fields(line)[0])
	}
	return words, sc.Err()
}

// WriteChunk encodes words as one chunk, ranking them from firstRank.
func WriteChunk(w io.Writer, words []string, firstRank int) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, int32(len(words))); err != nil {
		return err
	}
	ranks := utils.CreateRankList(firstRank, len(words))
	for i, word := range words {
		if len(word) > math.MaxUint16 {
			return fmt.Errorf("%w: word of %d bytes", ErrFormat, len(word))
		}
		if err := binary.Write(bw, binary.LittleEndian, uint16(len(word))); err != nil {
			return err
		}
		if _, err := bw.WriteString(word); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, ranks[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteChunks splits words, most frequent first, into chunk files of
// chunkSize words under dir. It returns the number of files written.
func WriteChunks(dir string, words []string, chunkSize int) (int, error) {
	if chunkSize <= 0 {
		return 0, fmt.Errorf("%w: chunk size %d", ErrFormat, chunkSize)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	n := 0
	for start := 0; start < len(words); start += chunkSize {
		end := min(start+chunkSize, len(words))
		n++
		if err := writeChunkFile(filepath.Join(dir, ChunkName(n)), words[start:end], start+1); err != nil {
			return n - 1, err
		}
	}
	log.Debugf("Wrote %d chunks of up to %d words to %s", n, chunkSize, dir)
	return n, nil
}

func writeChunkFile(path string, words []string, firstRank int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteChunk(f, words, firstRank); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func clampRank(rank int) uint16 {
	return uint16(min(max(rank, 1), math.MaxUint16))
}
