package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/wordexpand/internal/utils"
	"github.com/bastiangx/wordexpand/pkg/dictionary"
	"github.com/bastiangx/wordexpand/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Completer is the part of suggest.Completer the server needs.
type Completer interface {
	Complete(prefix string, limit int) []suggest.Suggestion
}

// Options bounds what clients may ask for.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	MinPrefix    int
	MaxPrefix    int
}

func DefaultOptions() Options {
	return Options{
		DefaultLimit: 10,
		MaxLimit:     64,
		MinPrefix:    1,
		MaxPrefix:    60,
	}
}

// Server handles the IPC for word completions
type Server struct {
	completer Completer
	dict      *dictionary.RuntimeLoader
	opts      Options

	mu       sync.Mutex
	requests int
}

// New creates a server. dict may be nil, in which case dictionary
// requests are answered with an error.
func New(c Completer, dict *dictionary.RuntimeLoader, opts Options) *Server {
	return &Server{completer: c, dict: dict, opts: opts.normalize()}
}

func (o Options) normalize() Options {
	if o.DefaultLimit < 1 {
		o.DefaultLimit = DefaultOptions().DefaultLimit
	}
	if o.MaxLimit < o.DefaultLimit {
		o.MaxLimit = o.DefaultLimit
	}
	return o
}

// SetOptions replaces the request bounds, e.g. after a config reload.
// Requests already being handled keep the old bounds.
func (s *Server) SetOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts.normalize()
}

// Requests returns the number of messages handled so far.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Serve answers requests from r on w until r is exhausted, ctx is done,
// or the stream is corrupt. A clean end of input returns nil. Cancelling
// ctx takes effect between messages; close r to unblock a pending read.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	log.Debug("Starting Server.")
	dec := msgpack.NewDecoder(r)
	enc := msgpack.NewEncoder(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decoding request: %w", err)
		}

		s.mu.Lock()
		s.requests++
		opts := s.opts
		s.mu.Unlock()

		if err := enc.Encode(s.handle(req, opts)); err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
	}
}

func (s *Server) handle(req request, opts Options) any {
	if req.Action != "" {
		return s.handleDictionary(DictionaryRequest{ID: req.ID, Action: req.Action, ChunkCount: req.ChunkCount})
	}
	return s.handleComplete(CompletionRequest{ID: req.ID, Prefix: req.Prefix, Limit: req.Limit}, opts)
}

func (s *Server) handleComplete(req CompletionRequest, opts Options) any {
	n := utf8.RuneCountInString(req.Prefix)
	switch {
	case n == 0:
		log.Debug("Prefix is empty in request")
		return CompletionError{ID: req.ID, Error: "missing prefix", Code: 400}
	case n < opts.MinPrefix:
		return CompletionError{ID: req.ID, Error: fmt.Sprintf("prefix must be at least %d characters", opts.MinPrefix), Code: 400}
	case opts.MaxPrefix > 0 && n > opts.MaxPrefix:
		return CompletionError{ID: req.ID, Error: fmt.Sprintf("prefix exceeds maximum length of %d", opts.MaxPrefix), Code: 400}
	}

	limit := req.Limit
	if limit < 1 {
		limit = opts.DefaultLimit
	}
	limit = min(limit, opts.MaxLimit)

	start := time.Now()
	suggestions := s.completer.Complete(req.Prefix, limit)
	elapsed := time.Since(start)

	resp := CompletionResponse{
		ID:          req.ID,
		Suggestions: make([]CompletionSuggestion, len(suggestions)),
		Count:       len(suggestions),
		TimeTaken:   elapsed.Microseconds(),
	}
	ranks := utils.CreateRankList(1, len(suggestions))
	for i, sg := range suggestions {
		resp.Suggestions[i] = CompletionSuggestion{Word: sg.Word, Rank: ranks[i]}
	}
	if len(suggestions) > 0 && suggestions[0].WasCorrected {
		resp.CorrectedPrefix = suggestions[0].CorrectedPrefix
	}
	return resp
}

func (s *Server) handleDictionary(req DictionaryRequest) DictionaryResponse {
	resp := DictionaryResponse{ID: req.ID, Status: "ok"}
	fail := func(err error) DictionaryResponse {
		log.Warnf("Dictionary request %s failed: %v", req.Action, err)
		return DictionaryResponse{ID: req.ID, Status: "error", Error: err.Error()}
	}
	if s.dict == nil {
		return fail(errors.New("dictionary management unavailable"))
	}

	switch req.Action {
	case ActionGetInfo, ActionGetChunkCount:
		available, err := s.dict.AvailableChunkCount()
		if err != nil {
			return fail(err)
		}
		resp.AvailableChunks = available
		if req.Action == ActionGetInfo {
			resp.CurrentChunks = s.dict.LoadedChunkCount()
		}
	case ActionSetSize:
		if req.ChunkCount == nil {
			return fail(errors.New("set_size requires chunk_count"))
		}
		if err := s.dict.SetDictionarySize(*req.ChunkCount); err != nil {
			return fail(err)
		}
		resp.CurrentChunks = s.dict.LoadedChunkCount()
	case ActionGetOptions:
		opts, err := s.dict.SizeOptions()
		if err != nil {
			return fail(err)
		}
		resp.Options = opts
	default:
		return fail(fmt.Errorf("unknown action %q", req.Action))
	}
	return resp
}
