/*
Package server implements msgpack IPC for word completion services.

The server reads a stream of msgpack maps from its input and answers each
one, in order, on its output. Every message carries an id that the reply
echoes, so clients may pipeline requests.

# IPC

Completion requests:

	{"id": "req_001", "p": "ame", "l": 24}

The server responds with suggestions ranked by frequency, rank 1 first,
and the lookup time in microseconds:

	{"id": "req_001", "s": [{"w": "amenity", "r": 1}, {"w": "america", "r": 2}], "c": 2, "t": 145}

When the prefix was corrected for a typo the reply also carries "cp", the
corrected prefix.

Dictionary requests adjust the loaded word set at runtime:

	{"id": "dict_001", "action": "set_size", "chunk_count": 5}
	{"id": "dict_002", "action": "get_options"}

Supported actions are get_info, set_size, get_options and get_chunk_count.

Malformed completion requests are answered with an error map:

	{"id": "req_002", "e": "prefix exceeds maximum length of 60", "c": 400}

A stream that is not valid msgpack cannot be resynchronised, so the
server stops reading and Serve returns the decode error.
*/
package server

import (
	"github.com/bastiangx/wordexpand/pkg/dictionary"
)

// CompletionRequest - minimal completion request
type CompletionRequest struct {
	ID     string `msgpack:"id"`
	Prefix string `msgpack:"p"`
	Limit  int    `msgpack:"l,omitempty"`
}

// CompletionSuggestion - minimal suggestion response
type CompletionSuggestion struct {
	Word string `msgpack:"w"`
	Rank uint16 `msgpack:"r"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID              string                 `msgpack:"id"`
	Suggestions     []CompletionSuggestion `msgpack:"s"`
	Count           int                    `msgpack:"c"`
	TimeTaken       int64                  `msgpack:"t"`
	CorrectedPrefix string                 `msgpack:"cp,omitempty"`
}

// Dictionary actions.
const (
	ActionGetInfo       = "get_info"
	ActionSetSize       = "set_size"
	ActionGetOptions    = "get_options"
	ActionGetChunkCount = "get_chunk_count"
)

// DictionaryRequest - dictionary management request
type DictionaryRequest struct {
	ID         string `msgpack:"id"`
	Action     string `msgpack:"action"`
	ChunkCount *int   `msgpack:"chunk_count,omitempty"`
}

// DictionaryResponse - dictionary operation response
type DictionaryResponse struct {
	ID              string                  `msgpack:"id"`
	Status          string                  `msgpack:"status"`
	Error           string                  `msgpack:"error,omitempty"`
	CurrentChunks   int                     `msgpack:"current_chunks,omitempty"`
	AvailableChunks int                     `msgpack:"available_chunks,omitempty"`
	Options         []dictionary.SizeOption `msgpack:"options,omitempty"`
}

// CompletionError holds basic error information for completion requests
type CompletionError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

// request is the union of every inbound message. Action set means a
// dictionary request.
type request struct {
	ID         string `msgpack:"id"`
	Prefix     string `msgpack:"p"`
	Limit      int    `msgpack:"l"`
	Action     string `msgpack:"action"`
	ChunkCount *int   `msgpack:"chunk_count"`
}

// replyHeader is decoded first from every reply to route and classify it.
type replyHeader struct {
	ID     string `msgpack:"id"`
	Error  string `msgpack:"e"`
	Code   int    `msgpack:"c"`
	Status string `msgpack:"status"`
}
