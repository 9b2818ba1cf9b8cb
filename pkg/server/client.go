package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bastiangx/wordexpand/pkg/dictionary"
	"github.com/bastiangx/wordexpand/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrClosed is returned for calls on a client whose stream has ended.
var ErrClosed = errors.New("server: client closed")

// RemoteError is an error reply from the server.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// Client multiplexes requests to a server over a stream pair, for
// example the pipes of a spawned wordserve process. It implements
// suggest.Source.
type Client struct {
	w   io.Writer
	wmu sync.Mutex
	enc *msgpack.Encoder

	mu      sync.Mutex
	pending map[string]chan msgpack.RawMessage
	err     error
	done    chan struct{}
}

var _ suggest.Source = (*Client)(nil)

// NewClient starts reading replies from r. Requests are written to w.
func NewClient(r io.Reader, w io.Writer) *Client {
	c := &Client{
		w:       w,
		enc:     msgpack.NewEncoder(w),
		pending: make(map[string]chan msgpack.RawMessage),
		done:    make(chan struct{}),
	}
	go c.readLoop(msgpack.NewDecoder(r))
	return c
}

func (c *Client) readLoop(dec *msgpack.Decoder) {
	for {
		var raw msgpack.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrClosed
			}
			c.shutdown(err)
			return
		}

		var hdr replyHeader
		if err := msgpack.Unmarshal(raw, &hdr); err != nil {
			log.Warnf("Dropping undecodable reply: %v", err)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[hdr.ID]
		delete(c.pending, hdr.ID)
		c.mu.Unlock()
		if !ok {
			log.Debugf("Dropping reply for unknown request %q", hdr.ID)
			continue
		}
		ch <- raw
	}
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = err
	c.pending = nil
	close(c.done)
}

// Done is closed once the reply stream ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the client stopped, or nil while it runs.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close closes the request stream if it is closable. The server then sees
// end of input and exits.
func (c *Client) Close() error {
	if cl, ok := c.w.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// roundTrip sends req, stamped with a fresh id by stamp, and decodes the
// reply into out.
func (c *Client) roundTrip(ctx context.Context, stamp func(id string) any, out any) error {
	id := uuid.NewString()
	ch := make(chan msgpack.RawMessage, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	c.wmu.Lock()
	err := c.enc.Encode(stamp(id))
	c.wmu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("sending request: %w", err)
	}

	select {
	case raw := <-ch:
		var hdr replyHeader
		if err := msgpack.Unmarshal(raw, &hdr); err != nil {
			return err
		}
		if hdr.Error != "" {
			return &RemoteError{Code: hdr.Code, Message: hdr.Error}
		}
		return msgpack.Unmarshal(raw, out)
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	case <-c.done:
		return c.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		delete(c.pending, id)
	}
}

// Complete asks the server for up to limit completions of prefix.
func (c *Client) Complete(ctx context.Context, prefix string, limit int) (*CompletionResponse, error) {
	var resp CompletionResponse
	err := c.roundTrip(ctx, func(id string) any {
		return CompletionRequest{ID: id, Prefix: prefix, Limit: limit}
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Dictionary runs a dictionary action. chunkCount is only used by set_size.
func (c *Client) Dictionary(ctx context.Context, action string, chunkCount *int) (*DictionaryResponse, error) {
	var resp DictionaryResponse
	err := c.roundTrip(ctx, func(id string) any {
		return DictionaryRequest{ID: id, Action: action, ChunkCount: chunkCount}
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Status == "error" {
		return &resp, &RemoteError{Code: 400, Message: resp.Error}
	}
	return &resp, nil
}

// Suggest implements suggest.Source.
func (c *Client) Suggest(ctx context.Context, prefix string, limit int) ([]suggest.Entry, error) {
	resp, err := c.Complete(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]suggest.Entry, len(resp.Suggestions))
	for i, s := range resp.Suggestions {
		entries[i] = suggest.Entry{Label: s.Word, Value: s.Word, Score: dictionary.RankScore(s.Rank)}
		if resp.CorrectedPrefix != "" {
			entries[i].Detail = "for " + prefix
		}
	}
	return entries, nil
}
