// Package cli is the line mode typer host, useful for testing and
// debugging expansions without a full screen terminal.
//
// Every line read is appended to a single-line field and reported as
// input. When a popup opens its entries are printed, and the next line
// may pick one with /N. Other commands: /esc, /clear, /show, /q.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/wordexpand/pkg/config"
	"github.com/bastiangx/wordexpand/pkg/emoji"
	"github.com/bastiangx/wordexpand/pkg/expander"
	"github.com/bastiangx/wordexpand/pkg/suggest"
	"github.com/charmbracelet/log"
)

// ResolveTimeout bounds the wait for providers after each line.
const ResolveTimeout = 2 * time.Second

// InputHandler drives one expander from line input.
type InputHandler struct {
	field  *lineField
	queue  *expander.Queue
	ctrl   *expander.Controller
	detach []func()
	term   *terminal

	requestCount int
}

// NewInputHandler attaches an expander with the configured providers to
// a fresh line field. Output goes to out.
func NewInputHandler(cfg *config.Config, words suggest.Source, emojis *emoji.Index, out io.Writer) (*InputHandler, error) {
	if words == nil {
		return nil, errors.New("cli: no word source")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	h := &InputHandler{
		field: newLineField(),
		queue: expander.NewQueue(16),
		term:  newTerminal(out),
	}
	ctrl, err := expander.New(h.field, expander.Options{
		Keys:            cfg.Expander.Keys,
		Loop:            h.queue,
		ProviderTimeout: cfg.Expander.ProviderTimeout,
	})
	if err != nil {
		return nil, err
	}
	h.ctrl = ctrl
	h.detach = append(h.detach, suggest.NewProvider(words, renderList, cfg.ProviderOptions()).Attach(ctrl))
	if cfg.Emoji.Enabled && emojis != nil {
		h.detach = append(h.detach, emoji.NewProvider(emojis, renderList, cfg.Emoji.Key, cfg.Suggest.Limit).Attach(ctrl))
	}
	ctrl.OnCommitted(func(e expander.CommittedEvent) {
		log.Debug("committed", "key", e.Key, "value", e.Value)
	})
	return h, nil
}

// Close detaches the providers and destroys the controller.
func (h *InputHandler) Close() {
	for _, d := range h.detach {
		d()
	}
	h.detach = nil
	h.ctrl.Deactivate()
	h.ctrl.Destroy()
}

// Value returns the field's text.
func (h *InputHandler) Value() string { return h.field.Value() }

// Start reads lines from in until EOF, /q or ctx ends.
func (h *InputHandler) Start(ctx context.Context, in io.Reader) error {
	h.term.banner(h.ctrl.Keys())
	scanner := bufio.NewScanner(in)
	for {
		h.term.prompt()
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !h.handleInput(ctx, scanner.Text()) {
			return nil
		}
	}
}

// handleInput processes one line and reports whether to keep reading.
func (h *InputHandler) handleInput(ctx context.Context, line string) bool {
	h.requestCount++
	h.queue.Drain()

	if cmd, ok := strings.CutPrefix(strings.TrimSpace(line), "/"); ok && cmd != "" {
		return h.command(cmd)
	}

	// A line is a burst of typing; the previous popup never survives it.
	h.ctrl.Deactivate()
	start := time.Now()
	h.field.typeText(line)
	h.await(ctx)
	log.Debugf("Took [ %v ] for input %q", time.Since(start), line)

	if p := h.popup(); p != nil {
		h.term.popup(h.field, p)
	} else {
		h.term.value(h.field)
	}
	return true
}

func (h *InputHandler) command(cmd string) bool {
	switch cmd {
	case "q", "quit":
		return false
	case "esc":
		if !h.field.EmitKeyDown(expander.KeyEscape) {
			h.term.note("nothing to dismiss")
		}
	case "clear":
		h.ctrl.Deactivate()
		h.field.SetValue("")
	case "show":
		h.term.value(h.field)
	default:
		n, err := strconv.Atoi(cmd)
		p := h.popup()
		if err != nil || p == nil || n < 1 || n > len(p.entries) {
			h.term.note(fmt.Sprintf("unknown command /%s", cmd))
			return true
		}
		p.EmitCommit(p.entries[n-1])
		h.term.value(h.field)
	}
	return true
}

// await runs loop work until the controller settles or the wait times out.
func (h *InputHandler) await(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, ResolveTimeout)
	defer cancel()
	for h.ctrl.State() == expander.Matched {
		if !h.queue.Step(ctx) {
			log.Warn("Providers did not answer in time")
			h.ctrl.Deactivate()
			return
		}
	}
}

func (h *InputHandler) popup() *listPopup {
	p, _ := h.ctrl.Popup().(*listPopup)
	return p
}
