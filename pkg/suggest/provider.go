package suggest

import (
	"context"
	"slices"
	"unicode/utf8"

	"github.com/bastiangx/wordexpand/internal/utils"
	"github.com/bastiangx/wordexpand/pkg/expander"
	"github.com/charmbracelet/log"
)

// RenderFunc builds the popup for a set of entries. Each row must commit
// its Entry as the item. It runs on a resolver goroutine, so it must not
// touch live UI state.
type RenderFunc func(key string, entries []Entry) expander.Popup

// ProviderOptions configures a Provider.
type ProviderOptions struct {
	// Keys lists the activation keys this provider answers, space
	// separated. Empty answers every key.
	Keys      string
	Limit     int
	MinPrefix int
	// MaxPrefix of zero means no upper bound.
	MaxPrefix int
	// Filter skips fragments utils.IsValidInput rejects.
	Filter bool
	// KeepKey leaves the activation key in front of the inserted value.
	KeepKey bool
}

func DefaultProviderOptions() ProviderOptions {
	return ProviderOptions{
		Keys:      "@",
		Limit:     8,
		MinPrefix: 1,
		MaxPrefix: 60,
		Filter:    true,
	}
}

// Provider connects a Source to expander controllers.
type Provider struct {
	src    Source
	render RenderFunc
	opts   ProviderOptions
	keys   []string
}

func NewProvider(src Source, render RenderFunc, opts ProviderOptions) *Provider {
	return &Provider{
		src:    src,
		render: render,
		opts:   opts,
		keys:   expander.ParseKeys(opts.Keys),
	}
}

// Handles reports whether the provider answers key.
func (p *Provider) Handles(key string) bool {
	return len(p.keys) == 0 || slices.Contains(p.keys, key)
}

// Handle is a change listener. It offers a resolver for fragments within
// the configured bounds.
func (p *Provider) Handle(e *expander.ChangeEvent) {
	if !p.Handles(e.Key) {
		return
	}
	text, key := e.Text, e.Key
	n := utf8.RuneCountInString(text)
	if n < p.opts.MinPrefix || (p.opts.MaxPrefix > 0 && n > p.opts.MaxPrefix) {
		return
	}
	if p.opts.Filter && !utils.IsValidInput(text) {
		log.Debugf("Skipping invalid fragment %q", text)
		return
	}

	e.Provide(func(ctx context.Context) (expander.Result, error) {
		entries, err := p.src.Suggest(ctx, text, p.opts.Limit)
		if err != nil || len(entries) == 0 {
			return expander.Result{}, err
		}
		popup := p.render(key, entries)
		return expander.Result{Matched: popup != nil, Fragment: popup}, nil
	})
}

// Value is a value listener. It supplies the committed entry's value
// unless an earlier listener already did.
func (p *Provider) Value(e *expander.ValueEvent) {
	if e.Value != "" || e.Canceled() || !p.Handles(e.Key) {
		return
	}
	entry, ok := e.Item.(Entry)
	if !ok {
		return
	}
	e.Value = entry.Value
	if p.opts.KeepKey {
		e.Value = e.Key + entry.Value
	}
}

// Committed feeds committed entries back to sources that learn.
func (p *Provider) Committed(e expander.CommittedEvent) {
	r, ok := p.src.(Rememberer)
	if !ok || !p.Handles(e.Key) {
		return
	}
	if entry, ok := e.Item.(Entry); ok {
		r.Remember(entry.Value)
	}
}

// Attach registers the provider's listeners on c and returns a func that
// removes them.
func (p *Provider) Attach(c *expander.Controller) (detach func()) {
	stops := []func(){
		c.OnChange(p.Handle),
		c.OnValue(p.Value),
		c.OnCommitted(p.Committed),
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}
