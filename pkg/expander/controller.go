package expander

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// State is a controller's position in the expansion cycle.
type State int

const (
	// Idle has no match and no popup.
	Idle State = iota
	// Matched has a match whose providers have not answered yet.
	Matched
	// Active has a popup attached and positioned.
	Active
	// Destroyed no longer listens to its field.
	Destroyed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Matched:
		return "matched"
	case Active:
		return "active"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configures a Controller.
type Options struct {
	// Keys is a space separated list of activation keys, tried in order.
	Keys string
	// Host receives popups. Defaults to the field's parent.
	Host Container
	// Listbox drives popup selection. Optional.
	Listbox Listbox
	// Loop is the field's event loop. Required.
	Loop Loop
	// Logger defaults to the package logger with an "expander" prefix.
	Logger *log.Logger
	// ProviderTimeout bounds the wait for providers. When it expires the
	// match is dropped. Zero waits indefinitely.
	ProviderTimeout time.Duration
}

// Controller watches one field for activation keys, asks providers for a
// popup, and applies commits.
//
// All methods, and every handler it installs, run on the field's event
// loop. Only provider resolvers run elsewhere.
type Controller struct {
	field   Field
	keys    []string
	host    Container
	listbox Listbox
	loop    Loop
	logger  *log.Logger
	timeout time.Duration

	match       *Match
	popup       Popup
	popupHost   Container
	popupSeq    uint64
	stopPopup   func()
	interacting bool
	justPasted  bool
	gen         uint64
	cancel      context.CancelFunc
	destroyed   bool
	unlisten    func()

	change    listeners[*ChangeEvent]
	value     listeners[*ValueEvent]
	committed listeners[CommittedEvent]
}

// New attaches a controller to f.
func New(f Field, opts Options) (*Controller, error) {
	if k := f.Kind(); !k.supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedField, k)
	}
	if opts.Loop == nil {
		return nil, ErrNoLoop
	}
	c := &Controller{
		field:   f,
		keys:    ParseKeys(opts.Keys),
		host:    opts.Host,
		listbox: opts.Listbox,
		loop:    opts.Loop,
		logger:  opts.Logger,
		timeout: opts.ProviderTimeout,
	}
	if c.listbox == nil {
		c.listbox = nopListbox{}
	}
	if c.logger == nil {
		c.logger = log.Default().WithPrefix("expander")
	}
	c.unlisten = f.anchor().listen(c.handle)
	return c, nil
}

// OnChange registers a provider. Providers are consulted in registration order.
func (c *Controller) OnChange(fn func(*ChangeEvent)) (remove func()) {
	return c.change.add(fn)
}

// OnValue registers the listener that supplies replacement text.
func (c *Controller) OnValue(fn func(*ValueEvent)) (remove func()) {
	return c.value.add(fn)
}

// OnCommitted registers a listener for applied commits.
func (c *Controller) OnCommitted(fn func(CommittedEvent)) (remove func()) {
	return c.committed.add(fn)
}

// Field returns the controlled field.
func (c *Controller) Field() Field { return c.field }

// SetKeys replaces the activation keys. It applies from the next input.
func (c *Controller) SetKeys(keys string) {
	c.keys = ParseKeys(keys)
}

// Keys returns the activation keys in the order they are tried.
func (c *Controller) Keys() []string {
	return append([]string(nil), c.keys...)
}

func (c *Controller) State() State {
	switch {
	case c.destroyed:
		return Destroyed
	case c.popup != nil:
		return Active
	case c.match != nil:
		return Matched
	}
	return Idle
}

// Match returns the live match.
func (c *Controller) Match() (Match, bool) {
	if c.match == nil {
		return Match{}, false
	}
	return *c.match, true
}

// Popup returns the attached popup, or nil.
func (c *Controller) Popup() Popup {
	return c.popup
}

// Deactivate drops the match and detaches the popup. It reports whether
// a popup was attached.
func (c *Controller) Deactivate() bool {
	return c.deactivate()
}

// Destroy removes the controller's field listeners and releases the field
// if this controller was attached to it, so it can be attached again. It
// does not detach an active popup; call Deactivate first. Calling it again
// is a no-op.
func (c *Controller) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.unlisten()

	a := c.field.anchor()
	a.mu.Lock()
	if a.owner == c {
		a.owner = nil
	}
	a.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.logger.Debug("destroyed")
}

func (c *Controller) handle(e *FieldEvent) {
	switch e.Type {
	case EventInput:
		c.onInput()
	case EventPaste:
		c.justPasted = true
	case EventKeyDown:
		if c.onKeyDown(e.Key) {
			e.StopPropagation()
		}
	case EventBlur:
		c.onBlur()
	}
}

func (c *Controller) onInput() {
	if c.justPasted {
		c.justPasted = false
		return
	}
	_, cursor := c.field.Selection()
	m, ok := FindFirst(c.field.Value(), c.keys, cursor)
	if !ok {
		c.deactivate()
		return
	}
	c.begin(m)
}

// begin starts a new generation for m and asks providers about it.
func (c *Controller) begin(m Match) {
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.gen++
	c.cancel = cancel
	c.match = &m

	ev := &ChangeEvent{Text: m.Text, Key: m.Key, ctx: ctx}
	c.change.emit(ev)
	if ev.Canceled() || len(ev.resolvers) == 0 {
		c.logger.Debug("no providers for match", "key", m.Key, "text", m.Text, "canceled", ev.Canceled())
		c.deactivate()
		return
	}
	go c.gather(ctx, c.gen, ev.resolvers)
}

// gather waits for every resolver and posts the first matched fragment,
// by provider order, back to the loop. Failed resolvers count as unmatched.
func (c *Controller) gather(parent context.Context, gen uint64, resolvers []Resolver) {
	ctx := parent
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, c.timeout)
		defer cancel()
	}

	results := make([]Result, len(resolvers))
	var g errgroup.Group
	for i, resolve := range resolvers {
		i, resolve := i, resolve
		g.Go(func() error {
			res, err := resolve(ctx)
			if err != nil {
				c.logger.Debug("provider failed", "index", i, "err", err)
				return nil
			}
			results[i] = res
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	if parent.Err() != nil {
		// superseded; a newer generation owns the field now
		return
	}
	if !joined(done) {
		c.logger.Warn("providers timed out", "after", c.timeout)
		c.loop.Post(func() { c.resolve(gen, nil) })
		return
	}

	var fragment Popup
	for _, res := range results {
		if res.Matched && res.Fragment != nil {
			fragment = res.Fragment
			break
		}
	}
	c.loop.Post(func() { c.resolve(gen, fragment) })
}

// joined reports whether every resolver returned. Only an unfinished join
// is a timeout; results that completed as the deadline passed still count.
func joined(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

func (c *Controller) resolve(gen uint64, fragment Popup) {
	if c.destroyed || c.match == nil || gen != c.gen {
		c.logger.Debug("discarding stale resolution", "gen", gen, "current", c.gen)
		return
	}
	if fragment == nil {
		c.deactivate()
		return
	}
	c.activate(*c.match, fragment)
}

func (c *Controller) activate(m Match, p Popup) {
	if !c.field.Focused() {
		c.deactivate()
		return
	}
	c.teardown()

	host := c.host
	if host == nil {
		host = c.field.Parent()
	}
	pos, err := Measure(c.field, m.Position)
	if err == nil && host == nil {
		err = ErrNoParent
	}
	if err != nil {
		c.logger.Error("cannot place popup", "err", err)
		c.deactivate()
		return
	}

	host.InsertBefore(p, nil)
	c.popupSeq++
	seq := c.popupSeq
	c.popup = p
	c.popupHost = host
	p.Place(pos)
	c.stopPopup = p.Listen(PopupHandlers{
		Commit:    func(item any) { c.commit(seq, item) },
		MouseDown: func() { c.interacting = true },
	})
	c.listbox.Install(c.field, p)
	c.listbox.Navigate(c.field, p, 1)
}

// teardown detaches the popup and reports whether there was one.
func (c *Controller) teardown() bool {
	p := c.popup
	if p == nil {
		return false
	}
	c.popup = nil
	c.interacting = false
	if c.stopPopup != nil {
		c.stopPopup()
		c.stopPopup = nil
	}
	c.listbox.ClearSelection(c.field, p)
	c.listbox.Uninstall(c.field, p)
	c.popupHost.Remove(p)
	c.popupHost = nil
	return true
}

func (c *Controller) deactivate() bool {
	c.match = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return c.teardown()
}

func (c *Controller) onKeyDown(key string) bool {
	if key != KeyEscape {
		return false
	}
	return c.deactivate()
}

func (c *Controller) onBlur() {
	if c.interacting {
		c.interacting = false
		return
	}
	c.deactivate()
}

func (c *Controller) commit(seq uint64, item any) {
	if item == nil || c.popup == nil || seq != c.popupSeq || c.match == nil {
		return
	}
	m := *c.match

	value := []rune(c.field.Value())
	start := min(max(m.Start(), 0), len(value))
	end := min(max(m.End(), start), len(value))
	beginning, remaining := string(value[:start]), string(value[end:])

	ev := &ValueEvent{Item: item, Key: m.Key}
	c.value.emit(ev)
	if ev.Canceled() || ev.Value == "" {
		c.logger.Debug("commit declined", "key", m.Key, "canceled", ev.Canceled())
		return
	}

	inserted := ev.Value + " "
	c.field.SetValue(beginning + inserted + remaining)
	cursor := len([]rune(beginning)) + len([]rune(inserted))
	c.deactivate()
	c.field.Focus()
	c.field.Select(cursor, cursor)

	c.committed.emit(CommittedEvent{Field: c.field, Item: item, Key: m.Key, Value: ev.Value})
}
