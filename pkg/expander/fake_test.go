package expander

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeField struct {
	Anchor
	kind     Kind
	value    string
	selStart int
	selEnd   int
	scroll   Scroll
	style    Style
	parent   Container
	focused  bool
}

func newField(kind Kind, parent Container) *fakeField {
	f := &fakeField{kind: kind, parent: parent, focused: true}
	if l, ok := parent.(*Layer); ok {
		l.InsertBefore(f, nil)
	}
	return f
}

func (f *fakeField) Kind() Kind { return f.kind }
func (f *fakeField) Value() string { return f.value }
func (f *fakeField) Selection() (int, int) { return f.selStart, f.selEnd }
func (f *fakeField) SetValue(v string) { f.value = v }
func (f *fakeField) Select(start, end int) { f.selStart, f.selEnd = start, end }
func (f *fakeField) ScrollOffset() Scroll { return f.scroll }
func (f *fakeField) Style() Style { return f.style }
func (f *fakeField) Parent() Container { return f.parent }
func (f *fakeField) Focused() bool { return f.focused }
func (f *fakeField) Focus() { f.focused = true }

// typeText replaces the value, puts the caret at its end and reports input.
func (f *fakeField) typeText(s string) {
	f.value = s
	n := len([]rune(s))
	f.selStart, f.selEnd = n, n
	f.EmitInput()
}

type fakePopup struct {
	PopupEmitter
	name   string
	at     Point
	placed bool
}

func newPopup(name string) *fakePopup {
	return &fakePopup{name: name}
}

func (p *fakePopup) Place(at Point) {
	p.at = at
	p.placed = true
}

type listboxCall struct {
	op    string
	popup Popup
	step  int
}

type recordingListbox struct {
	mu    sync.Mutex
	calls []listboxCall
}

func (l *recordingListbox) record(op string, p Popup, step int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, listboxCall{op: op, popup: p, step: step})
}

func (l *recordingListbox) Install(_ Field, p Popup) { l.record("install", p, 0) }
func (l *recordingListbox) Uninstall(_ Field, p Popup) { l.record("uninstall", p, 0) }
func (l *recordingListbox) ClearSelection(_ Field, p Popup) { l.record("clear", p, 0) }
func (l *recordingListbox) Navigate(_ Field, p Popup, n int) { l.record("navigate", p, n) }

func (l *recordingListbox) ops() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ops []string
	for _, c := range l.calls {
		ops = append(ops, c.op)
	}
	return ops
}

type harness struct {
	t       *testing.T
	layer   *Layer
	field   *fakeField
	queue   *Queue
	listbox *recordingListbox
	c       *Controller
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		layer:   NewLayer(),
		queue:   NewQueue(16),
		listbox: &recordingListbox{},
	}
	h.field = newField(MultiLine, h.layer)
	if opts.Keys == "" {
		opts.Keys = "@"
	}
	opts.Loop = h.queue
	opts.Listbox = h.listbox
	c, err := New(h.field, opts)
	require.NoError(t, err)
	h.c = c
	t.Cleanup(func() {
		c.Deactivate()
		c.Destroy()
	})
	return h
}

// step runs the next posted resolution, failing if none arrives.
func (h *harness) step() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.True(h.t, h.queue.Step(ctx), "no resolution posted")
}

// idle asserts that nothing is posted for a short while.
func (h *harness) idle() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.False(h.t, h.queue.Step(ctx), "unexpected resolution")
}

func (h *harness) waitPosted(n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return len(h.queue.ch) >= n }, time.Second, time.Millisecond)
}

func matchWith(p Popup) func(*ChangeEvent) {
	return func(e *ChangeEvent) {
		e.Provide(func(context.Context) (Result, error) {
			return Result{Matched: true, Fragment: p}, nil
		})
	}
}
