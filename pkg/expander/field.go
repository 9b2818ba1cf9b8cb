package expander

import "sync"

// Kind tags the text fields an expander can drive.
type Kind int

const (
	KindUnknown Kind = iota
	SingleLine
	MultiLine
)

func (k Kind) String() string {
	switch k {
	case SingleLine:
		return "single-line"
	case MultiLine:
		return "multi-line"
	default:
		return "unknown"
	}
}

func (k Kind) supported() bool {
	return k == SingleLine || k == MultiLine
}

// Point is a position relative to a field's top-left border corner.
type Point struct {
	Top  float64
	Left float64
}

// Scroll holds a field's scroll offsets.
type Scroll struct {
	Top  float64
	Left float64
}

// Rect is a box in the coordinate space of the field's parent.
type Rect struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// Node is anything a Container holds: fields, mirrors and popups.
// Nodes are compared with ==, so hosts should use pointer types.
type Node any

// Container is the attach point shared by a field, its mirror and its popup.
// Implementations must be safe for concurrent use; mirrors are removed
// from a timer goroutine.
type Container interface {
	// InsertBefore places n before ref, or last when ref is nil or absent.
	InsertBefore(n, ref Node)
	Remove(n Node)
	Contains(n Node) bool
}

// Field is a text field the expander can measure and edit. Host types
// satisfy it by embedding Anchor and implementing the accessors.
//
// Offsets are rune offsets into Value. SetValue and Select are
// programmatic edits and must not be reported back through EmitInput.
type Field interface {
	Kind() Kind
	Value() string
	Selection() (start, end int)
	SetValue(v string)
	Select(start, end int)
	ScrollOffset() Scroll
	Style() Style
	// Parent returns the container the field lives in, or nil when detached.
	Parent() Container
	Focused() bool
	Focus()

	anchor() *Anchor
}

// Layer is an ordered Container.
type Layer struct {
	mu    sync.Mutex
	nodes []Node
}

// NewLayer returns a layer holding nodes in order.
func NewLayer(nodes ...Node) *Layer {
	return &Layer{nodes: append([]Node(nil), nodes...)}
}

func (l *Layer) InsertBefore(n, ref Node) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.remove(n)
	at := len(l.nodes)
	if ref != nil {
		if i := l.index(ref); i >= 0 {
			at = i
		}
	}
	l.nodes = append(l.nodes, nil)
	copy(l.nodes[at+1:], l.nodes[at:])
	l.nodes[at] = n
}

func (l *Layer) Remove(n Node) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remove(n)
}

func (l *Layer) Contains(n Node) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index(n) >= 0
}

// Nodes returns a snapshot of the layer's children.
func (l *Layer) Nodes() []Node {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Node(nil), l.nodes...)
}

func (l *Layer) index(n Node) int {
	for i, c := range l.nodes {
		if c == n {
			return i
		}
	}
	return -1
}

func (l *Layer) remove(n Node) {
	if i := l.index(n); i >= 0 {
		l.nodes = append(l.nodes[:i], l.nodes[i+1:]...)
	}
}

// EventType identifies a field event.
type EventType int

const (
	EventInput EventType = iota
	EventPaste
	EventKeyDown
	EventBlur
)

// KeyEscape is the key name that dismisses an active popup.
const KeyEscape = "Escape"

// FieldEvent is an event raised by a host field.
type FieldEvent struct {
	Type EventType
	// Key is set for EventKeyDown.
	Key string

	stopped bool
}

// StopPropagation keeps later listeners from seeing the event and tells
// the host not to handle it any further.
func (e *FieldEvent) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether a listener stopped the event.
func (e *FieldEvent) Stopped() bool {
	return e.stopped
}

// Anchor carries the state the expander attaches to a field: its mirror,
// its event listeners and the controller that owns it. Host fields embed
// it, which ties that state to the field's own lifetime.
type Anchor struct {
	mu        sync.Mutex
	mirror    *Mirror
	owner     *Controller
	listeners listeners[*FieldEvent]
}

func (a *Anchor) anchor() *Anchor { return a }

// Emit delivers e to the field's listeners in registration order.
func (a *Anchor) Emit(e *FieldEvent) {
	for _, fn := range a.listeners.snapshot() {
		fn(e)
		if e.stopped {
			return
		}
	}
}

// EmitInput reports that the user changed the field's value.
func (a *Anchor) EmitInput() {
	a.Emit(&FieldEvent{Type: EventInput})
}

// EmitPaste reports a paste. Hosts emit it before the input it causes.
func (a *Anchor) EmitPaste() {
	a.Emit(&FieldEvent{Type: EventPaste})
}

// EmitKeyDown reports a key press and returns true when a listener
// consumed it.
func (a *Anchor) EmitKeyDown(key string) bool {
	e := &FieldEvent{Type: EventKeyDown, Key: key}
	a.Emit(e)
	return e.stopped
}

// EmitBlur reports that the field lost focus.
func (a *Anchor) EmitBlur() {
	a.Emit(&FieldEvent{Type: EventBlur})
}

// Mirror returns the field's cached mirror, if any.
func (a *Anchor) Mirror() *Mirror {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mirror
}

func (a *Anchor) listen(fn func(*FieldEvent)) func() {
	return a.listeners.add(fn)
}
