package expander

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// markerGlyph is the non-breaking space rendered by the caret marker.
const markerGlyph = '\u00a0'

// offscreenLeft keeps mirrors out of view.
const offscreenLeft = -9999

var removalDelay atomic.Int64

func init() {
	removalDelay.Store(int64(5 * time.Second))
}

// SetRemovalDelay sets how long an unused mirror stays attached.
func SetRemovalDelay(d time.Duration) {
	if d <= 0 {
		d = 5 * time.Second
	}
	removalDelay.Store(int64(d))
}

// RemovalDelay returns the current mirror removal delay.
func RemovalDelay() time.Duration {
	return time.Duration(removalDelay.Load())
}

// Mirror is an offscreen replica of a field. It copies the field's layout
// style once, when created, and holds the field's text split at the
// measured offset around a zero-width marker.
type Mirror struct {
	mu     sync.Mutex
	style  Style
	ws     WhiteSpace
	parent Container
	before string
	after  string
	scroll Scroll
	flow   *layout
	timer  *time.Timer
}

func newMirror(f Field) *Mirror {
	m := &Mirror{style: f.Style(), ws: PreWrap}
	if f.Kind() == SingleLine {
		m.ws = NoWrap
	}
	return m
}

// Reflect resolves the mirror for f, filling it with f's value split at
// offset. The mirror is reused while it stays under f's parent; otherwise
// a new one replaces it.
func Reflect(f Field, offset int) (*Mirror, error) {
	if k := f.Kind(); !k.supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedField, k)
	}

	parent := f.Parent()
	a := f.anchor()
	a.mu.Lock()
	m := a.mirror
	if m == nil || !m.attachedTo(parent) {
		m = newMirror(f)
		a.mirror = m
	}
	a.mu.Unlock()

	m.fill(f.Value(), offset)
	if !m.attached() {
		if parent == nil {
			return nil, ErrNoParent
		}
		m.attach(parent, f)
	}
	m.syncScroll(f.ScrollOffset())
	return m, nil
}

// Measure returns the position of the character at offset relative to
// f's top-left corner. The mirror is detached after RemovalDelay unless
// another measurement reuses it first.
func Measure(f Field, offset int) (Point, error) {
	m, err := Reflect(f, offset)
	if err != nil {
		return Point{}, err
	}
	box, marker := m.Rect(), m.MarkerRect()
	m.scheduleRemoval()
	return Point{Top: marker.Top - box.Top, Left: marker.Left - box.Left}, nil
}

// MeasureCaret measures the end of f's current selection.
func MeasureCaret(f Field) (Point, error) {
	_, end := f.Selection()
	return Measure(f, end)
}

// Content returns the text on either side of the marker.
func (m *Mirror) Content() (before, after string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.before, m.after
}

// WhiteSpace returns the mirror's line breaking rule.
func (m *Mirror) WhiteSpace() WhiteSpace {
	return m.ws
}

// Style returns the style copied from the field.
func (m *Mirror) Style() Style {
	return m.style
}

// ScrollOffset returns the mirror's scroll offsets.
func (m *Mirror) ScrollOffset() Scroll {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scroll
}

// Parent returns the container holding the mirror, or nil once removed.
func (m *Mirror) Parent() Container {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parent
}

// Rect returns the mirror's border box.
func (m *Mirror) Rect() Rect {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rect()
}

// MarkerRect returns the marker's box.
func (m *Mirror) MarkerRect() Rect {
	m.mu.Lock()
	defer m.mu.Unlock()

	box := m.rect()
	st := m.style
	caret := m.flow.caret(len([]rune(m.before)))
	return Rect{
		Top:    box.Top + st.Border.Top + st.Padding.Top + caret.Top - m.scroll.Top,
		Left:   box.Left + st.Border.Left + st.Padding.Left + caret.Left - m.scroll.Left,
		Width:  st.metrics().Advance(st.Font, markerGlyph),
		Height: st.lineHeight(),
	}
}

func (m *Mirror) rect() Rect {
	st := m.style
	w, h := m.clientSize()
	return Rect{
		Top:    0,
		Left:   offscreenLeft,
		Width:  w + st.Border.horizontal(),
		Height: h + st.Border.vertical(),
	}
}

// clientSize is the padding box. Unbounded dimensions follow the content.
func (m *Mirror) clientSize() (width, height float64) {
	st := m.style
	cw, ch := m.flow.extent()
	if w := st.contentWidth(); w > 0 {
		cw = w
	}
	if h := st.contentHeight(); h > 0 {
		ch = h
	} else {
		ch = max(ch, st.MinHeight)
	}
	return cw + st.Padding.horizontal(), ch + st.Padding.vertical()
}

func (m *Mirror) fill(value string, offset int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	text := []rune(m.style.transform(value))
	offset = min(max(offset, 0), len(text))
	m.before = string(text[:offset])
	m.after = string(text[offset:])
	m.flow = flow(string(text), m.style, m.ws)
}

// syncScroll copies the field's scroll offsets, clamped to what the
// mirror can actually scroll.
func (m *Mirror) syncScroll(s Scroll) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.style
	cw, ch := m.flow.extent()
	clientW, clientH := m.clientSize()
	maxLeft := max(cw+st.Padding.horizontal()-clientW, 0)
	maxTop := max(ch+st.Padding.vertical()-clientH, 0)
	m.scroll = Scroll{
		Top:  min(max(s.Top, 0), maxTop),
		Left: min(max(s.Left, 0), maxLeft),
	}
}

func (m *Mirror) attach(parent Container, f Field) {
	parent.InsertBefore(m, f)
	m.mu.Lock()
	m.parent = parent
	m.mu.Unlock()
}

func (m *Mirror) attached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parent != nil
}

func (m *Mirror) attachedTo(parent Container) bool {
	m.mu.Lock()
	current := m.parent
	m.mu.Unlock()
	return current != nil && parent != nil && current == parent && parent.Contains(m)
}

func (m *Mirror) scheduleRemoval() {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := RemovalDelay()
	if m.timer == nil {
		m.timer = time.AfterFunc(d, m.remove)
		return
	}
	m.timer.Reset(d)
}

func (m *Mirror) remove() {
	m.mu.Lock()
	parent := m.parent
	m.parent = nil
	m.mu.Unlock()

	if parent != nil {
		parent.Remove(m)
	}
}
