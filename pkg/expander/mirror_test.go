package expander

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflectRejectsUnsupportedField(t *testing.T) {
	f := newField(KindUnknown, NewLayer())
	_, err := Reflect(f, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedField))

	_, err = Measure(f, 0)
	assert.ErrorIs(t, err, ErrUnsupportedField)
}

func TestReflectRequiresParent(t *testing.T) {
	f := newField(SingleLine, nil)
	f.value = "hello"
	_, err := Measure(f, 2)
	assert.ErrorIs(t, err, ErrNoParent)
}

func TestReflectInsertsMirrorBeforeField(t *testing.T) {
	layer := NewLayer()
	f := newField(SingleLine, layer)
	f.value = "hello @wor"

	m, err := Reflect(f, 7)
	require.NoError(t, err)
	assert.Equal(t, []Node{m, f}, layer.Nodes())
	assert.Equal(t, NoWrap, m.WhiteSpace())

	before, after := m.Content()
	assert.Equal(t, "hello @", before)
	assert.Equal(t, "wor", after)
	assert.Same(t, m, f.Mirror())
	assert.Equal(t, float64(offscreenLeft), m.Rect().Left)
}

func TestReflectReusesAttachedMirror(t *testing.T) {
	layer := NewLayer()
	f := newField(MultiLine, layer)
	f.value = "one"
	f.style = Style{Padding: Edges{Left: 1}}

	first, err := Reflect(f, 1)
	require.NoError(t, err)
	assert.Equal(t, PreWrap, first.WhiteSpace())

	f.value = "one two"
	f.style = Style{Padding: Edges{Left: 4}}
	second, err := Reflect(f, 5)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1.0, second.Style().Padding.Left, "style is copied only when the mirror is created")

	before, after := second.Content()
	assert.Equal(t, "one t", before)
	assert.Equal(t, "wo", after)
	assert.Len(t, layer.Nodes(), 2)
}

func TestReflectReplacesDetachedMirror(t *testing.T) {
	layer := NewLayer()
	f := newField(MultiLine, layer)
	f.value = "abc"

	first, err := Reflect(f, 1)
	require.NoError(t, err)
	layer.Remove(first)

	second, err := Reflect(f, 2)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.True(t, layer.Contains(second))

	// a field moved to another container gets a fresh mirror there
	other := NewLayer()
	layer.Remove(f)
	other.InsertBefore(f, nil)
	f.parent = other
	third, err := Reflect(f, 2)
	require.NoError(t, err)
	assert.NotSame(t, second, third)
	assert.Equal(t, []Node{third, f}, other.Nodes())
}

func TestMeasure(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		value  string
		offset int
		style  Style
		scroll Scroll
		want   Point
	}{
		{
			name:   "single line",
			kind:   SingleLine,
			value:  "hello @wor",
			offset: 7,
			want:   Point{Top: 0, Left: 7},
		},
		{
			name:   "padding and border",
			kind:   SingleLine,
			value:  "hello @wor",
			offset: 7,
			style:  Style{Padding: Edges{Top: 1, Left: 2}, Border: Edges{Top: 1, Left: 1}},
			want:   Point{Top: 2, Left: 10},
		},
		{
			name:   "single line never wraps",
			kind:   SingleLine,
			value:  "hello world foo",
			offset: 12,
			style:  Style{Width: 10},
			want:   Point{Top: 0, Left: 12},
		},
		{
			name:   "wraps at word boundary",
			kind:   MultiLine,
			value:  "hello world foo",
			offset: 12,
			style:  Style{Width: 10},
			want:   Point{Top: 1, Left: 6},
		},
		{
			name:   "breaks long words",
			kind:   MultiLine,
			value:  "abcdefg",
			offset: 5,
			style:  Style{Width: 3},
			want:   Point{Top: 1, Left: 2},
		},
		{
			name:   "border box narrows content",
			kind:   MultiLine,
			value:  "hello world",
			offset: 8,
			style:  Style{BoxSizing: BorderBox, Width: 12, Padding: Edges{Left: 1, Right: 1}, Border: Edges{Left: 1, Right: 1}},
			want:   Point{Top: 1, Left: 2 + 2},
		},
		{
			name:   "before newline",
			kind:   MultiLine,
			value:  "ab\ncd",
			offset: 2,
			want:   Point{Top: 0, Left: 2},
		},
		{
			name:   "after newline",
			kind:   MultiLine,
			value:  "ab\ncd",
			offset: 4,
			want:   Point{Top: 1, Left: 1},
		},
		{
			name:   "trailing newline",
			kind:   MultiLine,
			value:  "ab\n",
			offset: 3,
			want:   Point{Top: 1, Left: 0},
		},
		{
			name:   "tab stops",
			kind:   MultiLine,
			value:  "ab\tx",
			offset: 3,
			style:  Style{TabSize: 4},
			want:   Point{Top: 0, Left: 4},
		},
		{
			name:   "letter spacing",
			kind:   SingleLine,
			value:  "ab",
			offset: 2,
			style:  Style{LetterSpacing: 1},
			want:   Point{Top: 0, Left: 4},
		},
		{
			name:   "text indent on first line",
			kind:   MultiLine,
			value:  "ab\ncd",
			offset: 1,
			style:  Style{TextIndent: 3},
			want:   Point{Top: 0, Left: 4},
		},
		{
			name:   "line height",
			kind:   MultiLine,
			value:  "a\nb",
			offset: 3,
			style:  Style{LineHeight: 18},
			want:   Point{Top: 18, Left: 1},
		},
		{
			name:   "wide runes",
			kind:   SingleLine,
			value:  "日本 @x",
			offset: 4,
			want:   Point{Top: 0, Left: 6},
		},
		{
			name:   "scrolled",
			kind:   MultiLine,
			value:  "a\nb\nc\nd\ne",
			offset: 8,
			style:  Style{Height: 2},
			scroll: Scroll{Top: 2},
			want:   Point{Top: 2, Left: 0},
		},
		{
			name:   "scroll clamped to range",
			kind:   MultiLine,
			value:  "a\nb\nc\nd\ne",
			offset: 8,
			style:  Style{Height: 2},
			scroll: Scroll{Top: 100},
			want:   Point{Top: 1, Left: 0},
		},
		{
			name:   "unbounded fields do not scroll",
			kind:   MultiLine,
			value:  "a\nb",
			offset: 2,
			scroll: Scroll{Top: 5},
			want:   Point{Top: 1, Left: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newField(tt.kind, NewLayer())
			f.value = tt.value
			f.style = tt.style
			f.scroll = tt.scroll

			got, err := Measure(f, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMeasureCaretUsesSelectionEnd(t *testing.T) {
	f := newField(SingleLine, NewLayer())
	f.value = "abcdef"
	f.Select(1, 4)

	got, err := MeasureCaret(f)
	require.NoError(t, err)
	assert.Equal(t, Point{Left: 4}, got)
}

func TestMirrorAppliesTextTransform(t *testing.T) {
	f := newField(MultiLine, NewLayer())
	f.value = "hello big world"
	f.style = Style{TextTransform: Capitalize}

	m, err := Reflect(f, 6)
	require.NoError(t, err)
	before, after := m.Content()
	assert.Equal(t, "Hello ", before)
	assert.Equal(t, "Big World", after)
}

func TestMirrorMarkerRect(t *testing.T) {
	f := newField(SingleLine, NewLayer())
	f.value = "ab"
	f.style = Style{Padding: Edges{Left: 1}}

	m, err := Reflect(f, 2)
	require.NoError(t, err)
	marker := m.MarkerRect()
	assert.Equal(t, Rect{Top: 0, Left: offscreenLeft + 3, Width: 1, Height: 1}, marker)
}

func TestMirrorRemovedAfterDelay(t *testing.T) {
	SetRemovalDelay(20 * time.Millisecond)
	t.Cleanup(func() { SetRemovalDelay(5 * time.Second) })

	layer := NewLayer()
	f := newField(MultiLine, layer)
	f.value = "text"

	_, err := Measure(f, 2)
	require.NoError(t, err)
	m := f.Mirror()
	require.True(t, layer.Contains(m))

	require.Eventually(t, func() bool { return !layer.Contains(m) }, time.Second, 5*time.Millisecond)
	assert.Nil(t, m.Parent())

	// the next measurement brings a new mirror back
	_, err = Measure(f, 1)
	require.NoError(t, err)
	assert.NotSame(t, m, f.Mirror())
	assert.True(t, layer.Contains(f.Mirror()))
}

func TestSetRemovalDelayRejectsNonPositive(t *testing.T) {
	t.Cleanup(func() { SetRemovalDelay(5 * time.Second) })
	SetRemovalDelay(-time.Second)
	assert.Equal(t, 5*time.Second, RemovalDelay())
}

func TestLayerOrder(t *testing.T) {
	a, b, c := newPopup("a"), newPopup("b"), newPopup("c")
	l := NewLayer(a)
	l.InsertBefore(c, nil)
	l.InsertBefore(b, c)
	assert.Equal(t, []Node{a, b, c}, l.Nodes())

	l.InsertBefore(c, a)
	assert.Equal(t, []Node{c, a, b}, l.Nodes())

	l.Remove(a)
	assert.False(t, l.Contains(a))
	assert.Equal(t, []Node{c, b}, l.Nodes())
}
