package expander

import "math"

// WhiteSpace selects how mirror text is broken into lines.
type WhiteSpace int

const (
	// PreWrap keeps spaces and newlines and wraps at word boundaries,
	// breaking inside a word that does not fit on its own.
	PreWrap WhiteSpace = iota
	// NoWrap keeps everything on one line.
	NoWrap
)

func (w WhiteSpace) String() string {
	if w == NoWrap {
		return "nowrap"
	}
	return "pre-wrap"
}

type line struct {
	start, end int // rune range, end exclusive
	hard       bool
	width      float64
}

// layout is the result of flowing text through a mirror's content box.
type layout struct {
	runes  []rune
	lines  []line
	style  Style
	indent float64
}

func flow(text string, st Style, ws WhiteSpace) *layout {
	l := &layout{runes: []rune(text), style: st, indent: st.TextIndent}
	if ws == NoWrap {
		l.lines = []line{{start: 0, end: len(l.runes), width: l.measure(0, len(l.runes), l.indent)}}
		return l
	}

	maxWidth := st.contentWidth()
	runes := l.runes
	start := 0
	x := l.indent
	lastBreak := -1

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			l.lines = append(l.lines, line{start: start, end: i, hard: true, width: x})
			start, x, lastBreak = i+1, 0, -1
			continue
		}

		next := x + l.advance(r, x)
		// spaces hang at the end of a line and never force a wrap
		if maxWidth > 0 && next > maxWidth && !isSpace(r) && i > start {
			brk := i
			if lastBreak > start {
				brk = lastBreak
			}
			l.lines = append(l.lines, line{start: start, end: brk, width: l.measure(start, brk, l.lineIndent(start))})
			start, lastBreak = brk, -1
			x = l.measure(start, i, 0)
			next = x + l.advance(r, x)
		}
		if isSpace(r) {
			lastBreak = i + 1
		}
		x = next
	}
	l.lines = append(l.lines, line{start: start, end: len(runes), width: x})
	return l
}

// caret returns the static position of offset within the content box.
func (l *layout) caret(offset int) Point {
	lh := l.style.lineHeight()
	offset = min(max(offset, 0), len(l.runes))
	for i, ln := range l.lines {
		if offset < ln.start {
			continue
		}
		last := i == len(l.lines)-1
		if offset < ln.end || (offset == ln.end && (ln.hard || last)) {
			return Point{
				Top:  float64(i) * lh,
				Left: l.measure(ln.start, offset, l.lineIndent(ln.start)),
			}
		}
	}
	return Point{}
}

// extent returns the size of the laid out text.
func (l *layout) extent() (width, height float64) {
	for _, ln := range l.lines {
		width = max(width, ln.width)
	}
	return width, float64(len(l.lines)) * l.style.lineHeight()
}

func (l *layout) lineIndent(start int) float64 {
	if start == 0 {
		return l.indent
	}
	return 0
}

func (l *layout) measure(from, to int, x float64) float64 {
	for i := from; i < to; i++ {
		x += l.advance(l.runes[i], x)
	}
	return x
}

func (l *layout) advance(r rune, x float64) float64 {
	st := l.style
	m := st.metrics()
	if r == '\t' {
		stop := float64(st.tabSize()) * (m.Advance(st.Font, ' ') + st.LetterSpacing + st.WordSpacing)
		if stop <= 0 {
			return 0
		}
		return (math.Floor(x/stop)+1)*stop - x
	}
	adv := m.Advance(st.Font, r) + st.LetterSpacing
	if r == ' ' || r == '\u00a0' {
		adv += st.WordSpacing
	}
	return adv
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}
