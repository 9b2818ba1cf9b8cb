package expander

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// BoxSizing selects which box Width and Height describe.
type BoxSizing int

const (
	ContentBox BoxSizing = iota
	BorderBox
)

// TextTransform is a case mapping applied before layout.
type TextTransform int

const (
	TransformNone TextTransform = iota
	Uppercase
	Lowercase
	Capitalize
)

// Font identifies a face for Metrics.
type Font struct {
	Family  string
	Size    float64
	Style   string
	Variant string
	Weight  int
}

// Edges holds per-side widths.
type Edges struct {
	Top, Right, Bottom, Left float64
}

func (e Edges) horizontal() float64 { return e.Left + e.Right }
func (e Edges) vertical() float64 { return e.Top + e.Bottom }

// Metrics measures glyphs. Hosts rendering real fonts supply their own;
// terminal hosts use Cells.
type Metrics interface {
	Advance(f Font, r rune) float64
	LineHeight(f Font) float64
}

// Cells measures text in terminal cells.
type Cells struct{}

func (Cells) Advance(_ Font, r rune) float64 {
	return float64(runewidth.RuneWidth(r))
}

func (Cells) LineHeight(Font) float64 { return 1 }

// Style is the layout-affecting subset of a field's computed style.
// Zero Width or Height means unbounded.
type Style struct {
	BoxSizing      BoxSizing
	Font           Font
	LineHeight     float64
	Padding        Edges
	Border         Edges
	LetterSpacing  float64
	WordSpacing    float64
	TextTransform  TextTransform
	TextIndent     float64
	TextDecoration string
	Width          float64
	Height         float64
	MinHeight      float64
	MaxHeight      float64
	TabSize        int
	Metrics        Metrics
}

func (s Style) metrics() Metrics {
	if s.Metrics == nil {
		return Cells{}
	}
	return s.Metrics
}

func (s Style) lineHeight() float64 {
	if s.LineHeight > 0 {
		return s.LineHeight
	}
	return s.metrics().LineHeight(s.Font)
}

func (s Style) tabSize() int {
	if s.TabSize <= 0 {
		return 8
	}
	return s.TabSize
}

// contentWidth returns the width available to text, or 0 when unbounded.
func (s Style) contentWidth() float64 {
	if s.Width <= 0 {
		return 0
	}
	w := s.Width
	if s.BoxSizing == BorderBox {
		w -= s.Padding.horizontal() + s.Border.horizontal()
	}
	return max(w, 0)
}

// contentHeight clamps Height to the min/max bounds, 0 when unbounded.
func (s Style) contentHeight() float64 {
	h := s.Height
	if h > 0 && s.BoxSizing == BorderBox {
		h = max(h-s.Padding.vertical()-s.Border.vertical(), 0)
	}
	if s.MaxHeight > 0 && h > s.MaxHeight {
		h = s.MaxHeight
	}
	if h > 0 && h < s.MinHeight {
		h = s.MinHeight
	}
	return h
}

func (s Style) transform(text string) string {
	switch s.TextTransform {
	case Uppercase:
		return strings.Map(unicode.ToUpper, text)
	case Lowercase:
		return strings.Map(unicode.ToLower, text)
	case Capitalize:
		start := true
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				start = true
				return r
			}
			if start {
				start = false
				return unicode.ToTitle(r)
			}
			return r
		}, text)
	}
	return text
}
