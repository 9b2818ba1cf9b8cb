package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/bastiangx/wordexpand/internal/utils"
	"github.com/bastiangx/wordexpand/pkg/expander"
	"github.com/bastiangx/wordexpand/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const prompt = "> "

var (
	wordStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9893a5", Dark: "#6e6a86"})
)

// lineField is a single-line field whose caret always follows the text.
type lineField struct {
	expander.Anchor
	layer *expander.Layer
	value string
	caret int
}

func newLineField() *lineField {
	f := &lineField{layer: expander.NewLayer()}
	f.layer.InsertBefore(f, nil)
	return f
}

func (f *lineField) Kind() expander.Kind { return expander.SingleLine }
func (f *lineField) Value() string { return f.value }
func (f *lineField) Selection() (int, int) { return f.caret, f.caret }
func (f *lineField) Select(_, end int) { f.caret = end }
func (f *lineField) ScrollOffset() expander.Scroll { return expander.Scroll{} }
func (f *lineField) Parent() expander.Container { return f.layer }
func (f *lineField) Focused() bool { return true }
func (f *lineField) Focus() {}

func (f *lineField) SetValue(v string) {
	f.value = v
	f.caret = min(f.caret, len([]rune(v)))
}

func (f *lineField) Style() expander.Style {
	return expander.Style{
		Padding: expander.Edges{Left: float64(runewidth.StringWidth(prompt))},
		Height:  1,
		Metrics: expander.Cells{},
	}
}

// typeText appends s at the end and reports the input.
func (f *lineField) typeText(s string) {
	f.value += s
	f.caret = len([]rune(f.value))
	f.EmitInput()
}

type listPopup struct {
	expander.PopupEmitter
	key     string
	entries []suggest.Entry
	at      expander.Point
}

func (p *listPopup) Place(at expander.Point) { p.at = at }

func renderList(key string, entries []suggest.Entry) expander.Popup {
	if len(entries) == 0 {
		return nil
	}
	return &listPopup{key: key, entries: entries}
}

// terminal prints the line mode UI.
type terminal struct {
	out io.Writer
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out}
}

func (t *terminal) banner(keys []string) {
	fmt.Fprintln(t.out, "Typer CLI [BETA]")
	fmt.Fprintf(t.out, "type text, use %s to expand, /N to pick, /esc, /clear, /show, /q:\n", strings.Join(keys, " "))
}

func (t *terminal) prompt() {
	fmt.Fprint(t.out, prompt)
}

func (t *terminal) note(msg string) {
	fmt.Fprintln(t.out, mutedStyle.Render(msg))
}

func (t *terminal) value(f *lineField) {
	fmt.Fprintf(t.out, "%s%s\n", prompt, f.Value())
}

// popup prints the field, a caret under the typed fragment, and the
// numbered entries.
func (t *terminal) popup(f *lineField, p *listPopup) {
	t.value(f)
	fmt.Fprintf(t.out, "%s^\n", strings.Repeat(" ", int(p.at.Left)))
	for i, e := range p.entries {
		detail := e.Detail
		if detail == "" && e.Score > 0 {
			detail = "freq: " + utils.FormatWithCommas(e.Score)
		}
		fmt.Fprintf(t.out, "%2d. %s %s\n", i+1, wordStyle.Render(e.Label), mutedStyle.Render(detail))
	}
}
