package tui

import (
	"github.com/bastiangx/wordexpand/pkg/expander"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/mattn/go-runewidth"
)

const prompt = "> "

// Field adapts a bubbles text input to expander.Field. The prompt is
// reported as left padding so measured positions are screen columns.
type Field struct {
	expander.Anchor

	input   textinput.Model
	parent  expander.Container
	focused bool
}

func newField(parent expander.Container, placeholder string) *Field {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.PromptStyle = promptStyle
	in.Focus()
	return &Field{input: in, parent: parent, focused: true}
}

func (f *Field) Kind() expander.Kind { return expander.SingleLine }
func (f *Field) Value() string { return f.input.Value() }
func (f *Field) SetValue(v string) { f.input.SetValue(v) }

func (f *Field) Selection() (int, int) {
	p := f.input.Position()
	return p, p
}

// Select moves the caret to end. The input has no selection range.
func (f *Field) Select(_, end int) { f.input.SetCursor(end) }

func (f *Field) ScrollOffset() expander.Scroll { return expander.Scroll{} }

func (f *Field) Style() expander.Style {
	return expander.Style{
		Padding: expander.Edges{Left: float64(runewidth.StringWidth(prompt))},
		Height:  1,
		Metrics: expander.Cells{},
	}
}

func (f *Field) Parent() expander.Container { return f.parent }
func (f *Field) Focused() bool { return f.focused }

func (f *Field) Focus() {
	f.focused = true
	f.input.Focus()
}

func (f *Field) blur() {
	f.focused = false
	f.input.Blur()
}
