package tui

import (
	"strings"

	"github.com/bastiangx/wordexpand/pkg/expander"
	"github.com/bastiangx/wordexpand/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
)

var (
	text   = lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}
	muted  = lipgloss.AdaptiveColor{Light: "#9893a5", Dark: "#6e6a86"}
	accent = lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"}
	base   = lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"}

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(text).Background(base).Padding(0, 1)
	hintStyle     = lipgloss.NewStyle().Italic(true).Foreground(muted)
	promptStyle   = lipgloss.NewStyle().Foreground(accent)
	historyStyle  = lipgloss.NewStyle().Foreground(muted)
	detailStyle   = lipgloss.NewStyle().Foreground(muted)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(base).Background(accent)
	popupStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent)
)

// popup is the suggestion menu. It lives in the field's layer while shown.
type popup struct {
	expander.PopupEmitter

	key      string
	entries  []suggest.Entry
	at       expander.Point
	selected int
}

func render(key string, entries []suggest.Entry) expander.Popup {
	if len(entries) == 0 {
		return nil
	}
	return &popup{key: key, entries: entries, selected: -1}
}

func (p *popup) Place(at expander.Point) { p.at = at }

// current returns the selected entry.
func (p *popup) current() (suggest.Entry, bool) {
	if p.selected < 0 || p.selected >= len(p.entries) {
		return suggest.Entry{}, false
	}
	return p.entries[p.selected], true
}

// window returns the range of entries shown when at most n fit.
func (p *popup) window(n int) (top, end int) {
	n = max(n, 1)
	if p.selected >= n {
		top = p.selected - n + 1
	}
	return top, min(len(p.entries), top+n)
}

// view renders the popup so its entries line up with the typed fragment.
func (p *popup) view(maxVisible, width int) string {
	top, end := p.window(maxVisible)
	lines := make([]string, 0, end-top)
	for i := top; i < end; i++ {
		e := p.entries[i]
		line := e.Label
		if e.Detail != "" && e.Detail != e.Label {
			line += " " + detailStyle.Render(e.Detail)
		}
		if i == p.selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	margin := max(int(p.at.Left)-1, 0)
	style := popupStyle.MarginLeft(margin)
	if width > 0 {
		style = style.MaxWidth(width)
	}
	return style.Render(strings.Join(lines, "\n"))
}

// itemAt maps a row inside the rendered popup to an entry index. Row 0
// is the top border.
func (p *popup) itemAt(row, maxVisible int) (int, bool) {
	top, end := p.window(maxVisible)
	i := top + row - 1
	if row < 1 || i >= end {
		return 0, false
	}
	return i, true
}

// listbox keeps one entry of the active popup selected.
type listbox struct{}

func (listbox) Install(_ expander.Field, p expander.Popup) {
	if pp, ok := p.(*popup); ok {
		pp.selected = -1
	}
}

func (listbox) Uninstall(expander.Field, expander.Popup) {}

func (listbox) ClearSelection(_ expander.Field, p expander.Popup) {
	if pp, ok := p.(*popup); ok {
		pp.selected = -1
	}
}

func (listbox) Navigate(_ expander.Field, p expander.Popup, step int) {
	pp, ok := p.(*popup)
	if !ok || len(pp.entries) == 0 {
		return
	}
	n := len(pp.entries)
	switch {
	case pp.selected < 0 && step > 0:
		pp.selected = 0
	case pp.selected < 0:
		pp.selected = n - 1
	default:
		pp.selected = ((pp.selected+step)%n + n) % n
	}
}
