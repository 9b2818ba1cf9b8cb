// Package tui is the interactive typer host: a bubbletea program with one
// text input driven by an expander controller.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bastiangx/wordexpand/pkg/config"
	"github.com/bastiangx/wordexpand/pkg/emoji"
	"github.com/bastiangx/wordexpand/pkg/expander"
	"github.com/bastiangx/wordexpand/pkg/suggest"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

const registryName = "typer"

// Options wires a Model.
type Options struct {
	Config *config.Config
	// Words backs the word provider. Required.
	Words suggest.Source
	// Emoji backs shortcode completion when the config enables it.
	Emoji  *emoji.Index
	Logger *log.Logger
}

// postMsg carries a function posted to the controller's loop.
type postMsg func()

// FocusMsg gives the input focus back.
type FocusMsg struct{}

// BlurMsg moves focus away from the input, dismissing any popup.
type BlurMsg struct{}

// Model is the typer TUI. All controller work happens inside Update.
type Model struct {
	cfg    *config.Config
	field  *Field
	layer  *expander.Layer
	queue  *expander.Queue
	ctrl   *expander.Controller
	detach []func()
	logger *log.Logger

	history []string
	status  string
	width   int
}

// New builds the model and attaches the expander to its field.
func New(opts Options) (*Model, error) {
	if opts.Words == nil {
		return nil, errors.New("tui: no word source")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("tui")
	}

	m := &Model{
		cfg:    cfg,
		layer:  expander.NewLayer(),
		queue:  expander.NewQueue(64),
		logger: logger,
	}
	m.field = newField(m.layer, "type "+strings.Join(expander.ParseKeys(cfg.Expander.Keys), " or ")+" to expand")
	m.layer.InsertBefore(m.field, nil)

	reg := expander.NewRegistry()
	if err := reg.Define(registryName, expander.Options{
		Keys:            cfg.Expander.Keys,
		Listbox:         listbox{},
		Loop:            m.queue,
		Logger:          logger.WithPrefix("expander"),
		ProviderTimeout: cfg.Expander.ProviderTimeout,
	}); err != nil {
		return nil, err
	}
	ctrl, err := reg.Attach(registryName, m.field)
	if err != nil {
		return nil, err
	}
	m.ctrl = ctrl

	m.detach = append(m.detach, suggest.NewProvider(opts.Words, render, cfg.ProviderOptions()).Attach(ctrl))
	if cfg.Emoji.Enabled && opts.Emoji != nil {
		m.detach = append(m.detach, emoji.NewProvider(opts.Emoji, render, cfg.Emoji.Key, cfg.Suggest.Limit).Attach(ctrl))
	}
	return m, nil
}

// Post runs fn inside Update. It is how goroutines such as a config
// watcher reach the model.
func (m *Model) Post(fn func()) { m.queue.Post(fn) }

// Reload applies a new config. Activation keys take effect on the next
// input; provider settings need a restart.
func (m *Model) Reload(cfg *config.Config) {
	cfg.Apply()
	m.ctrl.SetKeys(cfg.Expander.Keys)
	m.cfg = cfg
	m.status = "config reloaded, keys: " + strings.Join(m.ctrl.Keys(), " ")
	m.logger.Info("config reloaded", "keys", cfg.Expander.Keys)
}

// Close detaches providers and destroys the controller.
func (m *Model) Close() {
	for _, d := range m.detach {
		d()
	}
	m.detach = nil
	expander.Detach(m.field)
}

// Value returns the text in the input.
func (m *Model) Value() string { return m.field.Value() }

// History returns submitted lines, oldest first.
func (m *Model) History() []string { return append([]string(nil), m.history...) }

func (m *Model) waitForPost() tea.Cmd {
	q := m.queue
	return func() tea.Msg {
		return postMsg(<-q.C())
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForPost())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case postMsg:
		msg()
		return m, m.waitForPost()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case FocusMsg:
		m.focus()
		return m, nil

	case BlurMsg:
		m.blur()
		return m, nil

	case tea.MouseMsg:
		m.mouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.key(msg)
	}

	var cmd tea.Cmd
	m.field.input, cmd = m.field.input.Update(msg)
	return m, cmd
}

func (m *Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
		return m, tea.Quit
	}
	if !m.field.Focused() {
		switch msg.Type {
		case tea.KeyTab, tea.KeyEnter:
			m.focus()
		}
		return m, nil
	}

	if p := m.popup(); p != nil {
		switch msg.String() {
		case "up", "ctrl+p", "shift+tab":
			listbox{}.Navigate(m.field, p, -1)
			return m, nil
		case "down", "ctrl+n":
			listbox{}.Navigate(m.field, p, 1)
			return m, nil
		case "enter", "tab":
			if e, ok := p.current(); ok {
				p.EmitCommit(e)
				return m, nil
			}
		}
	}

	switch msg.Type {
	case tea.KeyEsc:
		if m.field.EmitKeyDown(expander.KeyEscape) {
			m.status = ""
		} else {
			m.blur()
		}
		return m, nil
	case tea.KeyEnter:
		m.submit()
		return m, nil
	}

	before, pos := m.field.Value(), m.field.input.Position()
	if msg.Paste {
		m.field.EmitPaste()
	}
	var cmd tea.Cmd
	m.field.input, cmd = m.field.input.Update(msg)
	if m.field.Value() != before {
		m.field.EmitInput()
	} else if m.field.input.Position() != pos {
		// Caret moves without edits leave the match stale.
		m.ctrl.Deactivate()
	}
	return m, cmd
}

func (m *Model) submit() {
	line := strings.TrimSpace(m.field.Value())
	m.ctrl.Deactivate()
	if line == "" {
		return
	}
	m.history = append(m.history, line)
	if over := len(m.history) - max(m.cfg.UI.Height, 1); over > 0 {
		m.history = m.history[over:]
	}
	m.field.SetValue("")
	m.status = ""
}

// blur takes focus from the input and tells the controller.
func (m *Model) blur() {
	if !m.field.Focused() {
		return
	}
	m.field.blur()
	m.field.EmitBlur()
	m.status = "input unfocused, tab to return"
}

func (m *Model) focus() {
	m.field.Focus()
	m.status = ""
}

// mouse handles left clicks. A click on a popup row commits it; the input
// loses focus to the popup first, as it would in a window system, and the
// commit hands focus back. Clicks on the input row focus it, and clicks
// anywhere else blur it.
func (m *Model) mouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return
	}
	if p := m.popup(); p != nil {
		if i, ok := p.itemAt(msg.Y-m.fieldRow()-1, m.cfg.UI.MaxVisible); ok {
			p.EmitMouseDown()
			m.blur()
			p.selected = i
			p.EmitCommit(p.entries[i])
			m.status = ""
			return
		}
	}
	if msg.Y == m.fieldRow() {
		m.focus()
		return
	}
	m.blur()
}

// popup returns the popup on screen, if any.
func (m *Model) popup() *popup {
	p, _ := m.ctrl.Popup().(*popup)
	return p
}

// fieldRow is the screen row of the input line.
func (m *Model) fieldRow() int {
	return 2 + len(m.history)
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("typer"))
	b.WriteString("  ")
	b.WriteString(hintStyle.Render(fmt.Sprintf("keys %s  tab/enter pick  esc dismiss or leave  ctrl+c quit",
		strings.Join(m.ctrl.Keys(), " "))))
	b.WriteString("\n\n")
	for _, line := range m.history {
		b.WriteString(historyStyle.Render(line))
		b.WriteByte('\n')
	}
	b.WriteString(m.field.input.View())
	b.WriteByte('\n')

	width := m.cfg.UI.Width
	if m.width > 0 {
		width = min(width, m.width)
	}
	if p := m.popup(); p != nil {
		b.WriteString(p.view(m.cfg.UI.MaxVisible, width))
		b.WriteByte('\n')
	} else if m.status != "" {
		b.WriteString(hintStyle.Render(m.status))
		b.WriteByte('\n')
	}
	return b.String()
}

// Run starts the program on the terminal and blocks until it exits.
func Run(m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
