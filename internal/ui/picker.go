package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bobersnip/TextShortcutter/internal/store"
)

// maxVisible is how many rows the popup shows at once.
const maxVisible = 10

// Lister answers popup queries; search.Index implements it.
type Lister interface {
	Listing(query string) []store.Expansion
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
	shortcutStyle = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type pickerModel struct {
	lister    Lister
	input     textinput.Model
	items     []store.Expansion
	cursor    int
	offset    int
	chosen    string
	cancelled bool
	width     int
}

func newPickerModel(l Lister, initial []store.Expansion) pickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to search"
	ti.Prompt = "> "
	ti.CharLimit = store.MaxShortcutLen
	ti.Focus()
	return pickerModel{lister: l, input: ti, items: initial, width: 72}
}

func (m pickerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if len(m.items) == 0 {
				return m, nil
			}
			m.chosen = m.items[m.cursor].ID
			return m, tea.Quit
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			m.scroll()
			return m, nil
		case "down", "ctrl+n", "tab":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
			m.scroll()
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.items = m.lister.Listing(m.input.Value())
		m.cursor, m.offset = 0, 0
	}
	return m, cmd
}

func (m *pickerModel) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+maxVisible {
		m.offset = m.cursor - maxVisible + 1
	}
}

func (m pickerModel) View() string {
	if m.chosen != "" || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("TextShortcutter"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(dimStyle.Render("  no matching expansions"))
		b.WriteString("\n")
	}
	end := min(m.offset+maxVisible, len(m.items))
	for i := m.offset; i < end; i++ {
		line := m.row(m.items[i])
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ move • enter paste • esc cancel"))
	return b.String()
}

func (m pickerModel) row(e store.Expansion) string {
	detail := e.Description
	if detail == "" {
		detail = preview(e.Body)
	}
	line := fmt.Sprintf("  %-16s %s", shortcutStyle.Render(e.Shortcut), dimStyle.Render(detail))
	if m.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	}
	return line
}

// preview is the first line of body, shortened.
func preview(body string) string {
	first, _, more := strings.Cut(body, "\n")
	r := []rune(first)
	if len(r) > 40 {
		return string(r[:40]) + "…"
	}
	if more {
		return first + " …"
	}
	return first
}

type confirmModel struct {
	shortcut string
	answer   bool
	done     bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "y", "Y":
			m.answer, m.done = true, true
			return m, tea.Quit
		case "n", "N", "esc", "enter", "ctrl+c":
			m.answer, m.done = false, true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	return titleStyle.Render("TextShortcutter") + "\n" +
		fmt.Sprintf("Paste %s? [y/N] ", shortcutStyle.Render(m.shortcut))
}

// Picker is a terminal Boundary built on bubbletea.
type Picker struct {
	Lister   Lister
	Notifier Notifier

	in  io.Reader
	out io.Writer

	// mu keeps one program on the terminal at a time.
	mu sync.Mutex
}

// NewPicker returns a picker on the given terminal streams. Nil streams use
// the process's stdin and stdout.
func NewPicker(l Lister, n Notifier, in io.Reader, out io.Writer) *Picker {
	if n == nil {
		n = LogNotifier{}
	}
	return &Picker{Lister: l, Notifier: n, in: in, out: out}
}

func (p *Picker) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.in != nil {
		opts = append(opts, tea.WithInput(p.in))
	}
	if p.out != nil {
		opts = append(opts, tea.WithOutput(p.out))
	}
	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, tea.ErrProgramKilled) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("popup: %w", err)
	}
	return final, nil
}

// RenderSelection shows ranked and waits for a choice.
func (p *Picker) RenderSelection(ctx context.Context, ranked []store.Expansion) (Selection, error) {
	final, err := p.run(ctx, newPickerModel(p.Lister, ranked))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Cancel, nil
		}
		return Cancel, err
	}
	m := final.(pickerModel)
	if m.cancelled || m.chosen == "" {
		return Cancel, nil
	}
	return Selection{ID: m.chosen}, nil
}

// Confirm asks y/N before a paste.
func (p *Picker) Confirm(ctx context.Context, e store.Expansion) (bool, error) {
	final, err := p.run(ctx, confirmModel{shortcut: e.Shortcut})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, nil
		}
		return false, err
	}
	return final.(confirmModel).answer, nil
}

func (p *Picker) Notify(kind Kind, message string) {
	p.Notifier.Notify(kind, message)
}
