package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chat-widget/internal/domain"
	"chat-widget/internal/widget"
)

// Sender is the trigger handler the model calls on Enter or on the send
// button. *widget.Controller satisfies it.
type Sender interface {
	Send()
}

type focusTarget int

const (
	focusInput focusTarget = iota
	focusButton
)

// chrome is the number of rows below the message list: input row and help row.
const chrome = 2

var (
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	buttonStyle = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder(), false, true)
	activeStyle = buttonStyle.Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the bubbletea model of the terminal chat widget.
type Model struct {
	sender   Sender
	input    *InputField
	board    *Board
	viewport viewport.Model
	focus    focusTarget
	width    int
}

func NewModel(sender Sender, input *InputField, board *Board) Model {
	vp := viewport.New(0, 0)
	vp.KeyMap = scrollKeys()
	return Model{
		sender:   sender,
		input:    input,
		board:    board,
		viewport: vp,
		focus:    focusInput,
	}
}

// scrollKeys limits the message list to paging and arrow keys. The default
// viewport bindings include letters, which belong to the input field.
func scrollKeys() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		Up:       key.NewBinding(key.WithKeys("up")),
		Down:     key.NewBinding(key.WithKeys("down")),
	}
}

func (m Model) Init() tea.Cmd {
	return m.input.model.Focus()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chrome, 1)
		m.input.model.Width = max(msg.Width-16, 10)
		m.refresh()
		return m, nil

	case renderedMsg:
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab, tea.KeyShiftTab:
			return m, m.toggleFocus()
		case tea.KeyEnter:
			m.sender.Send()
			m.refresh()
			return m, nil
		case tea.KeySpace:
			if m.focus == focusButton {
				m.sender.Send()
				m.refresh()
				return m, nil
			}
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	if _, isKey := msg.(tea.KeyMsg); isKey {
		if m.focus != focusInput {
			return m, nil
		}
		var cmd tea.Cmd
		*m.input.model, cmd = m.input.model.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	if m.focus == focusInput {
		var cmd tea.Cmd
		*m.input.model, cmd = m.input.model.Update(msg)
		cmds = append(cmds, cmd)
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	button := buttonStyle.Render("Send")
	if m.focus == focusButton {
		button = activeStyle.Render("Send")
	}
	return fmt.Sprintf("%s\n%s %s\n%s",
		m.viewport.View(),
		m.input.model.View(),
		button,
		helpStyle.Render("enter: send • tab: focus button • pgup/pgdn: scroll • esc: quit"),
	)
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusInput {
		m.focus = focusButton
		m.input.model.Blur()
		return nil
	}
	m.focus = focusInput
	return m.input.model.Focus()
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderEntries(m.board.snapshot(), m.width))
	m.viewport.GotoBottom()
}

func renderEntries(entries []domain.TranscriptEntry, width int) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		style := botStyle
		if e.Sender == domain.SenderUser {
			style = userStyle
		}
		if width > 0 {
			style = style.Width(width)
		}
		lines = append(lines, style.Render(e.Sender.String()+": "+e.Text))
	}
	return strings.Join(lines, "\n")
}

// Run starts the terminal widget and blocks until the user quits or ctx is
// done. Reply requests still in flight at exit are abandoned.
func Run(ctx context.Context, replier widget.Replier, opts ...widget.Option) error {
	board := NewBoard()
	input := NewInputField()
	ctrl, err := widget.New(replier, board, append(opts, widget.WithInput(input))...)
	if err != nil {
		return err
	}

	p := tea.NewProgram(NewModel(ctrl, input, board), tea.WithAltScreen(), tea.WithContext(ctx))
	board.Attach(p)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: run program: %w", err)
	}
	return nil
}
