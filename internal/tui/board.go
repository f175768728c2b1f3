package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"chat-widget/internal/domain"
)

// renderedMsg tells the program that the board has new entries to draw.
type renderedMsg struct{}

// Board is the terminal message list. Render may be called from any
// goroutine, including the program's own update loop, so it never blocks on
// the program.
type Board struct {
	mu      sync.Mutex
	entries []domain.TranscriptEntry
	program *tea.Program
}

func NewBoard() *Board {
	return &Board{}
}

// Attach connects the board to the program that should redraw on new entries.
func (b *Board) Attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.program = p
}

func (b *Board) Render(entry domain.TranscriptEntry) {
	b.mu.Lock()
	b.entries = append(b.entries, entry)
	p := b.program
	b.mu.Unlock()

	if p != nil {
		go p.Send(renderedMsg{})
	}
}

func (b *Board) snapshot() []domain.TranscriptEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.TranscriptEntry, len(b.entries))
	copy(out, b.entries)
	return out
}
