package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"chat-widget/internal/domain"
	"chat-widget/internal/widget"
)

// Printer renders transcript entries as "<sender>: <text>" lines.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) Render(entry domain.TranscriptEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, "%s: %s\n", entry.Sender, entry.Text)
}

// lineInput holds the most recently read line until the controller clears it.
type lineInput struct {
	line string
}

func (l *lineInput) Value() string { return l.line }
func (l *lineInput) Clear()        { l.line = "" }

// Run reads one message per line from in until EOF or ctx is done. Each line
// counts as an Enter press, whatever its length. At EOF it waits for
// outstanding replies.
func Run(ctx context.Context, in io.Reader, out io.Writer, replier widget.Replier, opts ...widget.Option) error {
	input := &lineInput{}
	ctrl, err := widget.New(replier, NewPrinter(out), append(opts, widget.WithInput(input))...)
	if err != nil {
		return err
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadString('\n')
			if err == nil || line != "" {
				select {
				case lines <- strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					scanErr <- err
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				ctrl.Wait()
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("console: read input: %w", err)
					}
				default:
				}
				return nil
			}
			input.line = line
			ctrl.Send()
		}
	}
}
