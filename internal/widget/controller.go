package widget

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chat-widget/internal/domain"
)

// Display is the visual message list. Render appends one element tagged with
// the entry's sender class; it never replaces earlier elements.
type Display interface {
	Render(entry domain.TranscriptEntry)
}

// Input is the text field the user types into.
type Input interface {
	Value() string
	Clear()
}

// Replier sends one user message to the reply service and returns the reply.
type Replier interface {
	Reply(ctx context.Context, message string) (string, error)
}

// Controller owns a session transcript and mediates between the input field,
// the display and the reply service.
type Controller struct {
	replier Replier
	display Display
	input   Input
	logger  *slog.Logger
	timeout time.Duration

	mu         sync.Mutex
	transcript Transcript
	inflight   sync.WaitGroup
}

type Option func(*Controller)

// WithInput attaches the input field read by Send and cleared after each
// submission.
func WithInput(in Input) Option {
	return func(c *Controller) {
		c.input = in
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestTimeout bounds each reply request. Zero leaves requests unbounded.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(r Replier, d Display, opts ...Option) (*Controller, error) {
	if r == nil {
		return nil, errors.New("widget: replier must not be nil")
	}
	if d == nil {
		return nil, errors.New("widget: display must not be nil")
	}
	c := &Controller{
		replier: r,
		display: d,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Send is the handler for both triggers (send button and Enter key): it
// submits whatever the input field currently holds.
func (c *Controller) Send() {
	text := ""
	if c.input != nil {
		text = c.input.Value()
	}
	c.SubmitUserMessage(text)
}

// SubmitUserMessage records and renders text as a user entry, clears the input
// field and requests a reply. Empty text is submitted like any other.
func (c *Controller) SubmitUserMessage(text string) {
	c.appendEntry(domain.UserEntry(text))
	if c.input != nil {
		c.input.Clear()
	}
	c.RequestReply(text)
}

// RequestReply asks the reply service for a reply to text without blocking.
// A successful reply is appended as a bot entry; a failure is logged and the
// transcript is left untouched. Replies are appended in arrival order, which
// need not match submission order.
func (c *Controller) RequestReply(text string) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		ctx := context.Background()
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		reply, err := c.replier.Reply(ctx, text)
		if err != nil {
			c.logger.Error("reply request failed", "err", err, "message_length", len(text))
			return
		}
		c.appendEntry(domain.BotEntry(reply))
	}()
}

// Render hands entry to the display. It does not touch the transcript.
func (c *Controller) Render(entry domain.TranscriptEntry) {
	c.display.Render(entry)
}

// Transcript returns a snapshot of the session transcript.
func (c *Controller) Transcript() []domain.TranscriptEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Entries()
}

// Wait blocks until every reply request issued so far has resolved.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// appendEntry keeps display order identical to transcript order by rendering
// under the same lock as the append.
func (c *Controller) appendEntry(entry domain.TranscriptEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript.Append(entry)
	c.Render(entry)
}
