package widget

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"chat-widget/internal/domain"
)

type recordingDisplay struct {
	mu      sync.Mutex
	entries []domain.TranscriptEntry
}

func (d *recordingDisplay) Render(entry domain.TranscriptEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, entry)
}

func (d *recordingDisplay) rendered() []domain.TranscriptEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.TranscriptEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

type fakeInput struct {
	value   string
	cleared int
}

func (f *fakeInput) Value() string { return f.value }

func (f *fakeInput) Clear() {
	f.value = ""
	f.cleared++
}

type stubReplier struct {
	mu       sync.Mutex
	reply    func(ctx context.Context, message string) (string, error)
	messages []string
}

func (s *stubReplier) Reply(ctx context.Context, message string) (string, error) {
	s.mu.Lock()
	s.messages = append(s.messages, message)
	s.mu.Unlock()
	return s.reply(ctx, message)
}

func (s *stubReplier) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func replyWith(answer string) *stubReplier {
	return &stubReplier{reply: func(context.Context, string) (string, error) { return answer, nil }}
}

func failWith(err error) *stubReplier {
	return &stubReplier{reply: func(context.Context, string) (string, error) { return "", err }}
}

// gatedReplier holds each request until its message is released.
type gatedReplier struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func newGatedReplier(messages ...string) *gatedReplier {
	g := &gatedReplier{gates: make(map[string]chan struct{})}
	for _, m := range messages {
		g.gates[m] = make(chan struct{})
	}
	return g
}

func (g *gatedReplier) Reply(_ context.Context, message string) (string, error) {
	g.mu.Lock()
	gate := g.gates[message]
	g.mu.Unlock()
	<-gate
	return "re:" + message, nil
}

func (g *gatedReplier) release(message string) {
	close(g.gates[message])
}

func newTestController(t *testing.T, r Replier, d Display, opts ...Option) *Controller {
	t.Helper()
	c, err := New(r, d, opts...)
	require.NoError(t, err)
	return c
}

func TestNew_ValidatesDependencies(t *testing.T) {
	_, err := New(nil, &recordingDisplay{})
	require.Error(t, err)

	_, err = New(replyWith("x"), nil)
	require.Error(t, err)
}

func TestSubmitUserMessage_LastEntryIsUserBeforeReply(t *testing.T) {
	defer goleak.VerifyNone(t)

	gated := newGatedReplier("hi")
	display := &recordingDisplay{}
	input := &fakeInput{value: "hi"}
	c := newTestController(t, gated, display, WithInput(input))

	c.SubmitUserMessage("hi")

	c.mu.Lock()
	last, ok := c.transcript.Last()
	c.mu.Unlock()
	require.True(t, ok)
	require.Equal(t, domain.UserEntry("hi"), last)

	entries := c.Transcript()
	require.Len(t, entries, 1)
	require.Equal(t, entries, display.rendered())
	require.Equal(t, 1, input.cleared)
	require.Empty(t, input.value)

	gated.release("hi")
	c.Wait()
}

func TestSubmitUserMessage_AppendsBotReply(t *testing.T) {
	defer goleak.VerifyNone(t)

	display := &recordingDisplay{}
	c := newTestController(t, replyWith("hello"), display)

	c.SubmitUserMessage("hi")
	c.Wait()

	want := []domain.TranscriptEntry{
		{Text: "hi", Sender: domain.SenderUser},
		{Text: "hello", Sender: domain.SenderBot},
	}
	if diff := cmp.Diff(want, c.Transcript()); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, display.rendered()); diff != "" {
		t.Fatalf("display mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitUserMessage_FailureIsLoggedAndTranscriptUnchanged(t *testing.T) {
	defer goleak.VerifyNone(t)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	display := &recordingDisplay{}
	c := newTestController(t, failWith(errors.New("connection refused")), display, WithLogger(logger))

	require.NotPanics(t, func() {
		c.SubmitUserMessage("hi")
		c.Wait()
	})

	require.Equal(t, []domain.TranscriptEntry{domain.UserEntry("hi")}, c.Transcript())
	require.Equal(t, []domain.TranscriptEntry{domain.UserEntry("hi")}, display.rendered())
	require.Contains(t, logs.String(), "reply request failed")
	require.Contains(t, logs.String(), "connection refused")
}

func TestSubmitUserMessage_EmptyTextStillRequests(t *testing.T) {
	defer goleak.VerifyNone(t)

	replier := replyWith("what?")
	c := newTestController(t, replier, &recordingDisplay{})

	c.SubmitUserMessage("")
	c.Wait()

	entries := c.Transcript()
	require.Equal(t, domain.UserEntry(""), entries[0])
	require.Equal(t, []string{""}, replier.received())
}

func TestSubmitUserMessage_RapidSubmissionsKeepUserOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	gated := newGatedReplier("a", "b")
	c := newTestController(t, gated, &recordingDisplay{})

	c.SubmitUserMessage("a")
	c.SubmitUserMessage("b")
	require.Equal(t, []domain.TranscriptEntry{domain.UserEntry("a"), domain.UserEntry("b")}, c.Transcript())

	// Resolve out of submission order.
	gated.release("b")
	gated.release("a")
	c.Wait()

	entries := c.Transcript()
	require.Len(t, entries, 4)
	require.Equal(t, []domain.TranscriptEntry{domain.UserEntry("a"), domain.UserEntry("b")}, entries[:2])
	require.ElementsMatch(t, []domain.TranscriptEntry{domain.BotEntry("re:a"), domain.BotEntry("re:b")}, entries[2:])
}

func TestTranscript_IsMonotonic(t *testing.T) {
	defer goleak.VerifyNone(t)

	replier := &stubReplier{reply: func(_ context.Context, message string) (string, error) {
		if len(message)%2 == 0 {
			return "", errors.New("boom")
		}
		return "ok " + message, nil
	}}
	c := newTestController(t, replier, &recordingDisplay{})

	previous := []domain.TranscriptEntry{}
	for i := 0; i < 50; i++ {
		c.SubmitUserMessage(fmt.Sprintf("msg-%d", i))
		current := c.Transcript()
		require.GreaterOrEqual(t, len(current), len(previous))
		require.Equal(t, previous, current[:len(previous)])
		previous = current
	}
	c.Wait()

	final := c.Transcript()
	require.Equal(t, previous, final[:len(previous)])
}

func TestSend_ReadsAndClearsInput(t *testing.T) {
	defer goleak.VerifyNone(t)

	replier := replyWith("pong")
	input := &fakeInput{value: "ping"}
	c := newTestController(t, replier, &recordingDisplay{}, WithInput(input))

	c.Send()
	c.Wait()

	require.Equal(t, []string{"ping"}, replier.received())
	require.Equal(t, 1, input.cleared)
	require.Equal(t, []domain.TranscriptEntry{domain.UserEntry("ping"), domain.BotEntry("pong")}, c.Transcript())
}

func TestSend_WithoutInputSubmitsEmptyText(t *testing.T) {
	replier := replyWith("pong")
	c := newTestController(t, replier, &recordingDisplay{})

	c.Send()
	c.Wait()

	require.Equal(t, []string{""}, replier.received())
}

func TestRequestTimeout_AbandonsHungRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	replier := &stubReplier{reply: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	c := newTestController(t, replier, &recordingDisplay{}, WithRequestTimeout(10*time.Millisecond))

	c.SubmitUserMessage("hi")
	c.Wait()

	require.Equal(t, []domain.TranscriptEntry{domain.UserEntry("hi")}, c.Transcript())
}

func TestRender_DoesNotTouchTranscript(t *testing.T) {
	display := &recordingDisplay{}
	c := newTestController(t, replyWith("x"), display)

	c.Render(domain.BotEntry("welcome"))

	require.Empty(t, c.Transcript())
	require.Equal(t, []domain.TranscriptEntry{domain.BotEntry("welcome")}, display.rendered())
}
