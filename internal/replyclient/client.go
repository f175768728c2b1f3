package replyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName          = "chat-widget/replyclient"
	correlationIDHeader = "X-Correlation-Id"
	maxErrorBody        = 4096
	maxReplyBody        = 1 << 20
)

type replyRequest struct {
	Message string `json:"message"`
}

// Client posts user messages to the reply service endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	tracer     trace.Tracer
	newID      func() string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// New creates a Client for the given http(s) endpoint. The default HTTP client
// has no timeout; bound requests through the context instead.
func New(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("replyclient: endpoint must not be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("replyclient: parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("replyclient: endpoint scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("replyclient: endpoint host must not be empty")
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		tracer:     otel.Tracer(tracerName),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Reply sends message and returns the "response" field of the reply. Every
// failure is returned as a *RequestError.
func (c *Client) Reply(ctx context.Context, message string) (string, error) {
	correlationID := c.newID()
	ctx, span := c.tracer.Start(ctx, "reply_request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.full", c.endpoint),
			attribute.String("chat.correlation_id", correlationID),
			attribute.Int("chat.message_length", len(message)),
		),
	)
	defer span.End()

	reply, err := c.do(ctx, message, correlationID)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			span.SetAttributes(attribute.String("chat.failure_reason", reqErr.Reason))
			if reqErr.StatusCode != 0 {
				span.SetAttributes(attribute.Int("http.response.status_code", reqErr.StatusCode))
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "reply request failed")
		return "", err
	}
	span.SetAttributes(attribute.Int("chat.reply_length", len(reply)))
	return reply, nil
}

func (c *Client) do(ctx context.Context, message, correlationID string) (string, error) {
	body, err := json.Marshal(replyRequest{Message: message})
	if err != nil {
		return "", &RequestError{Reason: ReasonBuildRequest, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &RequestError{Reason: ReasonBuildRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(correlationIDHeader, correlationID)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", &RequestError{Reason: ReasonTransport, URL: c.endpoint, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return "", &RequestError{
			Reason:     ReasonUnexpectedStatus,
			StatusCode: res.StatusCode,
			URL:        c.endpoint,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxReplyBody))
	if err != nil {
		return "", &RequestError{Reason: ReasonReadBody, URL: c.endpoint, Err: err}
	}
	return decodeReply(buf)
}

// decodeReply extracts the "response" string. A null, missing or non-string
// field is a failure rather than an empty reply.
func decodeReply(raw []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", &RequestError{Reason: ReasonMalformedBody, Err: err}
	}
	value, ok := fields["response"]
	if !ok || string(value) == "null" {
		return "", &RequestError{Reason: ReasonMissingResponse}
	}
	var reply string
	if err := json.Unmarshal(value, &reply); err != nil {
		return "", &RequestError{Reason: ReasonMissingResponse, Err: fmt.Errorf("response field is not a string: %w", err)}
	}
	return reply, nil
}
