package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"chat-widget/internal/domain"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultMaxTokens = 400
	defaultTimeout   = 20 * time.Second
)

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      domain.ChatMessage `json:"message"`
		FinishReason string             `json:"finish_reason"`
	} `json:"choices"`
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged bool `json:"flagged"`
	} `json:"results"`
}

// tokenPayload is the JSON shape stored in SSM for the API token. A bare token
// string is accepted too.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to an OpenAI-compatible API for single-turn replies and
// moderation.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string
	maxTokens   int
	temperature *float64

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMaxTokens caps reply length; chat widget replies should stay short.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = &t
	}
}

// NewClient creates a Client whose API key is read from
// <paramPrefix>/open-ai-token on first use and cached for the process lifetime.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("openai: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("openai: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		getter:      ps,
		paramPrefix: paramPrefix,
		maxTokens:   defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = fetchAPIKeyFromParamStore(ctx, c.getter, c.paramPrefix+"/open-ai-token")
	})
	return c.apiKey, c.keyErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

// endpointURL joins an API path onto baseURL, adding /v1 when the base does
// not already end with it.
func endpointURL(baseURL, path string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// Chat returns the content of the first completion choice.
func (c *Client) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", errors.New("openai: model must not be empty")
	}

	var payload chatResponse
	err := c.postJSON(ctx, "chat/completions", chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}, &payload)
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return payload.Choices[0].Message.Content, nil
}

// Moderate reports whether the Moderations API flags input.
func (c *Client) Moderate(ctx context.Context, input string) (bool, error) {
	var payload moderationResponse
	if err := c.postJSON(ctx, "moderations", moderationRequest{Input: input}, &payload); err != nil {
		return false, err
	}
	if len(payload.Results) == 0 {
		return false, errors.New("openai: no results in moderation response")
	}
	return payload.Results[0].Flagged, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("openai: marshal %s request: %w", path, err)
	}

	url := endpointURL(c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("openai: create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return fmt.Errorf("openai: %s request failed: %w", path, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("openai: read %s response: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("openai: decode %s response: %w", path, err)
	}
	return nil
}

func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("openai: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("openai: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("openai: fetch token from paramstore: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		if raw == "" {
			return "", errors.New("openai: API token is empty")
		}
		return raw, nil
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("openai: unmarshal paramstore token value as JSON: %w", err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", errors.New("openai: API token is empty")
	}
	return tp.Token, nil
}
