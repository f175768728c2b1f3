package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"chat-widget/internal/domain"
	"chat-widget/internal/integrations/paramstore"
)

const defaultMaxMessage = 1000

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
	Moderate(ctx context.Context, input string) (bool, error)
}

type ExchangeStore interface {
	GetExchange(ctx context.Context, requestID string) (domain.Exchange, bool, error)
	SaveExchange(ctx context.Context, ex domain.Exchange) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ReplyService turns one widget message into one reply. It keeps no
// conversation state: every message is answered on its own.
type ReplyService struct {
	params        ParamGetter
	llm           LLMClient
	store         ExchangeStore
	paramPrefix   string
	maxMessageLen int

	cacheMu      sync.RWMutex
	cacheLoaded  bool
	systemPrompt string
	model        string
}

type ReplyInput struct {
	Message   string
	RequestID string
}

type ReplyOutput struct {
	Reply     string
	RequestID string
}

func NewReplyService(p ParamGetter, llm LLMClient, s ExchangeStore, paramPrefix string, maxMessageLen int) (*ReplyService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: exchange store must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessage
	}
	return &ReplyService{
		params:        p,
		llm:           llm,
		store:         s,
		paramPrefix:   paramPrefix,
		maxMessageLen: maxMessageLen,
	}, nil
}

// Reply answers in.Message. A request ID that was already answered returns
// the logged reply instead of calling the model again.
func (s *ReplyService) Reply(ctx context.Context, in ReplyInput) (ReplyOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ReplyOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if utf8.RuneCountInString(message) > s.maxMessageLen {
		return ReplyOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	requestID := strings.TrimSpace(in.RequestID)
	if requestID == "" {
		requestID = newUUID()
	} else {
		prior, found, err := s.store.GetExchange(ctx, requestID)
		if err != nil {
			return ReplyOutput{}, newError(ErrorInternal, "dynamodb_read_error", err)
		}
		if found {
			return ReplyOutput{Reply: prior.Reply, RequestID: requestID}, nil
		}
	}

	if err := s.ensureConfig(ctx); err != nil {
		return ReplyOutput{}, newError(ErrorInternal, "ssm_load_error", err)
	}

	flagged, err := s.llm.Moderate(ctx, message)
	if err != nil {
		if isRateLimited(err) {
			return ReplyOutput{}, newError(ErrorRateLimited, "moderation_rate_limited", err)
		}
		return ReplyOutput{}, newError(ErrorUpstream, "moderation_error", err)
	}
	if flagged {
		return ReplyOutput{}, newError(ErrorInvalidInput, "moderation_flagged", nil)
	}

	raw, err := s.llm.Chat(ctx, s.model, buildPromptMessages(s.systemPrompt, message))
	if err != nil {
		if isRateLimited(err) {
			return ReplyOutput{}, newError(ErrorRateLimited, "openai_rate_limited", err)
		}
		return ReplyOutput{}, newError(ErrorUpstream, "openai_error", err)
	}
	reply := strings.TrimSpace(raw)
	if reply == "" {
		return ReplyOutput{}, newError(ErrorUpstream, "openai_empty_reply", nil)
	}

	if err := s.store.SaveExchange(ctx, domain.Exchange{
		RequestID: requestID,
		Message:   message,
		Reply:     reply,
		Model:     s.model,
	}); err != nil {
		return ReplyOutput{}, newError(ErrorInternal, "dynamodb_write_error", err)
	}

	return ReplyOutput{Reply: reply, RequestID: requestID}, nil
}

// ensureConfig loads prompt and model once per process. A failed load is
// retried on the next request.
func (s *ReplyService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	systemPrompt, err := s.params.GetParameter(ctx, s.paramPrefix+"/system_prompt")
	if err != nil && !errors.Is(err, paramstore.ErrNotFound) {
		return fmt.Errorf("usecase: load system prompt: %w", err)
	}
	model, err := s.params.GetParameter(ctx, s.paramPrefix+"/config/openai_model")
	if err != nil {
		return fmt.Errorf("usecase: load openai model: %w", err)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return errors.New("usecase: openai model parameter is empty")
	}

	s.systemPrompt = systemPrompt
	s.model = model
	s.cacheLoaded = true
	return nil
}

func isRateLimited(err error) bool {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.HTTPStatusCode() == 429
}

var newUUID = func() string {
	return uuid.NewString()
}
