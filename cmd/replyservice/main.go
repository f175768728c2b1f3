package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"chat-widget/handler"
	"chat-widget/internal/integrations/openai"
	"chat-widget/internal/integrations/paramstore"
	"chat-widget/internal/repository"
	"chat-widget/internal/usecase"
)

const defaultMaxMessageLength = 1000

// settings is the Lambda's environment, read once at cold start.
type settings struct {
	ExchangeTable    string
	ParamPrefix      string
	MaxMessageLength int
}

func loadSettings(getenv func(string) string) (settings, error) {
	s := settings{
		ExchangeTable:    strings.TrimSpace(getenv("EXCHANGE_TABLE")),
		ParamPrefix:      strings.TrimSpace(getenv("PARAM_PREFIX")),
		MaxMessageLength: defaultMaxMessageLength,
	}
	for key, v := range map[string]string{"EXCHANGE_TABLE": s.ExchangeTable, "PARAM_PREFIX": s.ParamPrefix} {
		if v == "" {
			return settings{}, fmt.Errorf("%s is not set", key)
		}
	}
	if raw := strings.TrimSpace(getenv("MAX_MESSAGE_LENGTH")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return settings{}, fmt.Errorf("MAX_MESSAGE_LENGTH must be a positive integer, got %q", raw)
		}
		s.MaxMessageLength = n
	}
	return s, nil
}

// newHandler builds the reply pipeline: SSM for secrets and prompt, OpenAI
// for the reply, DynamoDB for the exchange log.
func newHandler(ctx context.Context, s settings) (*handler.Handler, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	exchanges, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), s.ExchangeTable)
	if err != nil {
		return nil, err
	}
	llm, err := openai.NewClient(params, s.ParamPrefix)
	if err != nil {
		return nil, err
	}
	replies, err := usecase.NewReplyService(params, llm, exchanges, s.ParamPrefix, s.MaxMessageLength)
	if err != nil {
		return nil, err
	}
	return handler.NewHandler(replies)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	s, err := loadSettings(os.Getenv)
	if err != nil {
		slog.Error("invalid reply service environment", "err", err)
		os.Exit(1)
	}
	h, err := newHandler(context.Background(), s)
	if err != nil {
		slog.Error("reply service startup failed", "err", err, "table", s.ExchangeTable)
		os.Exit(1)
	}

	slog.Info("reply service ready", "table", s.ExchangeTable, "max_message_length", s.MaxMessageLength)
	lambda.Start(h.Handle)
}
