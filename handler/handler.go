package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"chat-widget/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// Replier is the use case the handler fronts.
type Replier interface {
	Reply(ctx context.Context, in usecase.ReplyInput) (usecase.ReplyOutput, error)
}

type messageRequest struct {
	Message *string `json:"message"`
}

type messageResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the widget's reply requests behind a Lambda function URL.
type Handler struct {
	svc    Replier
	logger *slog.Logger
}

func NewHandler(svc Replier) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: reply service must not be nil")
	}
	return &Handler{svc: svc, logger: slog.Default()}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", correlationID)

	method := req.RequestContext.HTTP.Method
	switch method {
	case http.MethodOptions:
		return respond(http.StatusNoContent, correlationID, ""), nil
	case http.MethodPost:
	default:
		return errorResult(http.StatusMethodNotAllowed, correlationID, usecase.ErrorInvalidInput), nil
	}

	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			logger.Warn("invalid base64 body", "err", err)
			return errorResult(http.StatusBadRequest, correlationID, usecase.ErrorInvalidInput), nil
		}
		body = string(decoded)
	}

	var in messageRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil || in.Message == nil {
		logger.Warn("invalid request body", "err", err)
		return errorResult(http.StatusBadRequest, correlationID, usecase.ErrorInvalidInput), nil
	}

	out, err := h.svc.Reply(ctx, usecase.ReplyInput{Message: *in.Message, RequestID: correlationID})
	if err != nil {
		status, code := mapError(err)
		logger.Error("reply failed", "err", err, "status", status)
		return errorResult(status, correlationID, code), nil
	}

	payload, err := json.Marshal(messageResponse{Response: out.Reply})
	if err != nil {
		logger.Error("encode response", "err", err)
		return errorResult(http.StatusInternalServerError, correlationID, usecase.ErrorInternal), nil
	}
	logger.Info("reply sent", "request_id", out.RequestID)
	return respond(http.StatusOK, correlationID, string(payload)), nil
}

func mapError(err error) (int, usecase.ErrorCode) {
	switch code := usecase.CodeOf(err); code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, code
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, code
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, code
	default:
		return http.StatusInternalServerError, usecase.ErrorInternal
	}
}

func errorResult(status int, correlationID string, code usecase.ErrorCode) events.LambdaFunctionURLResponse {
	payload, _ := json.Marshal(errorResponse{Error: string(code)})
	return respond(status, correlationID, string(payload))
}

func respond(status int, correlationID, body string) events.LambdaFunctionURLResponse {
	headers := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, " + correlationHeader,
		correlationHeader:              correlationID,
	}
	if body != "" {
		headers["Content-Type"] = "application/json"
	}
	return events.LambdaFunctionURLResponse{StatusCode: status, Headers: headers, Body: body}
}

// headerValue looks a header up case-insensitively; function URLs lowercase
// header names but direct invocations may not.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
