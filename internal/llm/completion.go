package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/mindfulmate/internal/config"
	"github.com/comigor/mindfulmate/internal/logger"
)

// ErrEmptyCompletion is returned when the API answers without any choice.
var ErrEmptyCompletion = errors.New("llm returned no choices")

// Completion is the result of a chat completion call.
type Completion struct {
	Text         string
	Model        string
	FinishReason string
	Usage        openai.Usage
	Raw          openai.ChatCompletionResponse
}

// Completer turns a conversation into the next assistant message.
type Completer struct {
	client Client
	cfg    config.LLMConfig
}

// NewCompleter creates a Completer sending requests through client.
func NewCompleter(client Client, cfg config.LLMConfig) *Completer {
	return &Completer{client: client, cfg: cfg}
}

// Model returns the configured chat model.
func (c *Completer) Model() string { return c.cfg.Model }

// Complete sends msgs to the chat-completion API and returns the first choice.
func (c *Completer) Complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (Completion, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, ErrEmptyCompletion
	}

	choice := resp.Choices[0]
	logger.L.Debug("chat completion received", "model", resp.Model, "finish_reason", choice.FinishReason,
		"total_tokens", resp.Usage.TotalTokens, "duration", time.Since(start))
	return Completion{
		Text:         choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Usage:        resp.Usage,
		Raw:          resp,
	}, nil
}

// IsAuthError reports whether err looks like a rejected API credential.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && isAuthStatus(apiErr.HTTPStatusCode) {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && isAuthStatus(reqErr.HTTPStatusCode) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "api key") || strings.Contains(msg, "auth") || strings.Contains(msg, "401")
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
