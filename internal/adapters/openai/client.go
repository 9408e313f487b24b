package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gopenai "github.com/sashabaranov/go-openai"

	"replydesk/internal/adapters/observability"
	"replydesk/internal/domain"
)

// Client calls an OpenAI-compatible chat-completion endpoint. Every call is
// bounded by timeout and capped at maxTokens of output; there is no
// automatic retry — retryability is signaled to the caller via error kind.
type Client struct {
	c         *gopenai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

func New(apiKey, baseURL, model string, maxTokens int, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg := gopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		c:         gopenai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}, nil
}

func (c *Client) Complete(ctx context.Context, system, user string) (domain.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.c.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: system},
			{Role: gopenai.ChatMessageRoleUser, Content: user},
		},
	})
	observability.ObserveExternal("openai", "chat_completions", statusOf(err), time.Since(start))
	if err != nil {
		return domain.Completion{}, classify(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return domain.Completion{}, domain.E(domain.KindUpstreamUnavailable, "AI service returned an empty completion", nil)
	}
	return domain.Completion{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// classify maps transport/API failures onto the upstream error kinds.
// Timeouts and rate limits are retryable by the caller; auth problems are a
// configuration fault whose detail must not reach end users.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.E(domain.KindUpstreamTimeout, "AI service timed out", err)
	}
	switch status := statusOf(err); status {
	case http.StatusRequestTimeout:
		return domain.E(domain.KindUpstreamTimeout, "AI service timed out", err)
	case http.StatusTooManyRequests:
		return domain.E(domain.KindUpstreamRateLimited, "AI service rate limit exceeded", err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.E(domain.KindUpstreamConfig, "AI service rejected credentials", err)
	default:
		return domain.E(domain.KindUpstreamUnavailable, "AI service unavailable", err)
	}
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
