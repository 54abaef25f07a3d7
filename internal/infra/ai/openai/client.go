package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/formc-review/internal/domain/ai"
)

const DefaultModel = "gpt-4o"

type Client struct {
	*openai.Client
	Model string
}

// NewClient builds a chat completion client. baseURL may be empty.
func NewClient(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

// Generate sends the prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string, gen domain.GenerationConfig) (domain.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens and leave sampling at the fixed defaults
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = gen.MaxOutputTokens
	} else {
		req.MaxTokens = gen.MaxOutputTokens
		req.Temperature = float32(gen.Temperature)
		req.TopP = float32(gen.TopP)
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Completion{}, mapError(ctx, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return domain.Completion{}, eris.Wrap(domain.ErrEmptyResponse, "openai: chat completion")
	}

	model := resp.Model
	if model == "" {
		model = c.Model
	}
	return domain.Completion{Text: resp.Choices[0].Message.Content, Model: model}, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return eris.Wrapf(domain.ErrTimeout, "openai: %v", err)
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return eris.Wrapf(domain.ErrUnauthorized, "openai: %v", err)
	case http.StatusTooManyRequests:
		return eris.Wrapf(domain.ErrQuotaExceeded, "openai: %v", err)
	}
	return eris.Wrap(err, "openai: failed to create chat completion")
}
