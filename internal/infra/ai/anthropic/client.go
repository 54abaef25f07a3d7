// Package anthropic adapts the Anthropic Messages API to the ai.Client port.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	domain "github.com/bryanwahyu/formc-review/internal/domain/ai"
)

const DefaultModel = "claude-sonnet-4-5-20250929"

type Client struct {
	client sdk.Client
	Model  string
}

// NewClient builds a Messages client. SDK retries are disabled so that one
// Generate call is one request.
func NewClient(apiKey, model, baseURL string) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: sdk.NewClient(opts...), Model: model}
}

func (c *Client) Generate(ctx context.Context, prompt string, gen domain.GenerationConfig) (domain.Completion, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.Model),
		MaxTokens: int64(gen.MaxOutputTokens),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	}
	if gen.Temperature > 0 {
		params.Temperature = sdk.Float(gen.Temperature)
	}
	// Newer models reject temperature and top_p together; top_p is only sent
	// when temperature is unset.
	if gen.TopP > 0 && gen.Temperature <= 0 {
		params.TopP = sdk.Float(gen.TopP)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return domain.Completion{}, mapError(ctx, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return domain.Completion{}, eris.Wrap(domain.ErrEmptyResponse, "anthropic: create message")
	}

	model := string(msg.Model)
	if model == "" {
		model = c.Model
	}
	return domain.Completion{Text: b.String(), Model: model}, nil
}

func mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return eris.Wrapf(domain.ErrTimeout, "anthropic: %v", err)
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return eris.Wrapf(domain.ErrUnauthorized, "anthropic: %v", err)
		case http.StatusTooManyRequests:
			return eris.Wrapf(domain.ErrQuotaExceeded, "anthropic: %v", err)
		}
	}
	return eris.Wrap(err, "anthropic: create message")
}
