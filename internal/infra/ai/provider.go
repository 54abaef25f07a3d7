// Package ai selects the reasoning service adapter named in configuration.
package ai

import (
	"strings"

	"github.com/rotisserie/eris"

	domain "github.com/bryanwahyu/formc-review/internal/domain/ai"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
	"github.com/bryanwahyu/formc-review/internal/infra/ai/anthropic"
	"github.com/bryanwahyu/formc-review/internal/infra/ai/openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewClient returns the adapter for provider. A missing credential or an
// unknown provider is a configuration error.
func NewClient(provider, apiKey, model, baseURL string) (domain.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, eris.Wrap(compliance.ErrConfiguration, "ai: api key is required")
	}
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOpenAI:
		return openai.NewClient(apiKey, model, baseURL), nil
	case ProviderAnthropic:
		return anthropic.NewClient(apiKey, model, baseURL), nil
	}
	return nil, eris.Wrapf(compliance.ErrConfiguration, "ai: unknown provider %q", provider)
}
