package ai

import "context"

// GenerationConfig is passed unchanged to the provider on every call.
type GenerationConfig struct {
	Temperature     float64
	MaxOutputTokens int
	TopP            float64
}

// DefaultGeneration favours consistent, bounded answers.
func DefaultGeneration() GenerationConfig {
	return GenerationConfig{Temperature: 0.3, MaxOutputTokens: 8000, TopP: 0.95}
}

// Completion is the text produced for one prompt.
type Completion struct {
	Text  string
	Model string
}

type Client interface {
	// Generate sends prompt and returns the narrative answer. Implementations
	// map provider failures onto the errors in this package.
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (Completion, error)
}
