package llm

import (
	"context"
	"fmt"
)

// Client is an abstraction over LLM providers.
type Client interface {
	// GenerateText generates free-text content for a prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateJSON generates content expected to be a JSON document.
	// Implementations strip markdown code fences before returning.
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	// GenerateVision generates content for a prompt plus a PNG image.
	GenerateVision(ctx context.Context, prompt string, imagePNG []byte) (string, error)
	// Close releases any resources held by the client.
	Close() error
}

// NewClient creates a client for a resolved provider/model/credential.
func NewClient(ctx context.Context, res Resolution) (Client, error) {
	switch res.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, res.Model, res.APIKey)
	case ProviderOpenAI:
		return NewOpenAIClient(res.Model, res.APIKey), nil
	case ProviderAnthropic:
		return NewAnthropicClient(res.Model, res.APIKey), nil
	default:
		return nil, fmt.Errorf("no client for provider %q", res.Provider)
	}
}
