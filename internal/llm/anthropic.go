package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
)

// AnthropicClient implements Client against the Anthropic messages API.
type AnthropicClient struct {
	model    string
	apiKey   string
	endpoint string
	http     *http.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(model, apiKey string) *AnthropicClient {
	return &AnthropicClient{
		model:    model,
		apiKey:   apiKey,
		endpoint: anthropicEndpoint,
		http:     &http.Client{Timeout: 120 * time.Second},
	}
}

type anthropicContentBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateText generates free-text content.
func (c *AnthropicClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, []anthropicContentBlock{{Type: "text", Text: prompt}})
}

// GenerateJSON generates JSON content. The messages API has no JSON response
// mode, so the prompt carries the format instruction and fences are stripped.
func (c *AnthropicClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	text, err := c.complete(ctx, []anthropicContentBlock{{Type: "text", Text: prompt}})
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// GenerateVision generates content for a prompt plus a PNG screenshot.
func (c *AnthropicClient) GenerateVision(ctx context.Context, prompt string, imagePNG []byte) (string, error) {
	blocks := []anthropicContentBlock{
		{Type: "image", Source: &anthropicSource{
			Type:      "base64",
			MediaType: "image/png",
			Data:      base64.StdEncoding.EncodeToString(imagePNG),
		}},
		{Type: "text", Text: prompt},
	}
	return c.complete(ctx, blocks)
}

// Close is a no-op; the client holds no persistent resources.
func (c *AnthropicClient) Close() error { return nil }

func (c *AnthropicClient) complete(ctx context.Context, content []anthropicContentBlock) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 4096,
		Messages:  []anthropicMessage{{Role: "user", Content: content}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read anthropic response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse anthropic response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := "unknown error"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, msg)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in anthropic response")
}
