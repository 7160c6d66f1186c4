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

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIClient implements Client against the OpenAI chat completions API.
type OpenAIClient struct {
	model    string
	apiKey   string
	endpoint string
	http     *http.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(model, apiKey string) *OpenAIClient {
	return &OpenAIClient{
		model:    model,
		apiKey:   apiKey,
		endpoint: openAIEndpoint,
		http:     &http.Client{Timeout: 120 * time.Second},
	}
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateText generates free-text content.
func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	req := openAIRequest{
		Model:       c.model,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
	}
	return c.complete(ctx, req)
}

// GenerateJSON generates JSON content using the API's JSON response mode.
func (c *OpenAIClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	req := openAIRequest{
		Model:       c.model,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
	}
	text, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// GenerateVision generates content for a prompt plus a PNG screenshot,
// delivered as a base64 data URL content part.
func (c *OpenAIClient) GenerateVision(ctx context.Context, prompt string, imagePNG []byte) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imagePNG)
	req := openAIRequest{
		Model: c.model,
		Messages: []openAIMessage{{
			Role: "user",
			Content: []openAIContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &openAIImageURL{URL: dataURL}},
			},
		}},
		Temperature: 0.1,
	}
	return c.complete(ctx, req)
}

// Close is a no-op; the client holds no persistent resources.
func (c *OpenAIClient) Close() error { return nil }

func (c *OpenAIClient) complete(ctx context.Context, reqBody openAIRequest) (string, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read openai response: %w", err)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse openai response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := "unknown error"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, msg)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return parsed.Choices[0].Message.Content, nil
}
