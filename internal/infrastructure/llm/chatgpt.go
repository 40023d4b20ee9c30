package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"NewsDigest/internal/config"
	"NewsDigest/internal/ports"
)

// ChatGPTClient implements ports.Completer backed by OpenAI-compatible chat completion APIs.
type ChatGPTClient struct {
	model  string
	apiKey string
	client *openai.Client
}

var _ ports.Completer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration; httpClient may be nil.
// cfg.Endpoint is the API base URL (for example https://api.openai.com/v1).
func NewChatGPTClient(cfg config.LLMConfig, httpClient *http.Client) *ChatGPTClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	clientCfg.HTTPClient = httpClient

	return &ChatGPTClient{
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

// Complete sends the system instruction and prompt as one chat turn.
func (c *ChatGPTClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	req := openai.ChatCompletionRequest{Model: c.model}
	if system = strings.TrimSpace(system); system != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chatgpt error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("chatgpt request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chatgpt returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
