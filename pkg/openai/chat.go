package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ChatClient calls an OpenAI-compatible /v1/chat/completions endpoint.
type ChatClient struct {
	transport
	model string
}

// NewChatClient creates a chat completion client.
func NewChatClient(baseURL, apiKey, model string) *ChatClient {
	return &ChatClient{
		transport: transport{
			baseURL: strings.TrimRight(baseURL, "/"),
			apiKey:  apiKey,
			limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
			client:  &http.Client{Timeout: 60 * time.Second},
		},
		model: model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReq struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResp struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Chat sends a system+user prompt pair and returns the assistant reply,
// whitespace-trimmed.
func (c *ChatClient) Chat(ctx context.Context, system, user string, temperature float64) (string, error) {
	msgs := []chatMessage{}
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: user})

	var result chatResp
	if err := c.postJSON(ctx, "openai chat", "/v1/chat/completions", chatReq{Model: c.model, Messages: msgs, Temperature: temperature}, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices in response")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
