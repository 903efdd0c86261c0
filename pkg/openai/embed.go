// Package openai provides clients for OpenAI-compatible embedding and
// chat completion APIs.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// EmbedClient calls an OpenAI-compatible /v1/embeddings endpoint.
type EmbedClient struct {
	transport
	model string
	dims  int
}

// NewEmbedClient creates an embedding client. dims is the expected vector
// dimensionality; blank input text yields a zero vector of that length
// without a remote call.
func NewEmbedClient(baseURL, apiKey, model string, dims int) *EmbedClient {
	return &EmbedClient{
		transport: transport{
			baseURL: strings.TrimRight(baseURL, "/"),
			apiKey:  apiKey,
			limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 10),
			client:  &http.Client{Timeout: 30 * time.Second},
		},
		model: model,
		dims:  dims,
	}
}

// Dims returns the vector dimensionality this client produces.
func (c *EmbedClient) Dims() int { return c.dims }

type embedReq struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embedResp struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text. Empty or whitespace-only
// text yields the all-zero vector without calling the remote service;
// callers must treat an all-zero vector as carrying no signal.
func (c *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, c.dims), nil
	}

	var result embedResp
	if err := c.postJSON(ctx, "openai embed", "/v1/embeddings", embedReq{Model: c.model, Input: text}, &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("openai embed: empty response")
	}

	vec := result.Data[0].Embedding
	if len(vec) != c.dims {
		return nil, fmt.Errorf("openai embed: got %d dims, want %d", len(vec), c.dims)
	}
	return toFloat32(vec), nil
}

// EmbedBatch embeds several texts in one request. Blank texts come back
// as zero vectors in their original positions.
func (c *EmbedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// The API rejects blank inputs, so send only the non-blank ones.
	var send []string
	var sendIdx []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = make([]float32, c.dims)
			continue
		}
		send = append(send, t)
		sendIdx = append(sendIdx, i)
	}
	if len(send) == 0 {
		return out, nil
	}

	var result embedResp
	if err := c.postJSON(ctx, "openai embed batch", "/v1/embeddings", embedReq{Model: c.model, Input: send}, &result); err != nil {
		return nil, err
	}
	if len(result.Data) != len(send) {
		return nil, fmt.Errorf("openai embed batch: got %d embeddings, want %d", len(result.Data), len(send))
	}

	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(sendIdx) {
			return nil, fmt.Errorf("openai embed batch: index %d out of range", d.Index)
		}
		out[sendIdx[d.Index]] = toFloat32(d.Embedding)
	}
	return out, nil
}
