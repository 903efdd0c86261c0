package search

import (
	"context"
	"fmt"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
	"github.com/FieldmateAI/fieldmate-mvp/pkg/resilience"
)

// EmbedClient is the remote embedding API surface the provider guards.
type EmbedClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dims() int
}

// EmbedProvider wraps an embedding client with a circuit breaker so a dead
// embedding service fails fast instead of stalling every request. Failures
// surface as domain.ErrEmbeddingUnavailable for degraded-mode handling.
type EmbedProvider struct {
	client  EmbedClient
	breaker *resilience.Breaker
}

// NewEmbedProvider creates a provider with default breaker tuning.
func NewEmbedProvider(client EmbedClient) *EmbedProvider {
	return &EmbedProvider{
		client:  client,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

// Embed fetches one embedding through the breaker.
func (p *EmbedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		vec, callErr = p.client.Embed(ctx, text)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("search: embed: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return vec, nil
}

// Dims reports the embedding dimensionality of the wrapped client.
func (p *EmbedProvider) Dims() int { return p.client.Dims() }
