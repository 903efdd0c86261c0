package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/FieldmateAI/fieldmate-mvp/pkg/fn"
)

// apiError is the error envelope OpenAI-compatible servers return.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// transport is the request plumbing shared by the embedding and chat
// clients: rate limiting, auth headers, retry with backoff, and error
// envelope handling.
type transport struct {
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	client  *http.Client
}

// retryPolicy covers transient upstream faults (connection resets,
// gateway 429s and 5xxs). Every failed attempt is retried; the attempt
// budget caps the cost when the fault turns out to be permanent.
var retryPolicy = fn.RetryOpts{
	MaxAttempts: 3,
	InitialWait: 250 * time.Millisecond,
	MaxWait:     2 * time.Second,
	Jitter:      true,
}

// postJSON posts payload to path and decodes the reply into out. op
// prefixes every error message.
func (t *transport) postJSON(ctx context.Context, op, path string, payload, out any) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	result := fn.Retry(ctx, retryPolicy, func(ctx context.Context) fn.Result[[]byte] {
		return t.attempt(ctx, op, path, body)
	})
	raw, err := result.Unwrap()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s decode: %w", op, err)
	}
	return nil
}

// attempt is one roundtrip. The request is rebuilt each time because
// the body reader is consumed by sending it.
func (t *transport) attempt(ctx context.Context, op, path string, body []byte) fn.Result[[]byte] {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fn.Err[[]byte](err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fn.Errf[[]byte]("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fn.Errf[[]byte]("%s: read response: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil && envelope.Error.Message != "" {
			return fn.Errf[[]byte]("%s: status %d: %s", op, resp.StatusCode, envelope.Error.Message)
		}
		return fn.Errf[[]byte]("%s: status %d", op, resp.StatusCode)
	}
	return fn.Ok(raw)
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
