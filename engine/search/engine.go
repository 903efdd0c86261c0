// Package search implements hybrid similarity search over the historical
// case base. A query is embedded once and ranked against both the symptom
// and defect vectors with a weighted blend; empty passes fall back through
// progressively looser weight and filter combinations before giving up.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
)

// Embedder turns query text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CaseSearcher abstracts the hybrid ranking query of the case store.
type CaseSearcher interface {
	SearchHybrid(ctx context.Context, queryVec []float32, weight float64, typeFilter string, pool int) ([]domain.SimilarCase, error)
}

// candidatePool is how many candidates each pass pulls before the cutoff
// trims them. Wider than any caller limit so the cutoff has room to work.
const candidatePool = 20

// Options tunes one search.
type Options struct {
	// TypeHint restricts matches to cases whose series name or
	// sub-assembly contains it. Empty means no restriction.
	TypeHint string
	// Limit caps the returned cases after the cutoff.
	Limit int
	// PrimaryWeight is the symptom-vector share of the blended score on
	// the first pass. The defect vector gets the remainder.
	PrimaryWeight float64
	// FallbackWeight is the symptom-vector share on fallback passes.
	FallbackWeight float64
	// MinCutoff drops candidates scoring below it.
	MinCutoff float64
}

// DefaultOptions mirrors the stock search tuning.
func DefaultOptions() Options {
	return Options{Limit: 5, PrimaryWeight: 0.7, FallbackWeight: 0.5, MinCutoff: 0.65}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Limit <= 0 {
		o.Limit = def.Limit
	}
	if o.PrimaryWeight <= 0 {
		o.PrimaryWeight = def.PrimaryWeight
	}
	if o.FallbackWeight <= 0 {
		o.FallbackWeight = def.FallbackWeight
	}
	if o.MinCutoff <= 0 {
		o.MinCutoff = def.MinCutoff
	}
	return o
}

// Engine runs embed-then-rank searches with cascading fallbacks.
type Engine struct {
	embedder Embedder
	store    CaseSearcher
	logger   *slog.Logger
}

// New creates a search engine.
func New(embedder Embedder, store CaseSearcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{embedder: embedder, store: store, logger: logger}
}

// Search embeds queryText and runs SearchEmbedded on the result. An
// embedding failure degrades to no results rather than an error; only a
// data-access fault from the store surfaces to the caller.
func (e *Engine) Search(ctx context.Context, queryText string, opts Options) ([]domain.SimilarCase, error) {
	vec, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		e.logger.Warn("search degraded: query embedding failed", "error", err)
		return nil, nil
	}
	return e.SearchEmbedded(ctx, vec, opts)
}

// SearchEmbedded ranks the case base against an existing query vector.
//
// Passes run in order until one returns candidates: primary weight with the
// type hint, fallback weight with the hint, primary weight without the
// hint (only when a hint was given), and finally fallback weight without
// the hint. Candidates below MinCutoff are dropped, the rest trimmed to
// Limit. A zero vector carries no signal and short-circuits to no results.
// A store error aborts immediately rather than cascading.
func (e *Engine) SearchEmbedded(ctx context.Context, queryVec []float32, opts Options) ([]domain.SimilarCase, error) {
	opts = opts.withDefaults()

	if !usableVector(queryVec) {
		e.logger.Warn("search skipped: query vector has no signal")
		return nil, nil
	}

	type pass struct {
		weight float64
		filter string
		label  string
	}
	passes := []pass{
		{opts.PrimaryWeight, opts.TypeHint, "primary"},
		{opts.FallbackWeight, opts.TypeHint, "balanced"},
	}
	if opts.TypeHint != "" {
		passes = append(passes, pass{opts.PrimaryWeight, "", "unfiltered"})
	}
	passes = append(passes, pass{opts.FallbackWeight, "", "balanced_unfiltered"})

	var candidates []domain.SimilarCase
	for _, p := range passes {
		rows, err := e.store.SearchHybrid(ctx, queryVec, p.weight, p.filter, candidatePool)
		if err != nil {
			return nil, fmt.Errorf("search: %s pass: %w: %w", p.label, domain.ErrSearchUnavailable, err)
		}
		if len(rows) > 0 {
			e.logger.Debug("search pass matched", "pass", p.label, "candidates", len(rows))
			candidates = rows
			break
		}
	}

	cases := make([]domain.SimilarCase, 0, opts.Limit)
	for _, c := range candidates {
		if c.SimilarityScore < opts.MinCutoff {
			continue
		}
		cases = append(cases, c)
		if len(cases) == opts.Limit {
			break
		}
	}
	if len(cases) == 0 {
		return nil, nil
	}
	return cases, nil
}

// usableVector reports whether any component is non-zero.
func usableVector(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return true
		}
	}
	return false
}
