package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
	"github.com/FieldmateAI/fieldmate-mvp/engine/search"
	"github.com/FieldmateAI/fieldmate-mvp/pkg/fn"
)

// SymptomSource rewrites a raw complaint into technical symptom phrasings.
type SymptomSource interface {
	TechnicalSymptoms(ctx context.Context, userSymptom, machineType string) ([]string, error)
}

// Searcher is the hybrid search surface the pipeline consumes.
type Searcher interface {
	Search(ctx context.Context, queryText string, opts search.Options) ([]domain.SimilarCase, error)
	SearchEmbedded(ctx context.Context, queryVec []float32, opts search.Options) ([]domain.SimilarCase, error)
}

// searchLimit is how many similar cases the pipeline's search stage keeps.
const searchLimit = 10

// Pipeline is the seven-stage recommendation workflow. Stages run in a
// fixed order with no branching; each stage appends exactly one line to
// the processing log and contains its own failures.
type Pipeline struct {
	symptoms  SymptomSource
	embedder  search.Embedder
	searcher  Searcher
	inventory Inventory
	logger    *slog.Logger
}

// NewPipeline wires the pipeline's collaborators. A nil symptoms source
// skips symptom rewriting; a nil inventory falls back to the static
// placeholder.
func NewPipeline(symptoms SymptomSource, embedder search.Embedder, searcher Searcher, inventory Inventory, logger *slog.Logger) *Pipeline {
	if inventory == nil {
		inventory = NewStaticInventory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		symptoms:  symptoms,
		embedder:  embedder,
		searcher:  searcher,
		inventory: inventory,
		logger:    logger,
	}
}

// Run executes all seven stages in order, mutating and returning st. Stage
// failures are recorded on the state, never returned: a run always yields
// a complete state.
func (p *Pipeline) Run(ctx context.Context, st *domain.PipelineState) *domain.PipelineState {
	stages := fn.Pipeline(
		p.contained(domain.StageSymptomAnalysis, p.analyzeSymptoms),
		p.contained(domain.StageEmbeddingGeneration, p.generateEmbedding),
		p.contained(domain.StageSimilaritySearch, p.searchCases),
		p.contained(domain.StagePartsRecommendation, p.recommendParts),
		p.contained(domain.StageInventoryCheck, p.checkInventory),
		p.contained(domain.StageConfidenceEvaluation, p.evaluateConfidence),
		p.contained(domain.StageFormatting, p.formatResults),
	)
	if out, err := stages(ctx, st).Unwrap(); err == nil {
		return out
	}
	return st
}

// stageFunc does one stage's work against the state, setting safe defaults
// before reporting any error. The returned message is the stage's single
// processing-log line.
type stageFunc func(ctx context.Context, st *domain.PipelineState) (string, error)

// contained wraps a stage with the resilience contract: the error is
// recorded on the state and the pipeline moves on.
func (p *Pipeline) contained(stage string, f stageFunc) fn.Stage[*domain.PipelineState, *domain.PipelineState] {
	return fn.TracedStage("pipeline."+stage, func(ctx context.Context, st *domain.PipelineState) fn.Result[*domain.PipelineState] {
		st.WorkflowStage = stage
		msg, err := f(ctx, st)
		if err != nil {
			st.ErrorMessage = fmt.Sprintf("%s failed: %v", stage, err)
			p.logger.Warn("pipeline stage degraded", "stage", stage, "err", err)
		}
		st.ProcessingLog = append(st.ProcessingLog, msg)
		return fn.Ok(st)
	})
}

func (p *Pipeline) analyzeSymptoms(ctx context.Context, st *domain.PipelineState) (string, error) {
	st.ProcessedSymptoms = []string{st.UserIssue}
	if p.symptoms == nil {
		return "symptom analysis skipped, using original issue text", nil
	}

	technical, err := p.symptoms.TechnicalSymptoms(ctx, st.UserIssue, st.MachineSeries)
	if err != nil {
		return "symptom analysis failed, using original issue text", err
	}

	var symptoms []string
	for _, s := range technical {
		if strings.TrimSpace(s) != "" {
			symptoms = append(symptoms, s)
		}
	}
	if len(symptoms) > 0 {
		st.ProcessedSymptoms = symptoms
	}
	return fmt.Sprintf("generated %d technical symptoms", len(st.ProcessedSymptoms)), nil
}

func (p *Pipeline) generateEmbedding(ctx context.Context, st *domain.PipelineState) (string, error) {
	text := strings.Join(st.ProcessedSymptoms, " ")
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		st.Embedding = nil
		return "embedding unavailable, continuing without vector", err
	}
	st.Embedding = vec
	return fmt.Sprintf("generated %d-dimensional embedding", len(vec)), nil
}

func (p *Pipeline) searchCases(ctx context.Context, st *domain.PipelineState) (string, error) {
	opts := search.DefaultOptions()
	opts.Limit = searchLimit
	opts.TypeHint = st.MachineSeries
	if st.MinConfidence > 0 {
		opts.MinCutoff = st.MinConfidence
	}

	var cases []domain.SimilarCase
	var err error
	if st.EmbeddingUsed() {
		cases, err = p.searcher.SearchEmbedded(ctx, st.Embedding, opts)
	} else {
		// No usable vector from the embedding stage; retry from the raw
		// issue text so a transient embed failure still gets a shot.
		cases, err = p.searcher.Search(ctx, st.UserIssue, opts)
	}
	if err != nil {
		st.SimilarCases = nil
		return "similarity search failed, continuing with no cases", err
	}
	st.SimilarCases = cases
	return fmt.Sprintf("found %d similar cases", len(cases)), nil
}

func (p *Pipeline) recommendParts(_ context.Context, st *domain.PipelineState) (string, error) {
	st.RecommendedParts = ExtractParts(st.SimilarCases)
	return fmt.Sprintf("recommended %d parts", len(st.RecommendedParts)), nil
}

func (p *Pipeline) checkInventory(ctx context.Context, st *domain.PipelineState) (string, error) {
	st.Inventory = CheckAll(ctx, p.inventory, st.RecommendedParts)
	return fmt.Sprintf("checked inventory for %d parts", len(st.RecommendedParts)), nil
}

func (p *Pipeline) evaluateConfidence(_ context.Context, st *domain.PipelineState) (string, error) {
	st.Confidence = EvaluateConfidence(st.SimilarCases, st.RecommendedParts)
	return fmt.Sprintf("overall confidence %.2f", st.Confidence.OverallConfidence), nil
}

func (p *Pipeline) formatResults(_ context.Context, st *domain.PipelineState) (string, error) {
	recs := make([]domain.FinalRecommendation, 0, len(st.RecommendedParts))
	for _, part := range st.RecommendedParts {
		recs = append(recs, domain.FinalRecommendation{
			PartNumber: part.PartNumber,
			Confidence: part.Confidence,
			Frequency:  part.Frequency,
			Reasoning:  part.Reasoning,
			Priority:   domain.Tier(part.Confidence),
		})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Confidence > recs[j].Confidence })
	st.FinalRecommendations = recs

	st.Explanation = buildExplanation(st)
	st.NextActions = nextActions(st.Confidence.OverallConfidence, st.Inventory)
	st.WorkflowStage = domain.StageCompleted
	return "workflow completed", nil
}

func buildExplanation(st *domain.PipelineState) string {
	return fmt.Sprintf(
		"Analyzed %d similar repair cases and identified %d recommended parts with %.0f%% confidence. Recommendations are ranked by confidence and by frequency of use in similar repairs.",
		len(st.SimilarCases), len(st.FinalRecommendations), st.Confidence.OverallConfidence*100,
	)
}

func nextActions(confidence float64, inv domain.InventoryStatus) []string {
	var actions []string
	switch {
	case confidence > 0.8:
		actions = append(actions, "Proceed with high-confidence recommendations")
	case confidence > 0.6:
		actions = append(actions, "Review recommendations with technician")
	default:
		actions = append(actions, "Gather more diagnostic information")
	}
	if len(inv.OutOfStockParts) > 0 {
		actions = append(actions, "Order out-of-stock parts")
	}
	return actions
}
