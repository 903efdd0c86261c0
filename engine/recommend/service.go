package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
	"github.com/FieldmateAI/fieldmate-mvp/engine/search"
)

// Store is the persistence surface the service consumes: audit writes and
// coverage stats.
type Store interface {
	SaveRecommendations(ctx context.Context, ticketID int64, cases []domain.SimilarCase, recs []domain.PartRecommendation) error
	Stats(ctx context.Context) (domain.StoreStats, error)
	Ping(ctx context.Context) error
}

// Search method labels reported on responses.
const (
	MethodPipeline  = "pipeline"
	MethodNoResults = "no_results"
	MethodError     = "error"
	MethodVector    = "vector_embeddings"
)

// auditTimeout bounds the fire-and-forget audit write.
const auditTimeout = 10 * time.Second

// Service is the recommendation facade: it validates requests, runs the
// pipeline, shapes responses, and audits completed runs.
type Service struct {
	pipeline *Pipeline
	searcher Searcher
	store    Store
	logger   *slog.Logger
}

// NewService wires the facade. store may be nil, disabling audit writes
// and reporting an offline status.
func NewService(pipeline *Pipeline, searcher Searcher, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{pipeline: pipeline, searcher: searcher, store: store, logger: logger}
}

// Recommend runs the full pipeline for one request. Validation failures
// are the only error return; a degraded pipeline run still produces a
// complete response with its error recorded inline.
func (s *Service) Recommend(ctx context.Context, req domain.RecommendationRequest) (*RecommendationResponse, error) {
	start := time.Now()
	if err := domain.ValidateRequest(req); err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	req.ApplyDefaults()

	st := domain.NewPipelineState(req.UserIssue, req.MachineSeries, req.UserID, req.TicketID)
	st.MinConfidence = req.MinConfidence
	st = s.pipeline.Run(ctx, st)

	if err := ctx.Err(); err != nil {
		return &RecommendationResponse{
			Success:          false,
			UserIssue:        req.UserIssue,
			ProcessingTimeMS: msSince(start),
			SearchMethod:     MethodError,
			Explanation:      fmt.Sprintf("Processing failed: %v", err),
			ErrorMessage:     err.Error(),
		}, nil
	}

	resp := s.buildResponse(req, st, start)

	if s.store != nil && req.TicketID != 0 && len(st.SimilarCases) > 0 {
		go s.audit(req.TicketID, st.SimilarCases, st.RecommendedParts)
	}

	s.logger.Info("recommendation completed",
		"ticket_id", req.TicketID,
		"method", resp.SearchMethod,
		"cases", resp.TotalSimilar,
		"parts", len(resp.RecommendedParts),
		"confidence", resp.Confidence.OverallConfidence,
		"duration_ms", resp.ProcessingTimeMS,
	)
	return resp, nil
}

func (s *Service) buildResponse(req domain.RecommendationRequest, st *domain.PipelineState, start time.Time) *RecommendationResponse {
	method := MethodPipeline
	if len(st.SimilarCases) == 0 {
		method = MethodNoResults
	}

	recs := st.FinalRecommendations
	if len(recs) > req.MaxRecommendations {
		recs = recs[:req.MaxRecommendations]
	}

	cases := st.SimilarCases
	if len(cases) > 10 {
		cases = cases[:10]
	}
	summaries := make([]CaseSummary, len(cases))
	for i, c := range cases {
		summaries[i] = CaseSummary{
			ClaimID:            c.ClaimID,
			SeriesName:         c.SeriesName,
			SubAssembly:        c.SubAssembly,
			SymptomDescription: c.SymptomTextClean,
			DefectDescription:  c.DefectTextClean,
			SimilarityScore:    c.SimilarityScore,
			PartsUsed:          c.PartsList(),
		}
	}

	return &RecommendationResponse{
		Success:          true,
		UserIssue:        req.UserIssue,
		ProcessingTimeMS: msSince(start),
		RecommendedParts: recs,
		SimilarCases:     summaries,
		TotalSimilar:     len(st.SimilarCases),
		AvgConfidence:    st.Confidence.OverallConfidence,
		SearchMethod:     method,
		Explanation:      st.Explanation,
		NextSteps:        st.NextActions,
		Confidence:       st.Confidence,
		ProcessingLog:    st.ProcessingLog,
		EmbeddingsUsed:   st.EmbeddingUsed(),
		ErrorMessage:     st.ErrorMessage,
	}
}

// audit persists the run outcome off the request path. Failures are
// logged, never surfaced.
func (s *Service) audit(ticketID int64, cases []domain.SimilarCase, recs []domain.PartRecommendation) {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	if err := s.store.SaveRecommendations(ctx, ticketID, cases, recs); err != nil {
		s.logger.Error("audit write failed", "ticket_id", ticketID, "err", err)
	}
}

// QuickRecommend runs the pipeline with minimal inputs and returns the
// simplified shape.
func (s *Service) QuickRecommend(ctx context.Context, issue, series string, maxParts int) (*QuickResponse, error) {
	resp, err := s.Recommend(ctx, domain.RecommendationRequest{
		UserIssue:          issue,
		MachineSeries:      series,
		MaxRecommendations: maxParts,
	})
	if err != nil {
		return nil, err
	}

	parts := make([]QuickPart, len(resp.RecommendedParts))
	for i, p := range resp.RecommendedParts {
		parts[i] = QuickPart{PartNumber: p.PartNumber, Confidence: p.Confidence, Frequency: p.Frequency}
	}
	return &QuickResponse{
		Success:          resp.Success,
		Issue:            issue,
		Parts:            parts,
		SimilarCases:     resp.TotalSimilar,
		Explanation:      resp.Explanation,
		ProcessingTimeMS: resp.ProcessingTimeMS,
	}, nil
}

// SimilaritySearch queries the case base directly, without the pipeline.
// Engine failures are reported inside the response, not as an error.
func (s *Service) SimilaritySearch(ctx context.Context, req domain.SimilaritySearchRequest) (*SearchResponse, error) {
	if err := domain.ValidateSearchRequest(req); err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	req.ApplyDefaults()

	cases, err := s.searcher.Search(ctx, req.QueryText, search.Options{
		TypeHint:  req.SeriesFilter,
		Limit:     req.MaxResults,
		MinCutoff: req.Threshold,
	})
	if err != nil {
		s.logger.Error("similarity search failed", "err", err)
		return &SearchResponse{
			Success:      false,
			Query:        req.QueryText,
			SearchMethod: MethodError,
			Error:        err.Error(),
		}, nil
	}

	hits := make([]SearchHit, len(cases))
	for i, c := range cases {
		hits[i] = SearchHit{
			ClaimID:         c.ClaimID,
			Series:          c.SeriesName,
			Assembly:        c.SubAssembly,
			Symptom:         c.SymptomTextClean,
			SimilarityScore: c.SimilarityScore,
		}
	}
	return &SearchResponse{
		Success:      true,
		Query:        req.QueryText,
		Results:      hits,
		TotalFound:   len(hits),
		SearchMethod: MethodVector,
	}, nil
}

// Status reports system health from store reachability and vector
// coverage: offline when the store is unreachable, degraded when no case
// is search-ready, healthy otherwise.
func (s *Service) Status(ctx context.Context) SystemStatus {
	status := SystemStatus{Status: "offline", LastUpdated: time.Now().UTC()}
	if s.store == nil {
		return status
	}
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("status ping failed", "err", err)
		return status
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Error("status stats failed", "err", err)
		return status
	}

	status.TotalCases = stats.TotalCases
	status.CasesWithVectors = stats.SearchReady
	if stats.TotalCases > 0 {
		status.CoveragePercent = float64(stats.SearchReady) / float64(stats.TotalCases) * 100
	}
	status.EmbeddingsAvailable = stats.SearchReady > 0
	status.VectorSearchWorking = stats.SearchReady > 0

	if status.VectorSearchWorking {
		status.Status = "healthy"
	} else {
		status.Status = "degraded"
	}
	return status
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
