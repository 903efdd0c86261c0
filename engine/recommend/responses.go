package recommend

import (
	"time"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
)

// RecommendationResponse is the full result of one pipeline run.
type RecommendationResponse struct {
	Success          bool                         `json:"success"`
	RequestID        string                       `json:"request_id,omitempty"`
	UserIssue        string                       `json:"user_issue"`
	ProcessingTimeMS float64                      `json:"processing_time_ms"`
	RecommendedParts []domain.FinalRecommendation `json:"recommended_parts"`
	SimilarCases     []CaseSummary                `json:"similar_cases"`
	TotalSimilar     int                          `json:"total_similar_cases"`
	AvgConfidence    float64                      `json:"avg_confidence"`
	SearchMethod     string                       `json:"search_method"`
	Explanation      string                       `json:"explanation"`
	NextSteps        []string                     `json:"next_steps"`
	Confidence       domain.ConfidenceReport      `json:"confidence_scores"`
	ProcessingLog    []string                     `json:"processing_log"`
	EmbeddingsUsed   bool                         `json:"embeddings_used"`
	ErrorMessage     string                       `json:"error_message,omitempty"`
}

// CaseSummary is the trimmed similar-case projection returned to callers.
type CaseSummary struct {
	ClaimID            string   `json:"claim_id"`
	SeriesName         string   `json:"series_name,omitempty"`
	SubAssembly        string   `json:"sub_assembly,omitempty"`
	SymptomDescription string   `json:"symptom_description,omitempty"`
	DefectDescription  string   `json:"defect_description,omitempty"`
	SimilarityScore    float64  `json:"similarity_score"`
	PartsUsed          []string `json:"parts_used"`
}

// QuickResponse is the simplified shape for the quick endpoint.
type QuickResponse struct {
	Success          bool        `json:"success"`
	Issue            string      `json:"issue"`
	Parts            []QuickPart `json:"parts"`
	SimilarCases     int         `json:"similar_cases_found"`
	Explanation      string      `json:"explanation"`
	ProcessingTimeMS float64     `json:"processing_time_ms"`
}

// QuickPart is one entry of a quick recommendation.
type QuickPart struct {
	PartNumber string  `json:"part_number"`
	Confidence float64 `json:"confidence"`
	Frequency  int     `json:"frequency"`
}

// SearchResponse is the result of a direct similarity search.
type SearchResponse struct {
	Success      bool        `json:"success"`
	Query        string      `json:"query"`
	Results      []SearchHit `json:"results"`
	TotalFound   int         `json:"total_found"`
	SearchMethod string      `json:"search_method"`
	Error        string      `json:"error,omitempty"`
}

// SearchHit is one similarity-search result row.
type SearchHit struct {
	ClaimID         string  `json:"claim_id"`
	Series          string  `json:"series"`
	Assembly        string  `json:"assembly"`
	Symptom         string  `json:"symptom"`
	SimilarityScore float64 `json:"similarity_score"`
}

// SystemStatus reports recommendation-system health.
type SystemStatus struct {
	Status              string    `json:"status"`
	EmbeddingsAvailable bool      `json:"embeddings_available"`
	VectorSearchWorking bool      `json:"vector_search_working"`
	TotalCases          int       `json:"total_cases"`
	CasesWithVectors    int       `json:"cases_with_vectors"`
	CoveragePercent     float64   `json:"embedding_coverage_percent"`
	LastUpdated         time.Time `json:"last_updated"`
}
