// Package domain defines core domain types, constants, and validation for the
// Fieldmate recommendation pipeline. It acts as the validation gate at pipeline
// entry points.
package domain

import "strings"

// HistoricalCase is one historical repair claim as stored in repair_cases.
// The pgvector columns are managed by the store and not exposed here.
type HistoricalCase struct {
	ClaimID          string `json:"claim_id" db:"claim_id"`
	SeriesName       string `json:"series_name" db:"series_name"`
	SubSeries        string `json:"sub_series" db:"sub_series"`
	SubAssembly      string `json:"sub_assembly" db:"sub_assembly"`
	SymptomText      string `json:"symptom_text" db:"symptom_text"`
	SymptomTextClean string `json:"symptom_text_clean" db:"symptom_text_clean"`
	DefectText       string `json:"defect_text" db:"defect_text"`
	DefectTextClean  string `json:"defect_text_clean" db:"defect_text_clean"`
	PartNames        string `json:"part_names" db:"part_names"`
	PartQuantity     string `json:"part_quantity" db:"part_quantity"`
}

// SimilarCase is a HistoricalCase projection scored against a query vector.
type SimilarCase struct {
	ClaimID          string  `json:"claim_id" db:"claim_id"`
	SeriesName       string  `json:"series_name" db:"series_name"`
	SubSeries        string  `json:"sub_series" db:"sub_series"`
	SubAssembly      string  `json:"sub_assembly" db:"sub_assembly"`
	SymptomText      string  `json:"symptom_text" db:"symptom_text"`
	SymptomTextClean string  `json:"symptom_text_clean" db:"symptom_text_clean"`
	DefectText       string  `json:"defect_text" db:"defect_text"`
	DefectTextClean  string  `json:"defect_text_clean" db:"defect_text_clean"`
	PartNames        string  `json:"part_names" db:"part_names"`
	PartQuantity     string  `json:"part_quantity" db:"part_quantity"`
	SimilarityScore  float64 `json:"similarity_score" db:"similarity_score"`
}

// PartsList tokenizes the comma-delimited parts field.
func (c SimilarCase) PartsList() []string { return SplitParts(c.PartNames) }

// SplitParts tokenizes a comma-delimited parts field: tokens are trimmed,
// empty tokens and the literal "nan" (any case) are dropped. Duplicate
// tokens are preserved in order.
func SplitParts(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" || strings.EqualFold(tok, "nan") {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// PartRecommendation is one ranked part with its supporting evidence.
type PartRecommendation struct {
	PartNumber string   `json:"part_number"`
	Frequency  int      `json:"frequency"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	ClaimIDs   []string `json:"source_cases,omitempty"`
}

// FinalRecommendation is a PartRecommendation tagged with a priority tier
// by the formatting stage.
type FinalRecommendation struct {
	PartNumber string  `json:"part_number"`
	Confidence float64 `json:"confidence"`
	Frequency  int     `json:"frequency"`
	Reasoning  string  `json:"reasoning"`
	Priority   string  `json:"priority"`
}

// ConfidenceReport aggregates the confidence signals of one run.
type ConfidenceReport struct {
	CaseSimilarity    float64 `json:"case_similarity"`
	PartsConfidence   float64 `json:"parts_confidence"`
	OverallConfidence float64 `json:"overall_confidence"`
	Quality           string  `json:"quality"`
}

// StockInfo is the inventory lookup result for a single part.
type StockInfo struct {
	PartNumber    string  `json:"part_number"`
	InStock       bool    `json:"in_stock"`
	Quantity      int     `json:"quantity"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// InventoryStatus groups recommended parts by availability.
type InventoryStatus struct {
	AvailableParts     []StockInfo `json:"available_parts"`
	OutOfStockParts    []StockInfo `json:"out_of_stock_parts"`
	LowStockParts      []StockInfo `json:"low_stock_parts"`
	TotalEstimatedCost float64     `json:"total_estimated_cost"`
}

// StoreStats summarizes vector coverage of the case store.
type StoreStats struct {
	TotalCases     int `json:"total_cases" db:"total_cases"`
	SymptomVectors int `json:"symptom_vectors" db:"symptom_vectors"`
	DefectVectors  int `json:"defect_vectors" db:"defect_vectors"`
	SearchReady    int `json:"search_ready" db:"search_ready"`
}

// Workflow stages, in pipeline order.
const (
	StageSymptomAnalysis      = "symptom_analysis"
	StageEmbeddingGeneration  = "embedding_generation"
	StageSimilaritySearch     = "similarity_search"
	StagePartsRecommendation  = "parts_recommendation"
	StageInventoryCheck       = "inventory_check"
	StageConfidenceEvaluation = "confidence_evaluation"
	StageFormatting           = "formatting"
	StageCompleted            = "completed"
)

// Confidence tiers, shared by report quality and recommendation priority.
// Tier boundaries are strict: exactly 0.8 or 0.6 falls to the lower tier.
const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// Tier maps a confidence value to its tier label.
func Tier(confidence float64) string {
	switch {
	case confidence > 0.8:
		return TierHigh
	case confidence > 0.6:
		return TierMedium
	default:
		return TierLow
	}
}

// PipelineState is the single state struct threaded through the
// recommendation pipeline. Constructed fresh per run, mutated by exactly
// one stage at a time, never shared across runs.
type PipelineState struct {
	// Inputs
	UserIssue     string  `json:"user_issue"`
	MachineSeries string  `json:"machine_series,omitempty"`
	UserID        int64   `json:"user_id,omitempty"`
	TicketID      int64   `json:"ticket_id,omitempty"`
	MinConfidence float64 `json:"-"`

	// Per-stage results
	ProcessedSymptoms    []string              `json:"processed_symptoms"`
	Embedding            []float32             `json:"-"`
	SimilarCases         []SimilarCase         `json:"similar_cases"`
	RecommendedParts     []PartRecommendation  `json:"recommended_parts"`
	Confidence           ConfidenceReport      `json:"confidence_scores"`
	Inventory            InventoryStatus       `json:"inventory_status"`
	FinalRecommendations []FinalRecommendation `json:"final_recommendations"`
	Explanation          string                `json:"explanation"`
	NextActions          []string              `json:"next_actions"`

	// Bookkeeping
	WorkflowStage string   `json:"workflow_stage"`
	ProcessingLog []string `json:"processing_log"`
	ErrorMessage  string   `json:"error_message,omitempty"`
}

// NewPipelineState builds the initial state for one run.
func NewPipelineState(userIssue, machineSeries string, userID, ticketID int64) *PipelineState {
	return &PipelineState{
		UserIssue:     userIssue,
		MachineSeries: machineSeries,
		UserID:        userID,
		TicketID:      ticketID,
	}
}

// EmbeddingUsed reports whether a usable (non-zero) embedding was produced.
func (s *PipelineState) EmbeddingUsed() bool {
	for _, v := range s.Embedding {
		if v != 0 {
			return true
		}
	}
	return false
}
