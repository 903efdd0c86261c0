package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
)

// analysisNotes summarizes one recommendation run for the audit trail.
type analysisNotes struct {
	TotalSimilarCases int      `json:"total_similar_cases"`
	AvgSimilarity     float64  `json:"avg_similarity"`
	IssueTypesFound   []string `json:"issue_types_found"`
}

// buildAnalysisNotes collects run-level stats: case count, mean similarity,
// and up to five distinct sub-assemblies in first-seen order.
func buildAnalysisNotes(cases []domain.SimilarCase) analysisNotes {
	notes := analysisNotes{TotalSimilarCases: len(cases)}

	if len(cases) > 0 {
		sum := 0.0
		for _, c := range cases {
			sum += c.SimilarityScore
		}
		notes.AvgSimilarity = sum / float64(len(cases))
	}

	seen := make(map[string]bool)
	for _, c := range cases {
		if c.SubAssembly == "" || seen[c.SubAssembly] {
			continue
		}
		seen[c.SubAssembly] = true
		notes.IssueTypesFound = append(notes.IssueTypesFound, c.SubAssembly)
		if len(notes.IssueTypesFound) == 5 {
			break
		}
	}
	return notes
}

const insertRecommendationQuery = `
	INSERT INTO ticket_recommendations (
		ticket_id, similar_claim_id, similarity_score,
		recommended_parts, confidence_level, analysis_notes
	) VALUES ($1, $2, $3, $4, $5, $6)`

// SaveRecommendations audits one run: one row per top-5 similar case, each
// carrying the full recommendation list and run notes as JSON. All rows
// commit atomically.
func (s *Store) SaveRecommendations(ctx context.Context, ticketID int64, cases []domain.SimilarCase, recs []domain.PartRecommendation) error {
	if len(cases) == 0 {
		return nil
	}

	recsJSON, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("store: marshal recommendations: %w", err)
	}
	notesJSON, err := json.Marshal(buildAnalysisNotes(cases))
	if err != nil {
		return fmt.Errorf("store: marshal analysis notes: %w", err)
	}

	top := cases
	if len(top) > 5 {
		top = top[:5]
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin audit tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range top {
		_, err := tx.ExecContext(ctx, insertRecommendationQuery,
			ticketID, c.ClaimID, c.SimilarityScore,
			recsJSON, c.SimilarityScore, notesJSON,
		)
		if err != nil {
			return fmt.Errorf("store: insert recommendation for ticket %d: %w", ticketID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit audit tx: %w", err)
	}
	return nil
}
