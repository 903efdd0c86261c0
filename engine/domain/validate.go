package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// RecommendationRequest is the transport-level request for a full
// pipeline run.
type RecommendationRequest struct {
	UserIssue          string  `json:"user_issue"`
	MachineSeries      string  `json:"machine_series,omitempty"`
	UserID             int64   `json:"user_id,omitempty"`
	TicketID           int64   `json:"ticket_id,omitempty"`
	MaxRecommendations int     `json:"max_recommendations,omitempty"`
	MinConfidence      float64 `json:"min_confidence,omitempty"`
}

// ApplyDefaults fills unset numeric fields with their documented defaults.
func (r *RecommendationRequest) ApplyDefaults() {
	if r.MaxRecommendations == 0 {
		r.MaxRecommendations = 10
	}
	if r.MinConfidence == 0 {
		r.MinConfidence = 0.65
	}
}

// SimilaritySearchRequest is the transport-level request for a direct
// engine search, without the pipeline. The series filter matches either
// the series-name or sub-assembly field, case-insensitive substring.
type SimilaritySearchRequest struct {
	QueryText    string  `json:"query_text"`
	SeriesFilter string  `json:"series_filter,omitempty"`
	MaxResults   int     `json:"max_results,omitempty"`
	Threshold    float64 `json:"similarity_threshold,omitempty"`
}

// ApplyDefaults fills unset numeric fields with their documented defaults.
func (r *SimilaritySearchRequest) ApplyDefaults() {
	if r.MaxResults == 0 {
		r.MaxResults = 10
	}
	if r.Threshold == 0 {
		r.Threshold = 0.65
	}
}

// Injection patterns: SQL/NoSQL fragments that should never appear in a
// free-text issue description.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(DROP|DELETE|INSERT|UPDATE|ALTER|EXEC|UNION)\b.*\b(TABLE|FROM|INTO|SELECT|SET)\b`),
	regexp.MustCompile(`(?i)(--|;)\s*(DROP|DELETE|SELECT)`),
	regexp.MustCompile(`(?i)\$\{.*\}`),            // template injection
	regexp.MustCompile(`(?i)\{\s*"\$[a-z]+"\s*:`), // NoSQL operator injection
}

// Profanity word list (lowercase, basic set).
var profanityWords = map[string]bool{
	"fuck": true, "shit": true, "ass": true, "bitch": true,
	"damn": true, "cunt": true, "dick": true, "piss": true,
}

const minIssueLength = 5

// ValidateIssueText screens a free-text issue description.
func ValidateIssueText(text string) error {
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) < minIssueLength {
		return NewValidationError("user_issue", text, ErrIssueTooShort)
	}

	for _, pat := range injectionPatterns {
		if pat.MatchString(text) {
			return NewValidationError("user_issue", text, ErrIssueInjection)
		}
	}

	lower := strings.ToLower(text)
	for _, word := range strings.Fields(lower) {
		cleaned := strings.Trim(word, ".,!?;:'\"()-")
		if profanityWords[cleaned] {
			return NewValidationError("user_issue", cleaned, ErrIssueProfanity)
		}
	}

	return nil
}

// ValidateRequest validates a recommendation request. Zero-valued numeric
// fields are treated as "use default" and pass.
func ValidateRequest(r RecommendationRequest) error {
	if err := ValidateIssueText(r.UserIssue); err != nil {
		return err
	}
	if r.MaxRecommendations != 0 && (r.MaxRecommendations < 1 || r.MaxRecommendations > 20) {
		return NewValidationError("max_recommendations", fmt.Sprintf("%d", r.MaxRecommendations), ErrBoundsViolation)
	}
	if r.MinConfidence != 0 && (r.MinConfidence < 0.1 || r.MinConfidence > 1.0) {
		return NewValidationError("min_confidence", fmt.Sprintf("%g", r.MinConfidence), ErrBoundsViolation)
	}
	return nil
}

// ValidateSearchRequest validates a direct similarity-search request.
func ValidateSearchRequest(r SimilaritySearchRequest) error {
	if strings.TrimSpace(r.QueryText) == "" {
		return NewValidationError("query_text", r.QueryText, ErrQueryRequired)
	}
	if r.MaxResults != 0 && (r.MaxResults < 1 || r.MaxResults > 50) {
		return NewValidationError("max_results", fmt.Sprintf("%d", r.MaxResults), ErrBoundsViolation)
	}
	if r.Threshold != 0 && (r.Threshold < 0.1 || r.Threshold > 1.0) {
		return NewValidationError("similarity_threshold", fmt.Sprintf("%g", r.Threshold), ErrBoundsViolation)
	}
	return nil
}
