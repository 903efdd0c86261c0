package domain

import (
	"errors"
	"testing"
)

func TestValidateRequest_Valid(t *testing.T) {
	cases := []RecommendationRequest{
		{UserIssue: "hydraulic oil leak from quick coupler"},
		{UserIssue: "PTO will not engage", MachineSeries: "M7060"},
		{UserIssue: "engine cranks but won't start", MaxRecommendations: 20, MinConfidence: 1.0},
		{UserIssue: "deck belt slipping", MaxRecommendations: 1, MinConfidence: 0.1},
	}
	for _, r := range cases {
		if err := ValidateRequest(r); err != nil {
			t.Errorf("expected valid for %+v, got %v", r, err)
		}
	}
}

func TestValidateRequest_TooShort(t *testing.T) {
	err := ValidateRequest(RecommendationRequest{UserIssue: "oil"})
	if !errors.Is(err, ErrIssueTooShort) {
		t.Errorf("expected ErrIssueTooShort, got %v", err)
	}
}

func TestValidateRequest_Injection(t *testing.T) {
	cases := []string{
		"leaking; DROP TABLE repair_cases",
		"noise ${process.env.SECRET}",
		`rattle {"$gt": 1}`,
	}
	for _, text := range cases {
		if !errors.Is(ValidateRequest(RecommendationRequest{UserIssue: text}), ErrIssueInjection) {
			t.Errorf("expected ErrIssueInjection for %q", text)
		}
	}
}

func TestValidateRequest_Profanity(t *testing.T) {
	err := ValidateRequest(RecommendationRequest{UserIssue: "this fuck loader is broken"})
	if !errors.Is(err, ErrIssueProfanity) {
		t.Errorf("expected ErrIssueProfanity, got %v", err)
	}
}

func TestValidateRequest_Bounds(t *testing.T) {
	err := ValidateRequest(RecommendationRequest{UserIssue: "hydraulic leak at boom", MaxRecommendations: 21})
	if !errors.Is(err, ErrBoundsViolation) {
		t.Errorf("expected ErrBoundsViolation for max_recommendations=21, got %v", err)
	}
	err = ValidateRequest(RecommendationRequest{UserIssue: "hydraulic leak at boom", MinConfidence: 0.05})
	if !errors.Is(err, ErrBoundsViolation) {
		t.Errorf("expected ErrBoundsViolation for min_confidence=0.05, got %v", err)
	}
}

func TestRequestApplyDefaults(t *testing.T) {
	r := RecommendationRequest{UserIssue: "leak"}
	r.ApplyDefaults()
	if r.MaxRecommendations != 10 {
		t.Errorf("MaxRecommendations = %d, want 10", r.MaxRecommendations)
	}
	if r.MinConfidence != 0.65 {
		t.Errorf("MinConfidence = %g, want 0.65", r.MinConfidence)
	}

	// Explicit values survive
	r2 := RecommendationRequest{UserIssue: "leak", MaxRecommendations: 3, MinConfidence: 0.9}
	r2.ApplyDefaults()
	if r2.MaxRecommendations != 3 || r2.MinConfidence != 0.9 {
		t.Errorf("explicit values overwritten: %+v", r2)
	}
}

func TestValidateSearchRequest(t *testing.T) {
	if err := ValidateSearchRequest(SimilaritySearchRequest{QueryText: "boom cylinder drift"}); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
	if !errors.Is(ValidateSearchRequest(SimilaritySearchRequest{QueryText: "  "}), ErrQueryRequired) {
		t.Error("expected ErrQueryRequired for blank query")
	}
	if !errors.Is(ValidateSearchRequest(SimilaritySearchRequest{QueryText: "leak", MaxResults: 51}), ErrBoundsViolation) {
		t.Error("expected ErrBoundsViolation for max_results=51")
	}
	if !errors.Is(ValidateSearchRequest(SimilaritySearchRequest{QueryText: "leak", Threshold: 1.5}), ErrBoundsViolation) {
		t.Error("expected ErrBoundsViolation for threshold=1.5")
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	ve := NewValidationError("user_issue", "oil", ErrIssueTooShort)
	if !errors.Is(ve, ErrIssueTooShort) {
		t.Errorf("Unwrap should expose ErrIssueTooShort")
	}
	var target *ValidationError
	if !errors.As(ve, &target) {
		t.Errorf("errors.As should work for *ValidationError")
	}
	if target.Field != "user_issue" {
		t.Errorf("expected field=user_issue, got %s", target.Field)
	}
}
