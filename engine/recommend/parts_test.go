package recommend

import (
	"fmt"
	"testing"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
)

func caseWith(claimID, parts string, score float64) domain.SimilarCase {
	return domain.SimilarCase{ClaimID: claimID, PartNames: parts, SimilarityScore: score}
}

func TestExtractParts_Empty(t *testing.T) {
	if got := ExtractParts(nil); got != nil {
		t.Fatalf("expected nil for no cases, got %v", got)
	}
	if got := ExtractParts([]domain.SimilarCase{}); got != nil {
		t.Fatalf("expected nil for empty cases, got %v", got)
	}
}

func TestExtractParts_RanksByFrequency(t *testing.T) {
	cases := []domain.SimilarCase{
		caseWith("c1", "7J065-85200, 9L200-54321", 0.9),
		caseWith("c2", "7J065-85200, 9L200-54321", 0.8),
		caseWith("c3", "9L200-54321", 0.7),
	}

	got := ExtractParts(cases)
	if len(got) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(got))
	}

	first := got[0]
	if first.PartNumber != "9L200-54321" || first.Frequency != 3 || first.Confidence != 1.0 {
		t.Errorf("wrong top part: %+v", first)
	}
	if first.Reasoning != "3/3 similar cases" {
		t.Errorf("wrong reasoning: %q", first.Reasoning)
	}

	second := got[1]
	if second.PartNumber != "7J065-85200" || second.Frequency != 2 || second.Confidence != 0.667 {
		t.Errorf("wrong second part: %+v", second)
	}
	if second.Reasoning != "2/3 similar cases" {
		t.Errorf("wrong reasoning: %q", second.Reasoning)
	}
}

func TestExtractParts_TracksSourceCases(t *testing.T) {
	cases := []domain.SimilarCase{
		caseWith("c1", "A, B", 0.9),
		caseWith("c2", "B", 0.8),
		caseWith("c3", "A", 0.7),
	}

	got := ExtractParts(cases)
	for _, rec := range got {
		want := map[string][]string{
			"A": {"c1", "c3"},
			"B": {"c1", "c2"},
		}[rec.PartNumber]
		if len(rec.ClaimIDs) != len(want) {
			t.Fatalf("part %s: expected claims %v, got %v", rec.PartNumber, want, rec.ClaimIDs)
		}
		for i := range want {
			if rec.ClaimIDs[i] != want[i] {
				t.Errorf("part %s: expected claims %v, got %v", rec.PartNumber, want, rec.ClaimIDs)
			}
		}
	}
}

func TestExtractParts_WithinCaseDuplicatesCount(t *testing.T) {
	cases := []domain.SimilarCase{
		caseWith("c1", "A, A", 0.9),
	}

	got := ExtractParts(cases)
	if len(got) != 1 {
		t.Fatalf("expected 1 part, got %d", len(got))
	}
	if got[0].Frequency != 2 {
		t.Errorf("repeated token should count twice, got frequency %d", got[0].Frequency)
	}
	if len(got[0].ClaimIDs) != 1 || got[0].ClaimIDs[0] != "c1" {
		t.Errorf("repeated token should record its case once, got %v", got[0].ClaimIDs)
	}
}

func TestExtractParts_StableTieOrder(t *testing.T) {
	cases := []domain.SimilarCase{
		caseWith("c1", "Z-PART, A-PART, M-PART", 0.9),
	}

	got := ExtractParts(cases)
	want := []string{"Z-PART", "A-PART", "M-PART"}
	if len(got) != len(want) {
		t.Fatalf("expected %d parts, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].PartNumber != w {
			t.Errorf("position %d: expected %s (first-seen order), got %s", i, w, got[i].PartNumber)
		}
	}
}

func TestExtractParts_CapsAtTen(t *testing.T) {
	parts := ""
	for i := 0; i < 14; i++ {
		if i > 0 {
			parts += ", "
		}
		parts += fmt.Sprintf("P%02d", i)
	}
	got := ExtractParts([]domain.SimilarCase{caseWith("c1", parts, 0.9)})
	if len(got) != 10 {
		t.Fatalf("expected cap at 10, got %d", len(got))
	}
}

func TestExtractParts_SkipsNanAndBlank(t *testing.T) {
	cases := []domain.SimilarCase{
		caseWith("c1", "A, nan, , NaN, B", 0.9),
	}

	got := ExtractParts(cases)
	if len(got) != 2 {
		t.Fatalf("expected 2 parts, got %d: %v", len(got), got)
	}
	if got[0].PartNumber != "A" || got[1].PartNumber != "B" {
		t.Errorf("wrong parts: %v", got)
	}
}

func TestExtractParts_Round3(t *testing.T) {
	cases := []domain.SimilarCase{
		caseWith("c1", "A", 0.9),
		caseWith("c2", "B", 0.8),
		caseWith("c3", "B", 0.7),
	}

	got := ExtractParts(cases)
	for _, rec := range got {
		switch rec.PartNumber {
		case "A":
			if rec.Confidence != 0.333 {
				t.Errorf("expected 0.333 for 1/3, got %g", rec.Confidence)
			}
		case "B":
			if rec.Confidence != 0.667 {
				t.Errorf("expected 0.667 for 2/3, got %g", rec.Confidence)
			}
		}
	}
}
