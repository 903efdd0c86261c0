package recommend

import "github.com/FieldmateAI/fieldmate-mvp/engine/domain"

// Overall confidence weights parts evidence above raw textual similarity:
// parts reflect actual repair outcomes, not just symptom wording.
const (
	caseSimilarityWeight  = 0.4
	partsConfidenceWeight = 0.6
)

// EvaluateConfidence scores one run. Case similarity is the mean case
// score, parts confidence the mean recommendation confidence; both are 0.0
// for empty inputs, never a fault.
func EvaluateConfidence(cases []domain.SimilarCase, recs []domain.PartRecommendation) domain.ConfidenceReport {
	var report domain.ConfidenceReport

	if len(cases) > 0 {
		sum := 0.0
		for _, c := range cases {
			sum += c.SimilarityScore
		}
		report.CaseSimilarity = sum / float64(len(cases))
	}

	if len(recs) > 0 {
		sum := 0.0
		for _, r := range recs {
			sum += r.Confidence
		}
		report.PartsConfidence = sum / float64(len(recs))
	}

	report.OverallConfidence = caseSimilarityWeight*report.CaseSimilarity + partsConfidenceWeight*report.PartsConfidence
	report.Quality = domain.Tier(report.OverallConfidence)
	return report
}
