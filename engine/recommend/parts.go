// Package recommend implements the parts-recommendation pipeline: a fixed
// seven-stage workflow that turns a free-text repair complaint into ranked
// part recommendations backed by similar historical cases. Stage failures
// are recorded on the shared state and never abort a run; a degraded
// result beats no result.
package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
)

// maxParts caps how many recommendations one extraction returns.
const maxParts = 10

// ExtractParts tallies part usage across similar cases and ranks parts by
// how many times they appear. Each occurrence counts, including repeats
// within a single case's parts field. Confidence is the occurrence count
// over the case count, rounded to three decimals; ties keep first-seen
// order.
func ExtractParts(cases []domain.SimilarCase) []domain.PartRecommendation {
	total := len(cases)
	if total == 0 {
		return nil
	}

	type tally struct {
		freq   int
		claims []string
	}
	counts := make(map[string]*tally)
	var order []string

	for _, c := range cases {
		for _, part := range c.PartsList() {
			t, ok := counts[part]
			if !ok {
				t = &tally{}
				counts[part] = t
				order = append(order, part)
			}
			t.freq++
			if len(t.claims) == 0 || t.claims[len(t.claims)-1] != c.ClaimID {
				t.claims = append(t.claims, c.ClaimID)
			}
		}
	}

	recs := make([]domain.PartRecommendation, 0, len(order))
	for _, part := range order {
		t := counts[part]
		recs = append(recs, domain.PartRecommendation{
			PartNumber: part,
			Frequency:  t.freq,
			Confidence: round3(float64(t.freq) / float64(total)),
			Reasoning:  fmt.Sprintf("%d/%d similar cases", t.freq, total),
			ClaimIDs:   t.claims,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Frequency > recs[j].Frequency })

	if len(recs) > maxParts {
		recs = recs[:maxParts]
	}
	return recs
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
