// Package symptoms converts plain-language complaints into ranked
// technical symptom suggestions, blending the phrasing of similar
// historical cases with chat-generated technical variations.
package symptoms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
	"github.com/FieldmateAI/fieldmate-mvp/engine/search"
)

// Suggestion sources.
const (
	SourceHistorical = "historical"
	SourceGenerated  = "ai_generated"
	SourceFallback   = "ai_fallback"
	SourceOriginal   = "original"
)

const (
	maxSuggestions = 5
	maxHistorical  = 3
	maxPhraseLen   = 100
	chatTemp       = 0.3
)

// Suggestion is one ranked technical rephrasing of a user symptom.
type Suggestion struct {
	Suggestion  string  `json:"suggestion"`
	Confidence  float64 `json:"confidence"`
	Source      string  `json:"source"`
	Series      string  `json:"series,omitempty"`
	SubAssembly string  `json:"subassembly,omitempty"`
}

// Chatter is the completion surface used for technical rephrasing.
type Chatter interface {
	Chat(ctx context.Context, system, user string, temperature float64) (string, error)
}

// CaseSearcher finds historically similar cases for phrase mining.
type CaseSearcher interface {
	Search(ctx context.Context, queryText string, opts search.Options) ([]domain.SimilarCase, error)
}

// Service produces symptom suggestions. Both sources are best-effort: a
// failed source contributes nothing rather than failing the call.
type Service struct {
	searcher CaseSearcher
	chat     Chatter
	logger   *slog.Logger
}

// NewService wires the suggestion service.
func NewService(searcher CaseSearcher, chat Chatter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{searcher: searcher, chat: chat, logger: logger}
}

// Suggest returns up to five suggestions ranked by confidence: the top
// historical phrasings plus chat-generated variations, deduplicated
// case-insensitively keeping the higher-confidence entry. When both
// sources fail outright the original symptom comes back at full
// confidence so callers always have something to work with.
func (s *Service) Suggest(ctx context.Context, userSymptom, machineType string) []Suggestion {
	historical, histErr := s.historical(ctx, userSymptom, machineType)
	generated, genErr := s.generated(ctx, userSymptom, machineType)

	if histErr != nil && genErr != nil {
		return []Suggestion{{Suggestion: userSymptom, Confidence: 1.0, Source: SourceOriginal}}
	}

	combined := rank(append(historical, generated...))
	if len(combined) > maxSuggestions {
		combined = combined[:maxSuggestions]
	}
	return combined
}

// TechnicalSymptoms projects Suggest onto the bare phrase list consumed
// by the recommendation pipeline.
func (s *Service) TechnicalSymptoms(ctx context.Context, userSymptom, machineType string) ([]string, error) {
	suggestions := s.Suggest(ctx, userSymptom, machineType)
	phrases := make([]string, 0, len(suggestions))
	for _, sg := range suggestions {
		phrases = append(phrases, sg.Suggestion)
	}
	return phrases, nil
}

// historical mines the distinct clean symptom texts of the most similar
// cases, scored by their similarity.
func (s *Service) historical(ctx context.Context, userSymptom, machineType string) ([]Suggestion, error) {
	cases, err := s.searcher.Search(ctx, userSymptom, search.Options{TypeHint: machineType, Limit: 10})
	if err != nil {
		s.logger.Warn("historical suggestions unavailable", "err", err)
		return nil, err
	}

	var out []Suggestion
	seen := make(map[string]bool)
	for _, c := range cases {
		clean := c.SymptomTextClean
		if clean == "" || seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, Suggestion{
			Suggestion:  truncate(clean, maxPhraseLen),
			Confidence:  c.SimilarityScore,
			Source:      SourceHistorical,
			Series:      c.SeriesName,
			SubAssembly: c.SubAssembly,
		})
		if len(out) == maxHistorical {
			break
		}
	}
	return out, nil
}

const suggestSystem = "You are an agricultural equipment service advisor. Convert plain-language complaints into precise technical symptom descriptions a technician would log."

func suggestPrompt(userSymptom, machineType string) string {
	machineContext := ""
	if machineType != "" {
		machineContext = fmt.Sprintf(" for %s series equipment", machineType)
	}
	return fmt.Sprintf(`Convert this symptom description into 3 technical variations%s.

Symptom: %q

Each variation should be more specific, name the relevant system or component, and use proper service terminology.

Respond with only a JSON array:
[
  {"suggestion": "technical symptom 1", "confidence": 0.9},
  {"suggestion": "technical symptom 2", "confidence": 0.8},
  {"suggestion": "technical symptom 3", "confidence": 0.7}
]`, machineContext, userSymptom)
}

// generated asks the chat model for technical variations. An unparseable
// reply degrades to the original symptom at half confidence; a failed
// call contributes nothing.
func (s *Service) generated(ctx context.Context, userSymptom, machineType string) ([]Suggestion, error) {
	reply, err := s.chat.Chat(ctx, suggestSystem, suggestPrompt(userSymptom, machineType), chatTemp)
	if err != nil {
		s.logger.Warn("generated suggestions unavailable", "err", err)
		return nil, err
	}

	var parsed []struct {
		Suggestion string  `json:"suggestion"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil {
		return []Suggestion{{Suggestion: userSymptom, Confidence: 0.5, Source: SourceFallback}}, nil
	}

	out := make([]Suggestion, 0, len(parsed))
	for _, p := range parsed {
		out = append(out, Suggestion{Suggestion: p.Suggestion, Confidence: p.Confidence, Source: SourceGenerated})
	}
	return out, nil
}

// rank deduplicates case-insensitively (higher confidence wins, first
// entry wins ties) and orders by confidence descending, stable.
func rank(all []Suggestion) []Suggestion {
	unique := make(map[string]Suggestion)
	var order []string
	for _, sg := range all {
		key := strings.ToLower(strings.TrimSpace(sg.Suggestion))
		cur, ok := unique[key]
		if !ok {
			unique[key] = sg
			order = append(order, key)
			continue
		}
		if sg.Confidence > cur.Confidence {
			unique[key] = sg
		}
	}

	out := make([]Suggestion, 0, len(order))
	for _, key := range order {
		out = append(out, unique[key])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
