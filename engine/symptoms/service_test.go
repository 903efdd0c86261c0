package symptoms

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
	"github.com/FieldmateAI/fieldmate-mvp/engine/search"
)

// --- mocks ---

type fakeSearcher struct {
	cases    []domain.SimilarCase
	err      error
	lastOpts search.Options
	calls    int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, opts search.Options) ([]domain.SimilarCase, error) {
	f.calls++
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.cases, nil
}

type fakeChatter struct {
	reply    string
	err      error
	lastTemp float64
	lastUser string
	calls    int
}

func (f *fakeChatter) Chat(_ context.Context, _, user string, temperature float64) (string, error) {
	f.calls++
	f.lastTemp = temperature
	f.lastUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func historicalCase(clean string, score float64) domain.SimilarCase {
	return domain.SimilarCase{
		ClaimID:          "CL-" + clean[:1],
		SeriesName:       "L3901",
		SubAssembly:      "Fuel System",
		SymptomTextClean: clean,
		SimilarityScore:  score,
	}
}

const threeVariations = `[
  {"suggestion": "fuel starvation under load", "confidence": 0.9},
  {"suggestion": "clogged fuel filter restricting flow", "confidence": 0.8},
  {"suggestion": "injection pump low pressure", "confidence": 0.7}
]`

// --- tests ---

func TestSuggest_CombinesAndRanks(t *testing.T) {
	searcher := &fakeSearcher{cases: []domain.SimilarCase{
		historicalCase("engine stalls when pto engaged", 0.95),
		historicalCase("loses power climbing grades", 0.75),
	}}
	chat := &fakeChatter{reply: threeVariations}
	svc := NewService(searcher, chat, nil)

	got := svc.Suggest(context.Background(), "tractor dies under load", "L3901")
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[0].Suggestion != "engine stalls when pto engaged" || got[0].Source != SourceHistorical {
		t.Fatalf("top suggestion = %+v", got[0])
	}
	if got[1].Suggestion != "fuel starvation under load" || got[1].Source != SourceGenerated {
		t.Fatalf("second suggestion = %+v", got[1])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Confidence > got[i-1].Confidence {
			t.Fatalf("not sorted by confidence at %d: %v", i, got)
		}
	}
	if searcher.lastOpts.TypeHint != "L3901" || searcher.lastOpts.Limit != 10 {
		t.Fatalf("search opts = %+v", searcher.lastOpts)
	}
	if chat.lastTemp != 0.3 {
		t.Fatalf("temperature = %v, want 0.3", chat.lastTemp)
	}
	if !strings.Contains(chat.lastUser, "tractor dies under load") {
		t.Fatalf("prompt missing symptom: %q", chat.lastUser)
	}
}

func TestSuggest_CapsAtFive(t *testing.T) {
	searcher := &fakeSearcher{cases: []domain.SimilarCase{
		historicalCase("alpha symptom", 0.9),
		historicalCase("bravo symptom", 0.8),
		historicalCase("charlie symptom", 0.7),
		historicalCase("delta symptom", 0.6),
	}}
	chat := &fakeChatter{reply: threeVariations}
	svc := NewService(searcher, chat, nil)

	got := svc.Suggest(context.Background(), "won't start", "")
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	// Only three historical survive the per-source cap, so delta never
	// enters the pool.
	for _, sg := range got {
		if sg.Suggestion == "delta symptom" {
			t.Fatalf("fourth historical case leaked through: %v", got)
		}
	}
}

func TestSuggest_DedupKeepsHigherConfidence(t *testing.T) {
	searcher := &fakeSearcher{cases: []domain.SimilarCase{
		historicalCase("Fuel Starvation Under Load", 0.95),
	}}
	chat := &fakeChatter{reply: `[{"suggestion": "fuel starvation under load", "confidence": 0.8}]`}
	svc := NewService(searcher, chat, nil)

	got := svc.Suggest(context.Background(), "dies under load", "")
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 after dedup: %v", len(got), got)
	}
	if got[0].Confidence != 0.95 || got[0].Source != SourceHistorical {
		t.Fatalf("kept entry = %+v, want historical at 0.95", got[0])
	}
}

func TestSuggest_HistoricalSkipsDuplicateAndEmptyText(t *testing.T) {
	searcher := &fakeSearcher{cases: []domain.SimilarCase{
		historicalCase("overheats at idle", 0.9),
		historicalCase("overheats at idle", 0.85),
		{ClaimID: "CL-X", SimilarityScore: 0.8},
		historicalCase("coolant loss near thermostat", 0.7),
	}}
	chat := &fakeChatter{err: errors.New("chat down")}
	svc := NewService(searcher, chat, nil)

	got := svc.Suggest(context.Background(), "running hot", "")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(got), got)
	}
	if got[0].Suggestion != "overheats at idle" || got[1].Suggestion != "coolant loss near thermostat" {
		t.Fatalf("suggestions = %v", got)
	}
}

func TestSuggest_TruncatesLongPhrases(t *testing.T) {
	long := strings.Repeat("fuel pressure drops when the engine warms up ", 5)
	searcher := &fakeSearcher{cases: []domain.SimilarCase{historicalCase(long, 0.9)}}
	chat := &fakeChatter{err: errors.New("chat down")}
	svc := NewService(searcher, chat, nil)

	got := svc.Suggest(context.Background(), "low power", "")
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if n := len([]rune(got[0].Suggestion)); n != 100 {
		t.Fatalf("suggestion length = %d runes, want 100", n)
	}
}

func TestSuggest_UnparseableReplyFallsBack(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("store down")}
	chat := &fakeChatter{reply: "Sure! Here are some ideas for you."}
	svc := NewService(searcher, chat, nil)

	got := svc.Suggest(context.Background(), "hydraulics slow", "")
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1: %v", len(got), got)
	}
	want := Suggestion{Suggestion: "hydraulics slow", Confidence: 0.5, Source: SourceFallback}
	if got[0] != want {
		t.Fatalf("got %+v, want %+v", got[0], want)
	}
}

func TestSuggest_ChatErrorKeepsHistorical(t *testing.T) {
	searcher := &fakeSearcher{cases: []domain.SimilarCase{historicalCase("pto clutch slipping", 0.9)}}
	chat := &fakeChatter{err: errors.New("chat down")}
	svc := NewService(searcher, chat, nil)

	got := svc.Suggest(context.Background(), "pto weak", "")
	if len(got) != 1 || got[0].Source != SourceHistorical {
		t.Fatalf("got %v, want single historical suggestion", got)
	}
}

func TestSuggest_BothSourcesFailReturnsOriginal(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("store down")}
	chat := &fakeChatter{err: errors.New("chat down")}
	svc := NewService(searcher, chat, nil)

	got := svc.Suggest(context.Background(), "engine knocks", "")
	want := []Suggestion{{Suggestion: "engine knocks", Confidence: 1.0, Source: SourceOriginal}}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTechnicalSymptoms_ProjectsPhrases(t *testing.T) {
	searcher := &fakeSearcher{cases: []domain.SimilarCase{historicalCase("engine stalls when pto engaged", 0.95)}}
	chat := &fakeChatter{err: errors.New("chat down")}
	svc := NewService(searcher, chat, nil)

	phrases, err := svc.TechnicalSymptoms(context.Background(), "dies under load", "L3901")
	if err != nil {
		t.Fatalf("TechnicalSymptoms: %v", err)
	}
	if len(phrases) != 1 || phrases[0] != "engine stalls when pto engaged" {
		t.Fatalf("phrases = %v", phrases)
	}
}
