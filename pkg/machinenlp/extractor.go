// Package machinenlp extracts equipment series and model mentions from
// unstructured repair text using regex patterns and a model-prefix registry.
// No external dependencies.
package machinenlp

import (
	"regexp"
	"sort"
	"strings"
)

// MachineMatch represents an extracted equipment mention.
type MachineMatch struct {
	Series     string  // equipment family, e.g. "Tractor", "Excavator"
	Model      string  // canonical model code, e.g. "L3901", "KX040-4" ("" if only a family keyword matched)
	Confidence float64 // 0.0-1.0
	Span       string  // the matched text fragment
}

// modelPatterns map model-code shapes to their equipment family. Multi-letter
// prefixes come first so "BX2380" is not claimed by the bare-B pattern.
// Single-letter prefixes require digits immediately after the letter.
var modelPatterns = []struct {
	re     *regexp.Regexp
	family string
}{
	{regexp.MustCompile(`(?i)\b(SVL\d{2}(?:-\d)?)\b`), "Track Loader"},
	{regexp.MustCompile(`(?i)\b(SSV\d{2})\b`), "Skid Steer"},
	{regexp.MustCompile(`(?i)\b(RTV[- ]?X?\d{3,4}[A-Z]{0,2})\b`), "Utility Vehicle"},
	{regexp.MustCompile(`(?i)\b(KX\d{3}(?:-\d)?)\b`), "Excavator"},
	{regexp.MustCompile(`(?i)\b(BX\d{2,4}[A-Z]?)\b`), "Tractor"},
	{regexp.MustCompile(`(?i)\b(LX\d{4})\b`), "Tractor"},
	{regexp.MustCompile(`(?i)\b(MX\d{4})\b`), "Tractor"},
	{regexp.MustCompile(`(?i)\b(ZD\d{3,4}(?:-\d)?)\b`), "Mower"},
	{regexp.MustCompile(`(?i)\b(ZG\d{3})\b`), "Mower"},
	{regexp.MustCompile(`(?i)\b(GR\d{4})\b`), "Mower"},
	{regexp.MustCompile(`(?i)\b(U\d{2}(?:-\d)?)\b`), "Excavator"},
	{regexp.MustCompile(`(?i)\b(B\d{4})\b`), "Tractor"},
	{regexp.MustCompile(`(?i)\b(L\d{4}[A-Z]{0,2})\b`), "Tractor"},
	{regexp.MustCompile(`(?i)\b(M\d{4}[A-Z]{0,2})\b`), "Tractor"},
	{regexp.MustCompile(`(?i)\b(M[4-8]-\d{3})\b`), "Tractor"},
	{regexp.MustCompile(`(?i)\b(Z\d{3}[A-Z]{0,2})\b`), "Mower"},
	{regexp.MustCompile(`(?i)\b(R\d{3})\b`), "Wheel Loader"},
}

// seriesKeywords maps free-text family mentions to canonical family names.
var seriesKeywords = map[string]string{
	"sub-compact tractor": "Tractor",
	"subcompact tractor":  "Tractor",
	"compact tractor":     "Tractor",
	"utility tractor":     "Tractor",
	"tractor":             "Tractor",
	"mini excavator":      "Excavator",
	"mini-excavator":      "Excavator",
	"excavator":           "Excavator",
	"track loader":        "Track Loader",
	"skid steer":          "Skid Steer",
	"skid-steer":          "Skid Steer",
	"wheel loader":        "Wheel Loader",
	"front loader":        "Loader",
	"loader":              "Loader",
	"backhoe":             "Backhoe",
	"zero-turn":           "Mower",
	"zero turn":           "Mower",
	"mower":               "Mower",
	"utility vehicle":     "Utility Vehicle",
	"side-by-side":        "Utility Vehicle",
	"rtv":                 "Utility Vehicle",
}

// keywordOrder lists series keywords longest first so "compact tractor"
// wins over "tractor".
var keywordOrder []string

func init() {
	for kw := range seriesKeywords {
		keywordOrder = append(keywordOrder, kw)
	}
	sort.Slice(keywordOrder, func(i, j int) bool {
		if len(keywordOrder[i]) != len(keywordOrder[j]) {
			return len(keywordOrder[i]) > len(keywordOrder[j])
		}
		return keywordOrder[i] < keywordOrder[j]
	})
}

// Extract finds all equipment mentions in text, sorted by confidence
// descending. Model-code matches score higher than bare family keywords;
// a model code with its family keyword nearby scores highest.
func Extract(text string) []MachineMatch {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lower := strings.ToLower(text)
	var matches []MachineMatch
	seenModel := make(map[string]bool)
	matchedFamilies := make(map[string]bool)

	for _, p := range modelPatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			raw := text[loc[2]:loc[3]]
			model := canonicalModel(raw)
			if seenModel[model] {
				continue
			}
			seenModel[model] = true
			matchedFamilies[p.family] = true

			conf := 0.85
			if familyKeywordPresent(lower, p.family) {
				conf = 0.95
			}
			matches = append(matches, MachineMatch{
				Series:     p.family,
				Model:      model,
				Confidence: conf,
				Span:       raw,
			})
		}
	}

	// Family keywords with no model code still give a weak hint. Matched
	// keywords are masked out so "loader" cannot re-match inside an already
	// consumed "track loader" (longest keywords run first).
	searchText := lower
	for _, kw := range keywordOrder {
		family := seriesKeywords[kw]
		idx := indexBounded(searchText, kw)
		if idx < 0 {
			continue
		}
		searchText = strings.ReplaceAll(searchText, kw, strings.Repeat("#", len(kw)))
		if matchedFamilies[family] {
			continue
		}
		matchedFamilies[family] = true
		matches = append(matches, MachineMatch{
			Series:     family,
			Confidence: 0.60,
			Span:       text[idx : idx+len(kw)],
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// ExtractBest returns the single highest-confidence match, or nil.
func ExtractBest(text string) *MachineMatch {
	matches := Extract(text)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// canonicalModel normalizes a raw model mention: uppercase, internal
// spaces collapsed to the hyphenated form ("rtv x1100c" -> "RTV-X1100C").
func canonicalModel(raw string) string {
	up := strings.ToUpper(strings.TrimSpace(raw))
	up = strings.ReplaceAll(up, " ", "-")
	return up
}

// familyKeywordPresent reports whether any keyword of the family appears in
// the lowercased text.
func familyKeywordPresent(lower, family string) bool {
	for kw, fam := range seriesKeywords {
		if fam != family {
			continue
		}
		if indexBounded(lower, kw) >= 0 {
			return true
		}
	}
	return false
}

// indexBounded returns the index of the first word-bounded occurrence of
// sub in s, or -1.
func indexBounded(s, sub string) int {
	from := 0
	for {
		idx := strings.Index(s[from:], sub)
		if idx < 0 {
			return -1
		}
		idx += from
		if wordBounded(s, idx, len(sub)) {
			return idx
		}
		from = idx + 1
	}
}

// wordBounded reports whether s[idx:idx+n] sits on word boundaries.
func wordBounded(s string, idx, n int) bool {
	if idx > 0 {
		prev := s[idx-1]
		if isWordByte(prev) {
			return false
		}
	}
	end := idx + n
	if end < len(s) {
		if isWordByte(s[end]) {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
