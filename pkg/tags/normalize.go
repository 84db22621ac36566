// Package tags maps free-form labels onto the fixed, field-scoped canonical
// tag vocabulary. Unmappable or disallowed tags never fail a call; they are
// dropped and reported as Issues.
package tags

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

const (
	// MaxRawTags is the number of raw tags considered per call; the rest are ignored.
	MaxRawTags = 24
	// MaxTags caps the canonical tags returned per call.
	MaxTags = 8

	fuzzyAcceptScore = 8
	maxEditDistance  = 2
)

// Field identifies which semantic tag set is being normalized
type Field string

// Tag fields
const (
	FieldInputs       Field = "inputs"
	FieldArtifacts    Field = "artifacts"
	FieldCapabilities Field = "capabilities"
)

// Fields lists every tag field
var Fields = []Field{FieldInputs, FieldArtifacts, FieldCapabilities}

// Reason explains why an Issue was recorded
type Reason string

// Issue reasons
const (
	ReasonUnknownTag      Reason = "unknown_tag"
	ReasonFieldNotAllowed Reason = "field_not_allowed"
	ReasonLowConfidence   Reason = "low_confidence"
)

// Issue records a raw tag that could not be mapped, was disallowed for its
// field, or was mapped through a low-confidence path
type Issue struct {
	Field  Field  `json:"field"`
	Raw    string `json:"raw"`
	Mapped string `json:"mapped,omitempty"`
	Reason Reason `json:"reason"`
}

// match is the outcome of looking up one cleaned raw tag
type match struct {
	tag           string
	lowConfidence bool
}

// Normalize canonicalizes raw tags for a field. The returned list keeps the
// order of first acceptance, holds no duplicates and has at most MaxTags
// entries.
func Normalize(raw []string, field Field) ([]string, []Issue) {
	if len(raw) > MaxRawTags {
		raw = raw[:MaxRawTags]
	}

	out := make([]string, 0, MaxTags)
	seen := make(map[string]bool, MaxTags)
	var issues []Issue

	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}

		tokens := clean(r)
		m, ok := match{}, false
		if len(tokens) > 0 {
			m, ok = lookup(tokens)
		}
		if !ok {
			issues = append(issues, Issue{Field: field, Raw: r, Reason: ReasonUnknownTag})
			continue
		}
		if m.lowConfidence {
			issues = append(issues, Issue{Field: field, Raw: r, Mapped: m.tag, Reason: ReasonLowConfidence})
		}

		tag := m.tag
		if !Allowed(tag, field) {
			corrected, fixed := autocorrect(tag, field)
			if !fixed {
				issues = append(issues, Issue{Field: field, Raw: r, Mapped: tag, Reason: ReasonFieldNotAllowed})
				continue
			}
			tag = corrected
		}

		if seen[tag] || len(out) >= MaxTags {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}

	return out, issues
}

// Canonicalize maps a single raw tag onto the vocabulary without field
// enforcement. The second result is false when nothing matched.
func Canonicalize(raw string) (string, bool) {
	tokens := clean(raw)
	if len(tokens) == 0 {
		return "", false
	}
	m, ok := lookup(tokens)
	return m.tag, ok
}

func autocorrect(tag string, field Field) (string, bool) {
	if field != FieldArtifacts {
		return "", false
	}
	corrected, ok := artifactAutocorrect[tag]
	if !ok || !Allowed(corrected, field) {
		return "", false
	}
	return corrected, true
}

// clean lower-cases the raw tag and folds every run of characters that are
// neither letters nor digits into a single separator, returning the words.
func clean(raw string) []string {
	return strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func lookup(tokens []string) (match, bool) {
	hyphenated := strings.Join(tokens, "-")
	spaced := strings.Join(tokens, " ")
	compact := strings.Join(tokens, "")

	if IsCanonical(hyphenated) {
		return match{tag: hyphenated}, true
	}
	if IsCanonical(spaced) {
		return match{tag: spaced}, true
	}
	if t, ok := aliases[spaced]; ok {
		return match{tag: t}, true
	}
	if t, ok := synonyms[compact]; ok {
		return match{tag: t}, true
	}
	if t, ok := synonyms[spaced]; ok {
		return match{tag: t}, true
	}

	padded := " " + spaced + " "
	for _, c := range compoundPhrases {
		if strings.Contains(padded, " "+c.phrase+" ") {
			return match{tag: c.tag}, true
		}
	}

	if len(tokens) > 1 {
		for _, tok := range tokens {
			if IsCanonical(tok) {
				return match{tag: tok, lowConfidence: true}, true
			}
			if t, ok := synonyms[tok]; ok {
				return match{tag: t, lowConfidence: true}, true
			}
		}
	}

	if t, ok := fuzzyMatch(tokens, hyphenated); ok {
		return match{tag: t, lowConfidence: true}, true
	}
	if t, ok := editDistanceMatch(compact); ok {
		return match{tag: t, lowConfidence: true}, true
	}

	return match{}, false
}

// fuzzyScore rates how well the cleaned tokens describe a vocabulary entry
func fuzzyScore(tokens []string, hyphenated, entry string) int {
	score := 0
	if hyphenated == entry {
		score += 50
	}

	words := strings.Split(entry, "-")
	entryCompact := strings.Join(words, "")

	for _, tok := range tokens {
		switch {
		case containsString(words, tok):
			score += 10
		case len(words) > 1 && tok == entryCompact:
			score += 6
		case len(tok) > 3 && substringOfAny(tok, words):
			score += 2
		}
	}
	return score
}

func fuzzyMatch(tokens []string, hyphenated string) (string, bool) {
	best := ""
	bestScore := 0
	for _, entry := range sortedVocabulary {
		s := fuzzyScore(tokens, hyphenated, entry)
		if s > bestScore || (s == bestScore && s > 0 && len(entry) < len(best)) {
			best = entry
			bestScore = s
		}
	}
	if bestScore >= fuzzyAcceptScore {
		return best, true
	}
	return "", false
}

func editDistanceMatch(compact string) (string, bool) {
	type hit struct {
		tag      string
		distance int
	}
	var hits []hit
	for _, entry := range sortedVocabulary {
		entryCompact := strings.ReplaceAll(entry, "-", "")
		if len(entryCompact) <= 2 {
			continue
		}
		if d := levenshtein.Distance(compact, entryCompact, nil); d <= maxEditDistance {
			hits = append(hits, hit{tag: entry, distance: d})
		}
	}
	if len(hits) == 0 {
		return "", false
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].tag < hits[j].tag
	})
	return hits[0].tag, true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func substringOfAny(tok string, words []string) bool {
	for _, w := range words {
		if strings.Contains(w, tok) || (len(w) > 3 && strings.Contains(tok, w)) {
			return true
		}
	}
	return false
}
