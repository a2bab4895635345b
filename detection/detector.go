// Package detection scores call transcripts for scam indicators.
package detection

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"call-filter/domain"

	"github.com/umahmood/soundex"
)

// Words shorter than this only ever match exactly.
const minPhoneticLength = 4

type compiledRule struct {
	Rule
	words []string
	codes []string
}

type Detector struct {
	threshold float64
	rules     []compiledRule
}

func New(rules Rules) *Detector {
	d := &Detector{threshold: rules.Threshold}
	if d.threshold == 0 {
		d.threshold = DefaultThreshold
	}
	for _, r := range rules.Rules {
		words := tokenize(r.Phrase)
		if len(words) == 0 {
			continue
		}
		d.rules = append(d.rules, compiledRule{Rule: r, words: words, codes: codes(words)})
	}
	return d
}

func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Analyze scores a transcript. Every rule counts at most once.
func (d *Detector) Analyze(transcript string) domain.ScamResult {
	words := tokenize(transcript)
	if len(words) == 0 {
		return domain.ScamResult{
			Matches:    []string{},
			Categories: []string{},
			Reason:     "no speech detected",
		}
	}
	wordCodes := codes(words)

	score := 0.0
	matches := []string{}
	categories := map[string]struct{}{}
	for _, r := range d.rules {
		if !r.matches(words, wordCodes) {
			continue
		}
		score += r.Weight
		matches = append(matches, r.Phrase)
		categories[r.Category] = struct{}{}
	}
	score = math.Min(1, score)

	result := domain.ScamResult{
		IsScam:     score >= d.threshold,
		Score:      math.Round(score*100) / 100,
		Matches:    matches,
		Categories: sortedKeys(categories),
	}
	switch {
	case result.IsScam:
		result.Reason = fmt.Sprintf("matched %d scam indicators (%s)", len(matches), strings.Join(result.Categories, ", "))
	case len(matches) > 0:
		result.Reason = fmt.Sprintf("matched %d scam indicators, below threshold %.2f", len(matches), d.threshold)
	default:
		result.Reason = "no scam indicators found"
	}
	return result
}

// matches reports whether the rule's words appear in sequence. Words may match
// by Soundex code, but at least one word of the sequence must match exactly,
// so single-word rules are exact only.
func (r compiledRule) matches(words, wordCodes []string) bool {
	n := len(r.words)
	for i := 0; i+n <= len(words); i++ {
		ok, exact := true, 0
		for j := 0; j < n; j++ {
			if r.words[j] == words[i+j] {
				exact++
				continue
			}
			if r.codes[j] == "" || r.codes[j] != wordCodes[i+j] {
				ok = false
				break
			}
		}
		if ok && exact > 0 {
			return true
		}
	}
	return false
}

func codes(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		if len(w) >= minPhoneticLength && isAlpha(w) {
			out[i] = soundex.Code(w)
		}
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
