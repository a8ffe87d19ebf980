// Package scoring implements the answer evaluation pipeline: keyword
// coverage, semantic similarity with graceful degradation, delivery
// analysis, and weighted aggregation into a score breakdown.
package scoring

import (
	"fmt"
	"strings"

	"github.com/vinsol/interviewsim/internal/model"
)

// KeywordCoverage returns the fraction of required keywords found at
// least once in the transcript, in [0,1]. Matching is case-insensitive;
// with stem enabled, common English suffixes are stripped from both
// sides before comparison. Multi-word keywords match as phrases.
func KeywordCoverage(tr model.Transcript, keywords []string, stem bool) (float64, error) {
	if len(keywords) == 0 {
		return 0, fmt.Errorf("%w: required keyword set is empty", model.ErrInvalidInput)
	}

	words := make([]string, 0, len(tr.Tokens))
	for _, tok := range tr.Tokens {
		w := normalizeWord(tok.Text)
		if w == "" {
			continue
		}
		if stem {
			w = stemWord(w)
		}
		words = append(words, w)
	}
	text := " " + strings.Join(words, " ") + " "

	found := 0
	for _, kw := range keywords {
		parts := strings.Fields(strings.ToLower(kw))
		for i, p := range parts {
			p = normalizeWord(p)
			if stem {
				p = stemWord(p)
			}
			parts[i] = p
		}
		needle := " " + strings.Join(parts, " ") + " "
		if strings.Contains(text, needle) {
			found++
		}
	}
	return float64(found) / float64(len(keywords)), nil
}

// normalizeWord lowercases and strips leading/trailing punctuation.
func normalizeWord(w string) string {
	return strings.Trim(strings.ToLower(w), ".,;:!?\"'()[]{}")
}

// stemWord strips a few common English suffixes. This is deliberately
// crude: it only needs to make "deployed" match "deploy", not be a real
// stemmer.
func stemWord(w string) string {
	for _, suf := range []string{"ing", "ies", "ied", "es", "ed", "s"} {
		if strings.HasSuffix(w, suf) && len(w)-len(suf) >= 3 {
			return w[:len(w)-len(suf)]
		}
	}
	return w
}
