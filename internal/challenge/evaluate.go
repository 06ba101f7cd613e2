package challenge

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/finsightlab/progression/internal/domain"
)

// Evaluate scores a raw submission against a challenge's answer schema.
// It never fails: an unparseable or incomplete submission scores zero with
// a diagnostic explaining why, so a learner's flow is never blocked by a
// scoring fault.
func Evaluate(ch domain.Challenge, raw json.RawMessage, now time.Time) domain.ChallengeAttempt {
	attempt := domain.ChallengeAttempt{
		ChallengeID: ch.ID,
		EvaluatedAt: now,
	}

	var submitted domain.SubmittedAnswer
	if err := json.Unmarshal(raw, &submitted); err != nil {
		attempt.Diagnostic = "submission could not be parsed: " + err.Error()
		return attempt
	}
	attempt.Submitted = submitted

	var (
		parts       []float64
		diagnostics []string
	)

	if ch.Answer.Choice != "" {
		switch {
		case submitted.Choice == "":
			parts = append(parts, 0)
			diagnostics = append(diagnostics, "no choice submitted")
		case strings.EqualFold(strings.TrimSpace(submitted.Choice), ch.Answer.Choice):
			parts = append(parts, 1)
		default:
			parts = append(parts, 0)
		}
	}

	if ch.Answer.Value != nil {
		switch {
		case submitted.Value == nil:
			parts = append(parts, 0)
			diagnostics = append(diagnostics, "no numeric value submitted")
		default:
			parts = append(parts, bandScore(*submitted.Value, *ch.Answer.Value, ch.Answer.Tolerance))
		}
	}

	coverage := keywordCoverage(submitted.Reasoning, ch.Answer.Keywords)
	if ch.Answer.RequiresReasoning() {
		attempt.ReasoningQuality = coverage
		if submitted.Reasoning == "" {
			diagnostics = append(diagnostics, "reasoning required but not provided")
		}
	}

	switch {
	case len(parts) > 0:
		var sum float64
		for _, p := range parts {
			sum += p
		}
		attempt.CorrectnessScore = sum / float64(len(parts))
	case ch.Answer.RequiresReasoning():
		// Free-text-only challenges are scored on criteria presence.
		attempt.CorrectnessScore = coverage
	}

	if len(diagnostics) > 0 {
		attempt.Diagnostic = strings.Join(diagnostics, "; ")
	}
	return attempt
}

// bandScore grades a numeric answer: full credit inside the tolerance
// band, half credit inside twice the band, nothing beyond.
func bandScore(got, want, tolerance float64) float64 {
	diff := math.Abs(got - want)
	switch {
	case diff <= tolerance:
		return 1
	case diff <= 2*tolerance:
		return 0.5
	default:
		return 0
	}
}

// keywordCoverage scores free-text reasoning by criteria presence. Keywords
// are matched as case-insensitive substrings, so stems like "normaliz"
// match inflected forms.
func keywordCoverage(reasoning string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lowered := strings.ToLower(reasoning)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}
