package domain

import (
	"fmt"
	"time"
)

// ChallengeCategory identifies a challenge family.
type ChallengeCategory string

const (
	ChallengeRatioInterpretation ChallengeCategory = "ratio_interpretation"
	ChallengePatternRecognition  ChallengeCategory = "pattern_recognition"
	ChallengeTrendAnalysis       ChallengeCategory = "trend_analysis"
	ChallengeBlindAnalysis       ChallengeCategory = "blind_analysis"
)

// ChallengeCategories lists all defined categories in display order.
var ChallengeCategories = []ChallengeCategory{
	ChallengeRatioInterpretation,
	ChallengePatternRecognition,
	ChallengeTrendAnalysis,
	ChallengeBlindAnalysis,
}

// ParseChallengeCategory validates a raw category string.
func ParseChallengeCategory(raw string) (ChallengeCategory, error) {
	for _, c := range ChallengeCategories {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown challenge category %q", raw)
}

// RatioPrompt asks the learner to interpret a single financial ratio.
type RatioPrompt struct {
	Metric   string   `json:"metric"`
	Value    float64  `json:"value"`
	Sector   string   `json:"sector"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// PatternPrompt presents a metric series and asks which pattern it shows.
type PatternPrompt struct {
	Metric   string    `json:"metric"`
	Series   []float64 `json:"series"`
	Question string    `json:"question"`
	Options  []string  `json:"options,omitempty"`
}

// TrendPrompt presents multi-period figures and asks for a quantitative read.
type TrendPrompt struct {
	Periods  []string  `json:"periods"`
	Revenue  []float64 `json:"revenue"`
	Margin   []float64 `json:"margin"`
	Question string    `json:"question"`
}

// BlindAnalysisPrompt is a tool-independence exercise: raw figures with no
// computed indicators, and a verdict plus written reasoning required.
type BlindAnalysisPrompt struct {
	Scenario string             `json:"scenario"`
	Figures  map[string]float64 `json:"figures"`
	Tasks    []string           `json:"tasks"`
}

// PromptData is a closed union: exactly one arm is set, matching the
// challenge category. Categories are a fixed set of variants rather than
// loose maps so attribute access is checked at compile time.
type PromptData struct {
	Ratio   *RatioPrompt         `json:"ratio,omitempty"`
	Pattern *PatternPrompt       `json:"pattern,omitempty"`
	Trend   *TrendPrompt         `json:"trend,omitempty"`
	Blind   *BlindAnalysisPrompt `json:"blind,omitempty"`
}

// AnswerSchema describes how an attempt is scored. Zero-value fields mean
// that dimension is not part of the expected answer.
type AnswerSchema struct {
	Choice    string   `json:"choice,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Tolerance float64  `json:"tolerance,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
}

// RequiresReasoning reports whether a written justification is scored.
func (a AnswerSchema) RequiresReasoning() bool {
	return len(a.Keywords) > 0
}

// Challenge is a generated exercise instance. Lifecycle per category:
// GENERATED, then either exactly one attempt or silent expiry when a newer
// generation replaces it. The expected answer is persisted with the
// challenge but stripped from API responses by the handler layer.
type Challenge struct {
	ID          string            `json:"challenge_id"`
	Category    ChallengeCategory `json:"category"`
	Tier        int               `json:"difficulty_tier"`
	TemplateID  string            `json:"template_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Prompt      PromptData        `json:"prompt_data"`
	Answer      AnswerSchema      `json:"answer_schema"`
}

// SubmittedAnswer is the parsed learner submission.
type SubmittedAnswer struct {
	Choice    string   `json:"choice,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Reasoning string   `json:"reasoning,omitempty"`
}

// ChallengeAttempt is the scored result of a submission. Malformed
// submissions score zero with a diagnostic instead of failing.
type ChallengeAttempt struct {
	ChallengeID      string          `json:"challenge_id"`
	Submitted        SubmittedAnswer `json:"submitted_answer"`
	CorrectnessScore float64         `json:"correctness_score"`
	ReasoningQuality float64         `json:"reasoning_quality_score"`
	Diagnostic       string          `json:"diagnostic,omitempty"`
	EvaluatedAt      time.Time       `json:"evaluated_at"`
}
