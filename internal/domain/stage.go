package domain

import "time"

// Stage is one of four ordered learning-progression levels.
type Stage int

const (
	StageGuidedDiscovery Stage = iota
	StageAssistedAnalysis
	StageIndependentThinking
	StageAnalyticalMastery
)

// StageCount is the number of defined stages.
const StageCount = 4

// String returns the snake_case wire name for the stage.
func (s Stage) String() string {
	switch s {
	case StageGuidedDiscovery:
		return "guided_discovery"
	case StageAssistedAnalysis:
		return "assisted_analysis"
	case StageIndependentThinking:
		return "independent_thinking"
	case StageAnalyticalMastery:
		return "analytical_mastery"
	default:
		return "unknown"
	}
}

// Valid reports whether the stage is one of the defined levels.
func (s Stage) Valid() bool {
	return s >= StageGuidedDiscovery && s <= StageAnalyticalMastery
}

// ComponentScores are the normalized [0,1] classifier inputs.
type ComponentScores struct {
	TooltipIndependence  float64 `json:"tooltip_independence"`
	AnalysisDepth        float64 `json:"analysis_depth"`
	PatternAccuracy      float64 `json:"pattern_accuracy"`
	TeachingContribution float64 `json:"teaching_contribution"`
}

// StageAssessment is one classifier computation. Assessments are recomputed,
// never mutated; a new assessment supersedes the prior one.
type StageAssessment struct {
	SessionID  string          `json:"session_id"`
	Stage      Stage           `json:"stage"`
	StageName  string          `json:"stage_name"`
	Confidence float64         `json:"confidence"`
	Scores     ComponentScores `json:"component_scores"`
	ComputedAt time.Time       `json:"computed_at"`
}
