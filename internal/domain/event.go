// Package domain contains core domain types for the progression engine.
package domain

import (
	"fmt"
	"time"
)

// EventCategory classifies a behavioral event.
type EventCategory string

const (
	EventTooltipView           EventCategory = "tooltip_view"
	EventWarningClick          EventCategory = "warning_click"
	EventResearchGuide         EventCategory = "research_guide_interaction"
	EventPatternExerciseResult EventCategory = "pattern_exercise_result"
	EventChallengeResult       EventCategory = "challenge_result"
	EventCommunityContribution EventCategory = "community_contribution"
	EventAnalysisCompleted     EventCategory = "analysis_completed"
)

// ParseEventCategory validates a raw category string.
func ParseEventCategory(raw string) (EventCategory, error) {
	switch c := EventCategory(raw); c {
	case EventTooltipView, EventWarningClick, EventResearchGuide,
		EventPatternExerciseResult, EventChallengeResult,
		EventCommunityContribution, EventAnalysisCompleted:
		return c, nil
	default:
		return "", &InvalidEventError{Reason: fmt.Sprintf("unknown category %q", raw)}
	}
}

// BehavioralEvent is a single recorded interaction. Events are immutable
// once recorded and scoped to one anonymous session.
type BehavioralEvent struct {
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Category  EventCategory  `json:"category"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// PayloadFloat reads a numeric payload field. JSON-decoded numbers arrive
// as float64; integer values written in Go are accepted too.
func PayloadFloat(payload map[string]any, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// PayloadString reads a string payload field.
func PayloadString(payload map[string]any, key string) (string, bool) {
	v, ok := payload[key].(string)
	return v, ok
}

// PayloadBool reads a boolean payload field.
func PayloadBool(payload map[string]any, key string) bool {
	v, ok := payload[key].(bool)
	return ok && v
}
