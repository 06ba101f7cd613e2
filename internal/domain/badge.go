package domain

import "time"

// BadgeCategory groups badges for display.
type BadgeCategory string

const (
	BadgeAnalysisMilestone    BadgeCategory = "analysis_milestone"
	BadgePatternMastery       BadgeCategory = "pattern_mastery"
	BadgeResearchMastery      BadgeCategory = "research_mastery"
	BadgeCommunityContributor BadgeCategory = "community_contributor"
	BadgeStreak               BadgeCategory = "streak"
	BadgeStageProgression     BadgeCategory = "stage_progression"
)

// Badge is a one-way achievement marker. A given badge id is awarded at
// most once per session and never revoked.
type Badge struct {
	ID        string        `json:"badge_id"`
	Category  BadgeCategory `json:"category"`
	AwardedAt time.Time     `json:"awarded_at"`
}

// BadgeAward is the externally observable notification payload for a
// freshly awarded badge. The engine emits it; the page renders it.
type BadgeAward struct {
	Badge
	Description string `json:"description"`
}
