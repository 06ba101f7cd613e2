package domain

import "time"

// dayLayout formats a UTC calendar day. Day boundaries are always UTC to
// avoid timezone ambiguity in streak accounting.
const dayLayout = "2006-01-02"

// UTCDay returns the UTC calendar day of a timestamp.
func UTCDay(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// NextUTCDay returns the day immediately after a formatted UTC day.
// Malformed input yields an empty string, which never matches a real day.
func NextUTCDay(day string) string {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(dayLayout)
}

// CumulativeCounters persist indefinitely as integers even after the raw
// events behind them age out of the retention window.
type CumulativeCounters struct {
	AnalysesCompleted   int     `json:"analyses_completed"`
	ExercisesCompleted  int     `json:"exercises_completed"`
	ChallengesCompleted int     `json:"challenges_completed"`
	GuidesCompleted     int     `json:"guides_completed"`
	Contributions       int     `json:"contributions"`
	ContributionQuality float64 `json:"contribution_quality"`
	StreakDays          int     `json:"streak_days"`
	LastQualifyingDay   string  `json:"last_qualifying_day,omitempty"`
	LastActiveDay       string  `json:"last_active_day,omitempty"`
}

// Apply folds one recorded event into the counters. Streak accounting: a
// qualifying event on the day after the last qualifying day extends the
// streak; a gap of a full day or more resets it to 1 on the new day.
func (c *CumulativeCounters) Apply(ev BehavioralEvent) {
	day := UTCDay(ev.Timestamp)
	c.LastActiveDay = day

	switch ev.Category {
	case EventAnalysisCompleted:
		c.AnalysesCompleted++
	case EventPatternExerciseResult:
		c.ExercisesCompleted++
	case EventChallengeResult:
		c.ChallengesCompleted++
	case EventResearchGuide:
		if PayloadBool(ev.Payload, "completed") {
			c.GuidesCompleted++
		}
	case EventCommunityContribution:
		c.Contributions++
		if q, ok := PayloadFloat(ev.Payload, "quality"); ok {
			c.ContributionQuality += clamp01(q)
		}
	}

	if ev.Category != EventAnalysisCompleted && ev.Category != EventChallengeResult {
		return
	}
	switch {
	case day == c.LastQualifyingDay:
		// Same day, streak unchanged.
	case day == NextUTCDay(c.LastQualifyingDay):
		c.StreakDays++
		c.LastQualifyingDay = day
	default:
		c.StreakDays = 1
		c.LastQualifyingDay = day
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ProgressMetrics is the rolling progress view served to the page. It is
// derived state: always reconcilable from raw events plus counters.
type ProgressMetrics struct {
	AnalysesCompleted   int    `json:"analyses_completed"`
	ExercisesCompleted  int    `json:"exercises_completed"`
	ChallengesCompleted int    `json:"challenges_completed"`
	GuidesCompleted     int    `json:"guides_completed"`
	Contributions       int    `json:"contributions"`
	CurrentStreakDays   int    `json:"current_streak_days"`
	LastActiveDay       string `json:"last_active_day,omitempty"`
}

// Metrics projects the counters into the served progress view.
func (c CumulativeCounters) Metrics() ProgressMetrics {
	return ProgressMetrics{
		AnalysesCompleted:   c.AnalysesCompleted,
		ExercisesCompleted:  c.ExercisesCompleted,
		ChallengesCompleted: c.ChallengesCompleted,
		GuidesCompleted:     c.GuidesCompleted,
		Contributions:       c.Contributions,
		CurrentStreakDays:   c.StreakDays,
		LastActiveDay:       c.LastActiveDay,
	}
}
