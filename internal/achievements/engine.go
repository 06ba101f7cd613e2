// Package achievements evaluates the badge catalog against session state
// and emits idempotent award decisions.
package achievements

import (
	"fmt"
	"sort"
	"time"

	"github.com/finsightlab/progression/internal/domain"
)

// Config holds every badge threshold in one place.
type Config struct {
	AnalysisMilestones       []int
	PatternAccuracyThreshold float64
	PatternMinAttempts       int
	GuideMilestones          []int
	ContributionMilestones   []float64
	StreakMilestones         []int
}

// DefaultConfig returns the production badge thresholds.
func DefaultConfig() Config {
	return Config{
		AnalysisMilestones:       []int{10, 50, 100, 500},
		PatternAccuracyThreshold: 0.8,
		PatternMinAttempts:       10,
		GuideMilestones:          []int{5, 25},
		ContributionMilestones:   []float64{5, 20},
		StreakMilestones:         []int{7, 30, 90},
	}
}

// Snapshot is the read-only state a predicate evaluates against.
type Snapshot struct {
	Metrics    domain.ProgressMetrics
	Counters   domain.CumulativeCounters
	Assessment *domain.StageAssessment
	Events     []domain.BehavioralEvent
	Reached    func(domain.Stage) bool

	patternStats map[string]patternStat
}

type patternStat struct {
	attempts int
	sum      float64
}

func (p patternStat) accuracy() float64 {
	if p.attempts == 0 {
		return 0
	}
	return p.sum / float64(p.attempts)
}

// entry is one badge condition in the catalog.
type entry struct {
	id          string
	category    domain.BadgeCategory
	description string
	predicate   func(Snapshot) bool
}

// Engine evaluates a fixed badge catalog.
type Engine struct {
	cfg     Config
	catalog []entry
}

// New builds the engine and its catalog from configuration.
func New(cfg Config) *Engine {
	e := &Engine{cfg: cfg}
	e.buildCatalog()
	return e
}

func (e *Engine) buildCatalog() {
	for _, n := range e.cfg.AnalysisMilestones {
		n := n
		e.catalog = append(e.catalog, entry{
			id:          fmt.Sprintf("analysis-milestone-%d", n),
			category:    domain.BadgeAnalysisMilestone,
			description: fmt.Sprintf("Completed %d company analyses", n),
			predicate: func(s Snapshot) bool {
				return s.Metrics.AnalysesCompleted >= n
			},
		})
	}

	for _, n := range e.cfg.GuideMilestones {
		n := n
		e.catalog = append(e.catalog, entry{
			id:          fmt.Sprintf("research-mastery-%d", n),
			category:    domain.BadgeResearchMastery,
			description: fmt.Sprintf("Completed %d research guides", n),
			predicate: func(s Snapshot) bool {
				return s.Metrics.GuidesCompleted >= n
			},
		})
	}

	for _, q := range e.cfg.ContributionMilestones {
		q := q
		e.catalog = append(e.catalog, entry{
			id:          fmt.Sprintf("community-contributor-%d", int(q)),
			category:    domain.BadgeCommunityContributor,
			description: fmt.Sprintf("Shared insights worth %d quality points", int(q)),
			predicate: func(s Snapshot) bool {
				return s.Counters.ContributionQuality >= q
			},
		})
	}

	for _, n := range e.cfg.StreakMilestones {
		n := n
		e.catalog = append(e.catalog, entry{
			id:          fmt.Sprintf("streak-%d", n),
			category:    domain.BadgeStreak,
			description: fmt.Sprintf("Active %d days in a row", n),
			predicate: func(s Snapshot) bool {
				return s.Metrics.CurrentStreakDays >= n
			},
		})
	}

	// Stage badges fire once per stage ever reached; re-promotion after a
	// dampened demotion does not re-fire because the id stays the same.
	for stage := domain.StageAssistedAnalysis; stage <= domain.StageAnalyticalMastery; stage++ {
		stage := stage
		e.catalog = append(e.catalog, entry{
			id:          "stage-" + stage.String(),
			category:    domain.BadgeStageProgression,
			description: fmt.Sprintf("Reached the %s stage", stage.String()),
			predicate: func(s Snapshot) bool {
				return s.Reached != nil && s.Reached(stage)
			},
		})
	}
}

// Evaluate returns the badges newly earned by the snapshot, skipping any
// already present in the awarded set. It is a pure function of its inputs:
// calling it twice against unchanged state yields an empty second result
// because membership is checked against the awarded set, not by expecting
// predicates to go false after an award.
func (e *Engine) Evaluate(state *domain.SessionState, snap Snapshot, now time.Time) []domain.BadgeAward {
	snap.patternStats = patternStatsFrom(snap.Events)

	var awards []domain.BadgeAward
	for _, ent := range e.catalog {
		if state.HasBadge(ent.id) {
			continue
		}
		if !ent.predicate(snap) {
			continue
		}
		awards = append(awards, domain.BadgeAward{
			Badge: domain.Badge{
				ID:        ent.id,
				Category:  ent.category,
				AwardedAt: now,
			},
			Description: ent.description,
		})
	}

	// Pattern-mastery badges are keyed by pattern type discovered in the
	// event window rather than enumerated in the static catalog.
	for _, pt := range sortedPatternTypes(snap.patternStats) {
		stat := snap.patternStats[pt]
		if stat.attempts < e.cfg.PatternMinAttempts || stat.accuracy() < e.cfg.PatternAccuracyThreshold {
			continue
		}
		id := "pattern-mastery-" + pt
		if state.HasBadge(id) {
			continue
		}
		awards = append(awards, domain.BadgeAward{
			Badge: domain.Badge{
				ID:        id,
				Category:  domain.BadgePatternMastery,
				AwardedAt: now,
			},
			Description: fmt.Sprintf("Mastered recognition of %s patterns", pt),
		})
	}

	return awards
}

func patternStatsFrom(events []domain.BehavioralEvent) map[string]patternStat {
	stats := make(map[string]patternStat)
	for _, ev := range events {
		if ev.Category != domain.EventPatternExerciseResult {
			continue
		}
		pt, ok := domain.PayloadString(ev.Payload, "pattern_type")
		if !ok {
			continue
		}
		score, ok := domain.PayloadFloat(ev.Payload, "score")
		if !ok {
			continue
		}
		st := stats[pt]
		st.attempts++
		st.sum += score
		stats[pt] = st
	}
	return stats
}

func sortedPatternTypes(stats map[string]patternStat) []string {
	types := make([]string, 0, len(stats))
	for pt := range stats {
		types = append(types, pt)
	}
	sort.Strings(types)
	return types
}

// StreakFromEvents recomputes the consecutive-day streak purely from the
// event window: the run of consecutive UTC days ending at the latest day
// with a qualifying event. Used to reconcile the maintained counter.
func StreakFromEvents(events []domain.BehavioralEvent) int {
	days := make(map[string]bool)
	for _, ev := range events {
		if ev.Category == domain.EventAnalysisCompleted || ev.Category == domain.EventChallengeResult {
			days[domain.UTCDay(ev.Timestamp)] = true
		}
	}
	if len(days) == 0 {
		return 0
	}

	sorted := make([]string, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	streak := 1
	for i := len(sorted) - 1; i > 0; i-- {
		if domain.NextUTCDay(sorted[i-1]) != sorted[i] {
			break
		}
		streak++
	}
	return streak
}
