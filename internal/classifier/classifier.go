// Package classifier maps a session's behavioral signal onto one of four
// ordered learning stages with a confidence score.
package classifier

import (
	"time"

	"github.com/finsightlab/progression/internal/domain"
)

// Config collects every classifier threshold and weight in one place so
// tests can assert behavior against known constants.
type Config struct {
	// MinEvents is the minimum window size for a reliable computation.
	// Below it the classifier returns the cold-start assessment.
	MinEvents int

	// Weights combine the four component scores; they should sum to 1.
	Weights domain.ComponentScores

	// Thresholds are the combined-score lower bounds per stage, indexed by
	// stage. A session must score strictly above a threshold to qualify:
	// boundary cases round down to the lower stage.
	Thresholds [domain.StageCount]float64

	// SkipConfidence allows a promotion of more than one level in a single
	// recomputation when exceeded.
	SkipConfidence float64

	// DemotionMargin dampens demotion: a lower computed stage is accepted
	// only when the combined score has fallen more than this margin below
	// the previous stage's threshold.
	DemotionMargin float64

	// TooltipSaturation is the tooltip-lookups-per-analysis rate at which
	// tooltip independence bottoms out at zero.
	TooltipSaturation float64

	// DepthSaturation is the weighted engagement count at which analysis
	// depth tops out at one.
	DepthSaturation float64

	// CommunityWeight weights community engagement against guide
	// interactions inside the analysis-depth score.
	CommunityWeight float64

	// RecencyDecay is the per-step geometric decay applied to older
	// pattern-exercise results, newest attempt weighted 1.
	RecencyDecay float64
}

// DefaultConfig returns the tuned production constants.
func DefaultConfig() Config {
	return Config{
		MinEvents: 5,
		Weights: domain.ComponentScores{
			TooltipIndependence:  0.25,
			AnalysisDepth:        0.25,
			PatternAccuracy:      0.30,
			TeachingContribution: 0.20,
		},
		Thresholds:        [domain.StageCount]float64{0, 0.35, 0.60, 0.80},
		SkipConfidence:    0.90,
		DemotionMargin:    0.15,
		TooltipSaturation: 5,
		DepthSaturation:   10,
		CommunityWeight:   1.5,
		RecencyDecay:      0.85,
	}
}

// Classifier computes stage assessments from event windows.
type Classifier struct {
	cfg Config
}

// New creates a classifier with the given configuration.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// ColdStart is the assessment for sessions without enough signal. Cold
// start always begins at the most guided level rather than failing.
func (c *Classifier) ColdStart(sessionID string, now time.Time) domain.StageAssessment {
	return domain.StageAssessment{
		SessionID:  sessionID,
		Stage:      domain.StageGuidedDiscovery,
		StageName:  domain.StageGuidedDiscovery.String(),
		Confidence: 0,
		ComputedAt: now,
	}
}

// Assess computes a new assessment from the retained event window and the
// previous assessment. Transitions move at most one level per recomputation
// unless SkipConfidence is exceeded, and demotion is dampened by
// DemotionMargin so a single lapse never immediately demotes.
func (c *Classifier) Assess(sessionID string, window []domain.BehavioralEvent, prev *domain.StageAssessment, now time.Time) domain.StageAssessment {
	if len(window) < c.cfg.MinEvents {
		if prev != nil {
			// Sparse data cannot demote an established session either.
			retained := *prev
			retained.ComputedAt = now
			return retained
		}
		return c.ColdStart(sessionID, now)
	}

	scores := c.componentScores(window)
	combined := c.cfg.Weights.TooltipIndependence*scores.TooltipIndependence +
		c.cfg.Weights.AnalysisDepth*scores.AnalysisDepth +
		c.cfg.Weights.PatternAccuracy*scores.PatternAccuracy +
		c.cfg.Weights.TeachingContribution*scores.TeachingContribution

	raw := domain.StageGuidedDiscovery
	for s := domain.StageAnalyticalMastery; s > domain.StageGuidedDiscovery; s-- {
		if combined > c.cfg.Thresholds[s] {
			raw = s
			break
		}
	}

	prevStage := domain.StageGuidedDiscovery
	if prev != nil {
		prevStage = prev.Stage
	}

	confidence := c.confidenceFor(raw, combined)
	stage := raw
	switch {
	case raw > prevStage+1 && confidence < c.cfg.SkipConfidence:
		// Sparse-data artifacts must not jump stages.
		stage = prevStage + 1
	case raw < prevStage:
		// Demotion hysteresis: hold the stage unless the score has clearly
		// fallen away from it.
		if combined >= c.cfg.Thresholds[prevStage]-c.cfg.DemotionMargin {
			stage = prevStage
		} else if raw < prevStage-1 {
			stage = prevStage - 1
		}
	}
	if stage != raw {
		confidence = c.confidenceFor(stage, combined)
	}

	return domain.StageAssessment{
		SessionID:  sessionID,
		Stage:      stage,
		StageName:  stage.String(),
		Confidence: confidence,
		Scores:     scores,
		ComputedAt: now,
	}
}

// confidenceFor normalizes the combined score's margin over the stage
// threshold against the span to the next threshold.
func (c *Classifier) confidenceFor(stage domain.Stage, combined float64) float64 {
	lower := c.cfg.Thresholds[stage]
	upper := 1.0
	if stage < domain.StageAnalyticalMastery {
		upper = c.cfg.Thresholds[stage+1]
	}
	if upper <= lower {
		return 0
	}
	return clamp01((combined - lower) / (upper - lower))
}

func (c *Classifier) componentScores(window []domain.BehavioralEvent) domain.ComponentScores {
	var (
		lookups       float64
		analyses      float64
		guides        float64
		community     float64
		qualitySum    float64
		contributions float64
	)
	var patternScores []float64

	for _, ev := range window {
		switch ev.Category {
		case domain.EventTooltipView, domain.EventWarningClick:
			lookups++
		case domain.EventAnalysisCompleted:
			analyses++
		case domain.EventResearchGuide:
			guides++
		case domain.EventCommunityContribution:
			community++
			contributions++
			if q, ok := domain.PayloadFloat(ev.Payload, "quality"); ok {
				qualitySum += clamp01(q)
			}
		case domain.EventPatternExerciseResult:
			if s, ok := domain.PayloadFloat(ev.Payload, "score"); ok {
				patternScores = append(patternScores, clamp01(s))
			}
		}
	}

	// Tooltip dependency: more lookups per completed analysis means an
	// earlier stage, so the score is the inverse, saturating at zero.
	denominator := analyses
	if denominator < 1 {
		denominator = 1
	}
	tooltipRate := lookups / denominator
	tooltipIndependence := clamp01(1 - tooltipRate/c.cfg.TooltipSaturation)

	depth := clamp01((guides + c.cfg.CommunityWeight*community) / c.cfg.DepthSaturation)

	// Recency-weighted pattern accuracy: newest attempt carries weight 1,
	// each older attempt decays geometrically.
	var patternAccuracy float64
	if len(patternScores) > 0 {
		weight := 1.0
		var sum, weightSum float64
		for i := len(patternScores) - 1; i >= 0; i-- {
			sum += patternScores[i] * weight
			weightSum += weight
			weight *= c.cfg.RecencyDecay
		}
		patternAccuracy = clamp01(sum / weightSum)
	}

	var teaching float64
	if contributions > 0 {
		teaching = clamp01(qualitySum / contributions)
	}

	return domain.ComponentScores{
		TooltipIndependence:  tooltipIndependence,
		AnalysisDepth:        depth,
		PatternAccuracy:      patternAccuracy,
		TeachingContribution: teaching,
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
