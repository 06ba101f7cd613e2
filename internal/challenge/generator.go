// Package challenge produces stage-appropriate exercises and scores
// submitted attempts, adapting difficulty from rolling accuracy.
package challenge

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/finsightlab/progression/internal/domain"
)

// Config collects the generator and difficulty-adapter tuning knobs.
type Config struct {
	// RollingWindow is the number of recent attempt scores consulted when
	// resolving the next difficulty tier.
	RollingWindow int

	// RaiseThreshold promotes the tier when the rolling mean reaches it.
	RaiseThreshold float64

	// LowerThreshold demotes the tier when the rolling mean falls below it.
	LowerThreshold float64

	// MaxTierByStage caps the tier per learning stage.
	MaxTierByStage [domain.StageCount]int

	// StageCategoryWeights drives proportional category selection per
	// stage; earlier stages favor guided ratio prompts, later stages favor
	// blind analysis.
	StageCategoryWeights [domain.StageCount]map[domain.ChallengeCategory]float64

	// TemplateExclusion is how many recent template ids per category are
	// excluded from selection to avoid immediate repetition.
	TemplateExclusion int
}

// DefaultConfig returns the production generation constants.
func DefaultConfig() Config {
	return Config{
		RollingWindow:  10,
		RaiseThreshold: 0.8,
		LowerThreshold: 0.6,
		MaxTierByStage: [domain.StageCount]int{1, 2, 3, 3},
		StageCategoryWeights: [domain.StageCount]map[domain.ChallengeCategory]float64{
			{
				domain.ChallengeRatioInterpretation: 0.7,
				domain.ChallengePatternRecognition:  0.3,
			},
			{
				domain.ChallengeRatioInterpretation: 0.4,
				domain.ChallengePatternRecognition:  0.4,
				domain.ChallengeTrendAnalysis:       0.2,
			},
			{
				domain.ChallengeRatioInterpretation: 0.1,
				domain.ChallengePatternRecognition:  0.3,
				domain.ChallengeTrendAnalysis:       0.3,
				domain.ChallengeBlindAnalysis:       0.3,
			},
			{
				domain.ChallengePatternRecognition: 0.2,
				domain.ChallengeTrendAnalysis:      0.3,
				domain.ChallengeBlindAnalysis:      0.5,
			},
		},
		TemplateExclusion: 2,
	}
}

// Generator instantiates challenges from the template bank.
type Generator struct {
	cfg  Config
	bank map[bankKey][]Template

	// Swappable randomness for deterministic tests.
	randIndex func(n int) int
	randFloat func() float64
}

type bankKey struct {
	category domain.ChallengeCategory
	tier     int
}

// New creates a generator over the built-in template bank.
func New(cfg Config) *Generator {
	g := &Generator{
		cfg:       cfg,
		bank:      make(map[bankKey][]Template),
		randIndex: rand.IntN,
		randFloat: rand.Float64,
	}
	for _, tpl := range templates {
		k := bankKey{category: tpl.Category, tier: tpl.Tier}
		g.bank[k] = append(g.bank[k], tpl)
	}
	return g
}

// Generate produces the next challenge for a session, mutating the session
// state: the chosen tier is recorded, the template id is pushed onto the
// recent list, and any pending challenge in the same category is replaced,
// which expires it with no difficulty penalty.
func (g *Generator) Generate(state *domain.SessionState, stage domain.Stage, requested domain.ChallengeCategory, now time.Time) (domain.Challenge, error) {
	category := requested
	if category == "" {
		category = g.pickCategory(stage)
	} else if _, err := domain.ParseChallengeCategory(string(category)); err != nil {
		return domain.Challenge{}, err
	}

	tier := g.NextTier(state.Tiers[category], state.AttemptHistory[category], stage)

	tpl, err := g.pickTemplate(category, tier, state.RecentTemplates[category])
	if err != nil {
		return domain.Challenge{}, err
	}

	ch := domain.Challenge{
		ID:          uuid.NewString(),
		Category:    category,
		Tier:        tier,
		TemplateID:  tpl.ID,
		GeneratedAt: now,
		Prompt:      tpl.Prompt,
		Answer:      tpl.Answer,
	}

	state.Tiers[category] = tier
	state.Pending[category] = &ch

	recent := append(state.RecentTemplates[category], tpl.ID)
	if len(recent) > g.cfg.TemplateExclusion {
		recent = recent[len(recent)-g.cfg.TemplateExclusion:]
	}
	state.RecentTemplates[category] = recent

	return ch, nil
}

// NextTier resolves the difficulty tier from the rolling mean of the most
// recent attempt scores for the category. A strong rolling mean always
// escalates (capped by stage) and a weak one always de-escalates (floored
// at zero); anything between holds steady.
func (g *Generator) NextTier(current int, history []float64, stage domain.Stage) int {
	maxTier := g.cfg.MaxTierByStage[domain.StageGuidedDiscovery]
	if stage.Valid() {
		maxTier = g.cfg.MaxTierByStage[stage]
	}

	tier := current
	if len(history) > 0 {
		window := history
		if len(window) > g.cfg.RollingWindow {
			window = window[len(window)-g.cfg.RollingWindow:]
		}
		var sum float64
		for _, s := range window {
			sum += s
		}
		mean := sum / float64(len(window))

		switch {
		case mean >= g.cfg.RaiseThreshold:
			tier++
		case mean < g.cfg.LowerThreshold:
			tier--
		}
	}

	if tier > maxTier {
		tier = maxTier
	}
	if tier < 0 {
		tier = 0
	}
	return tier
}

// RecordScore appends a correctness score to the category's rolling
// history, trimming it to the configured window.
func (g *Generator) RecordScore(state *domain.SessionState, category domain.ChallengeCategory, score float64) {
	history := append(state.AttemptHistory[category], score)
	if len(history) > g.cfg.RollingWindow {
		history = history[len(history)-g.cfg.RollingWindow:]
	}
	state.AttemptHistory[category] = history
}

func (g *Generator) pickCategory(stage domain.Stage) domain.ChallengeCategory {
	weights := g.cfg.StageCategoryWeights[domain.StageGuidedDiscovery]
	if stage.Valid() {
		weights = g.cfg.StageCategoryWeights[stage]
	}

	var total float64
	for _, c := range domain.ChallengeCategories {
		total += weights[c]
	}
	if total <= 0 {
		return domain.ChallengeRatioInterpretation
	}

	roll := g.randFloat() * total
	for _, c := range domain.ChallengeCategories {
		roll -= weights[c]
		if roll < 0 {
			return c
		}
	}
	return domain.ChallengeCategories[len(domain.ChallengeCategories)-1]
}

func (g *Generator) pickTemplate(category domain.ChallengeCategory, tier int, recent []string) (Template, error) {
	pool := g.bank[bankKey{category: category, tier: tier}]
	if len(pool) == 0 {
		return Template{}, fmt.Errorf("no templates for %s tier %d", category, tier)
	}

	excluded := make(map[string]bool, len(recent))
	for _, id := range recent {
		excluded[id] = true
	}

	eligible := make([]Template, 0, len(pool))
	for _, tpl := range pool {
		if !excluded[tpl.ID] {
			eligible = append(eligible, tpl)
		}
	}
	if len(eligible) == 0 {
		// Every template was used recently; repetition beats starvation.
		eligible = pool
	}

	return eligible[g.randIndex(len(eligible))], nil
}
