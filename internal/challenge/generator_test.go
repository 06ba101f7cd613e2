package challenge

import (
	"testing"
	"time"

	"github.com/finsightlab/progression/internal/domain"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func repeat(score float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = score
	}
	return out
}

func TestNextTier_EscalatesOnStrongPerformance(t *testing.T) {
	g := New(DefaultConfig())

	got := g.NextTier(1, repeat(0.9, 10), domain.StageIndependentThinking)
	if got <= 1 {
		t.Errorf("Rolling mean 0.9 must escalate, got tier %d", got)
	}
}

func TestNextTier_DeEscalatesOnWeakPerformance(t *testing.T) {
	g := New(DefaultConfig())

	got := g.NextTier(2, repeat(0.4, 10), domain.StageIndependentThinking)
	if got >= 2 {
		t.Errorf("Rolling mean 0.4 must de-escalate, got tier %d", got)
	}
}

func TestNextTier_HoldsInMiddleBand(t *testing.T) {
	g := New(DefaultConfig())

	got := g.NextTier(1, repeat(0.7, 10), domain.StageIndependentThinking)
	if got != 1 {
		t.Errorf("Rolling mean 0.7 must hold the tier, got %d", got)
	}
}

func TestNextTier_CappedByStage(t *testing.T) {
	g := New(DefaultConfig())

	got := g.NextTier(1, repeat(1.0, 10), domain.StageGuidedDiscovery)
	if got != 1 {
		t.Errorf("Stage cap must hold tier at 1, got %d", got)
	}
}

func TestNextTier_FlooredAtZero(t *testing.T) {
	g := New(DefaultConfig())

	got := g.NextTier(0, repeat(0.0, 10), domain.StageAnalyticalMastery)
	if got != 0 {
		t.Errorf("Tier must floor at 0, got %d", got)
	}
}

func TestNextTier_UsesOnlyRollingWindow(t *testing.T) {
	g := New(DefaultConfig())

	// Old failures outside the 10-attempt window must not drag the mean.
	history := append(repeat(0.0, 10), repeat(0.9, 10)...)
	got := g.NextTier(1, history, domain.StageAnalyticalMastery)
	if got != 2 {
		t.Errorf("Expected escalation on recent window, got %d", got)
	}
}

func TestGenerate_StrongSessionOutpacesWeakSession(t *testing.T) {
	g := New(DefaultConfig())

	strong := domain.NewSessionState("strong", testNow)
	strong.AttemptHistory[domain.ChallengePatternRecognition] = repeat(0.9, 10)
	strong.Tiers[domain.ChallengePatternRecognition] = 1

	weak := domain.NewSessionState("weak", testNow)
	weak.AttemptHistory[domain.ChallengePatternRecognition] = repeat(0.4, 10)
	weak.Tiers[domain.ChallengePatternRecognition] = 1

	chStrong, err := g.Generate(strong, domain.StageIndependentThinking, domain.ChallengePatternRecognition, testNow)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	chWeak, err := g.Generate(weak, domain.StageIndependentThinking, domain.ChallengePatternRecognition, testNow)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if chStrong.Tier <= chWeak.Tier {
		t.Errorf("Strong session tier %d must exceed weak session tier %d", chStrong.Tier, chWeak.Tier)
	}
}

func TestGenerate_AvoidsRecentTemplates(t *testing.T) {
	g := New(DefaultConfig())
	state := domain.NewSessionState("s1", testNow)

	seen := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		ch, err := g.Generate(state, domain.StageGuidedDiscovery, domain.ChallengeRatioInterpretation, testNow)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		for _, prev := range seen[max(0, len(seen)-2):] {
			if ch.TemplateID == prev {
				t.Errorf("Template %s repeated within exclusion window", ch.TemplateID)
			}
		}
		seen = append(seen, ch.TemplateID)
	}
}

func TestGenerate_ReplacesPendingChallenge(t *testing.T) {
	g := New(DefaultConfig())
	state := domain.NewSessionState("s1", testNow)

	first, err := g.Generate(state, domain.StageGuidedDiscovery, domain.ChallengeRatioInterpretation, testNow)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := g.Generate(state, domain.StageGuidedDiscovery, domain.ChallengeRatioInterpretation, testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// The first challenge expired by replacement: no longer addressable.
	if _, ok := state.FindPending(first.ID); ok {
		t.Error("Replaced challenge must no longer be pending")
	}
	if _, ok := state.FindPending(second.ID); !ok {
		t.Error("New challenge must be pending")
	}
}

func TestGenerate_RejectsUnknownCategory(t *testing.T) {
	g := New(DefaultConfig())
	state := domain.NewSessionState("s1", testNow)

	_, err := g.Generate(state, domain.StageGuidedDiscovery, domain.ChallengeCategory("crossword"), testNow)
	if err == nil {
		t.Fatal("Expected error for unknown category")
	}
}

func TestGenerate_CategoryFollowsStageWeights(t *testing.T) {
	g := New(DefaultConfig())
	g.randFloat = func() float64 { return 0.95 } // top of the distribution

	state := domain.NewSessionState("s1", testNow)
	ch, err := g.Generate(state, domain.StageAnalyticalMastery, "", testNow)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if ch.Category != domain.ChallengeBlindAnalysis {
		t.Errorf("Mastery stage upper weight band should select blind analysis, got %s", ch.Category)
	}
}

func TestTemplateBank_CoversAllCategoryTiers(t *testing.T) {
	g := New(DefaultConfig())

	for _, category := range domain.ChallengeCategories {
		for tier := 0; tier <= 3; tier++ {
			pool := g.bank[bankKey{category: category, tier: tier}]
			if len(pool) < 3 {
				t.Errorf("Bank needs >=3 templates for %s tier %d, got %d", category, tier, len(pool))
			}
		}
	}
}
