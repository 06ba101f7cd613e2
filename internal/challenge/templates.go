package challenge

import "github.com/finsightlab/progression/internal/domain"

// Template is a challenge blueprint keyed by category and difficulty tier.
type Template struct {
	ID       string
	Category domain.ChallengeCategory
	Tier     int
	Prompt   domain.PromptData
	Answer   domain.AnswerSchema
}

func f64(v float64) *float64 { return &v }

func ratio(id string, tier int, p domain.RatioPrompt, a domain.AnswerSchema) Template {
	return Template{ID: id, Category: domain.ChallengeRatioInterpretation, Tier: tier,
		Prompt: domain.PromptData{Ratio: &p}, Answer: a}
}

func pattern(id string, tier int, p domain.PatternPrompt, a domain.AnswerSchema) Template {
	return Template{ID: id, Category: domain.ChallengePatternRecognition, Tier: tier,
		Prompt: domain.PromptData{Pattern: &p}, Answer: a}
}

func trend(id string, tier int, p domain.TrendPrompt, a domain.AnswerSchema) Template {
	return Template{ID: id, Category: domain.ChallengeTrendAnalysis, Tier: tier,
		Prompt: domain.PromptData{Trend: &p}, Answer: a}
}

func blind(id string, tier int, p domain.BlindAnalysisPrompt, a domain.AnswerSchema) Template {
	return Template{ID: id, Category: domain.ChallengeBlindAnalysis, Tier: tier,
		Prompt: domain.PromptData{Blind: &p}, Answer: a}
}

var interpretOptions = []string{"undervalued", "fairly_valued", "overvalued"}
var healthOptions = []string{"healthy", "neutral", "distressed"}
var patternOptions = []string{"steady_growth", "cyclical", "margin_compression", "turnaround", "deterioration"}

// templates is the full bank. Each (category, tier) bucket holds at least
// three entries so the two-deep exclusion list never starves selection.
var templates = []Template{
	// --- ratio interpretation ---
	ratio("ratio-pe-low", 0, domain.RatioPrompt{
		Metric: "P/E", Value: 7.5, Sector: "utilities",
		Question: "A utility trades at a P/E of 7.5 against a sector median of 15. How is the market pricing it?",
		Options:  interpretOptions,
	}, domain.AnswerSchema{Choice: "undervalued"}),
	ratio("ratio-current-weak", 0, domain.RatioPrompt{
		Metric: "current ratio", Value: 0.6, Sector: "retail",
		Question: "A retailer shows a current ratio of 0.6. What does this say about its short-term position?",
		Options:  healthOptions,
	}, domain.AnswerSchema{Choice: "distressed"}),
	ratio("ratio-roe-strong", 0, domain.RatioPrompt{
		Metric: "ROE", Value: 0.24, Sector: "consumer staples",
		Question: "Return on equity of 24% with modest leverage. How healthy is this business?",
		Options:  healthOptions,
	}, domain.AnswerSchema{Choice: "healthy"}),

	ratio("ratio-pe-growth", 1, domain.RatioPrompt{
		Metric: "P/E", Value: 45, Sector: "software",
		Question: "A software firm trades at 45x earnings while growing revenue 12% a year. Is the multiple justified?",
		Options:  interpretOptions,
	}, domain.AnswerSchema{Choice: "overvalued"}),
	ratio("ratio-debt-equity", 1, domain.RatioPrompt{
		Metric: "debt/equity", Value: 2.8, Sector: "industrials",
		Question: "Debt-to-equity of 2.8 in a cyclical industrial. Classify the balance-sheet risk.",
		Options:  healthOptions,
	}, domain.AnswerSchema{Choice: "distressed"}),
	ratio("ratio-margin-peer", 1, domain.RatioPrompt{
		Metric: "operating margin", Value: 0.31, Sector: "semiconductors",
		Question: "Operating margin of 31% versus a peer median of 18%. How is this firm positioned?",
		Options:  healthOptions,
	}, domain.AnswerSchema{Choice: "healthy"}),

	ratio("ratio-ev-ebitda", 2, domain.RatioPrompt{
		Metric: "EV/EBITDA", Value: 6.2, Sector: "energy",
		Question: "EV/EBITDA of 6.2 near a cyclical earnings peak. State the valuation call and name the trap to check for.",
		Options:  interpretOptions,
	}, domain.AnswerSchema{Choice: "fairly_valued", Keywords: []string{"peak", "cycle", "earnings"}}),
	ratio("ratio-fcf-yield", 2, domain.RatioPrompt{
		Metric: "FCF yield", Value: 0.11, Sector: "media",
		Question: "An 11% free-cash-flow yield on a declining subscriber base. Valuation call, with the key risk named.",
		Options:  interpretOptions,
	}, domain.AnswerSchema{Choice: "fairly_valued", Keywords: []string{"decline", "sustain", "cash"}}),
	ratio("ratio-quick-inventory", 2, domain.RatioPrompt{
		Metric: "quick ratio", Value: 0.5, Sector: "apparel",
		Question: "Quick ratio 0.5 but current ratio 1.9. Diagnose the working-capital picture and what to verify.",
		Options:  healthOptions,
	}, domain.AnswerSchema{Choice: "neutral", Keywords: []string{"inventory", "liquid", "turnover"}}),

	ratio("ratio-dupont", 3, domain.RatioPrompt{
		Metric: "ROE", Value: 0.35, Sector: "banking",
		Question: "ROE of 35% driven by 14x leverage. Decompose the return and judge its quality in writing.",
	}, domain.AnswerSchema{Keywords: []string{"leverage", "margin", "asset", "risk"}}),
	ratio("ratio-accrual-gap", 3, domain.RatioPrompt{
		Metric: "net income vs FCF", Value: 2.1, Sector: "construction",
		Question: "Net income has run at twice free cash flow for three years. Explain what the accrual gap implies.",
	}, domain.AnswerSchema{Keywords: []string{"accrual", "receivable", "quality", "cash"}}),
	ratio("ratio-goodwill", 3, domain.RatioPrompt{
		Metric: "goodwill/assets", Value: 0.55, Sector: "healthcare",
		Question: "Goodwill is 55% of total assets after a roll-up spree. Discuss the impairment and return risks.",
	}, domain.AnswerSchema{Keywords: []string{"impairment", "acquisition", "write", "return"}}),

	// --- pattern recognition ---
	pattern("pattern-steady", 0, domain.PatternPrompt{
		Metric: "revenue", Series: []float64{100, 108, 117, 126, 136},
		Question: "Which pattern does this five-year revenue series show?",
		Options:  patternOptions,
	}, domain.AnswerSchema{Choice: "steady_growth"}),
	pattern("pattern-decline", 0, domain.PatternPrompt{
		Metric: "revenue", Series: []float64{140, 131, 119, 104, 92},
		Question: "Which pattern does this revenue series show?",
		Options:  patternOptions,
	}, domain.AnswerSchema{Choice: "deterioration"}),
	pattern("pattern-cyclical", 0, domain.PatternPrompt{
		Metric: "operating income", Series: []float64{80, 120, 70, 115, 75},
		Question: "Which pattern best describes this operating income series?",
		Options:  patternOptions,
	}, domain.AnswerSchema{Choice: "cyclical"}),

	pattern("pattern-margin-squeeze", 1, domain.PatternPrompt{
		Metric: "gross margin", Series: []float64{0.42, 0.40, 0.37, 0.33, 0.30},
		Question: "Revenue is flat while this margin series unfolds. Name the pattern.",
		Options:  patternOptions,
	}, domain.AnswerSchema{Choice: "margin_compression"}),
	pattern("pattern-turnaround", 1, domain.PatternPrompt{
		Metric: "net margin", Series: []float64{-0.08, -0.03, 0.01, 0.05, 0.09},
		Question: "Identify the pattern in this net margin series.",
		Options:  patternOptions,
	}, domain.AnswerSchema{Choice: "turnaround"}),
	pattern("pattern-plateau-growth", 1, domain.PatternPrompt{
		Metric: "revenue", Series: []float64{100, 126, 158, 163, 166},
		Question: "Growth of 26% decelerating to 2%. Which label fits the most recent years?",
		Options:  patternOptions,
	}, domain.AnswerSchema{Choice: "steady_growth", Keywords: []string{"decelerat", "slow", "mature"}}),

	pattern("pattern-masked-cycle", 2, domain.PatternPrompt{
		Metric: "EPS", Series: []float64{2.0, 2.9, 1.6, 3.1, 1.8},
		Question: "EPS swings while revenue is stable. Name the pattern and the most likely driver in a sentence.",
		Options:  patternOptions,
	}, domain.AnswerSchema{Choice: "cyclical", Keywords: []string{"cost", "operating leverage", "input"}}),
	pattern("pattern-quality-fade", 2, domain.PatternPrompt{
		Metric: "ROIC", Series: []float64{0.22, 0.19, 0.15, 0.12, 0.10},
		Question: "Classify this ROIC series and say what it implies about competitive position.",
		Options:  patternOptions,
	}, domain.AnswerSchema{Choice: "deterioration", Keywords: []string{"moat", "competit", "return"}}),
	pattern("pattern-false-turnaround", 2, domain.PatternPrompt{
		Metric: "net margin", Series: []float64{-0.05, 0.06, -0.04, 0.05, -0.06},
		Question: "Margins alternate around zero. Which label applies, and why not 'turnaround'?",
		Options:  patternOptions,
	}, domain.AnswerSchema{Choice: "cyclical", Keywords: []string{"sustain", "consisten", "one-off"}}),

	pattern("pattern-divergence", 3, domain.PatternPrompt{
		Metric: "revenue vs receivables growth", Series: []float64{0.08, 0.09, 0.10, 0.24, 0.31},
		Question: "Receivables growth detaches from ~9% revenue growth. Explain what this divergence can signal.",
	}, domain.AnswerSchema{Keywords: []string{"channel", "recognition", "pull", "quality"}}),
	pattern("pattern-inventory-build", 3, domain.PatternPrompt{
		Metric: "inventory days", Series: []float64{48, 51, 63, 78, 95},
		Question: "Inventory days double over five years at a hardware maker. Write the bear and bull readings.",
	}, domain.AnswerSchema{Keywords: []string{"obsole", "demand", "write", "ahead"}}),
	pattern("pattern-capex-cliff", 3, domain.PatternPrompt{
		Metric: "capex/depreciation", Series: []float64{1.6, 1.3, 0.9, 0.6, 0.4},
		Question: "Capex falls well below depreciation. Explain the cash-flow optics and the underinvestment risk.",
	}, domain.AnswerSchema{Keywords: []string{"underinvest", "free cash", "asset", "harvest"}}),

	// --- trend analysis ---
	trend("trend-growth-rate", 0, domain.TrendPrompt{
		Periods: []string{"2022", "2023", "2024", "2025"},
		Revenue: []float64{200, 220, 242, 266.2},
		Margin:  []float64{0.10, 0.10, 0.10, 0.10},
		Question: "What is the annual revenue growth rate, as a decimal?",
	}, domain.AnswerSchema{Value: f64(0.10), Tolerance: 0.01}),
	trend("trend-margin-delta", 0, domain.TrendPrompt{
		Periods: []string{"2023", "2024", "2025"},
		Revenue: []float64{500, 510, 515},
		Margin:  []float64{0.18, 0.15, 0.12},
		Question: "By how many percentage points did the margin change from 2023 to 2025 (decimal, negative for decline)?",
	}, domain.AnswerSchema{Value: f64(-0.06), Tolerance: 0.005}),
	trend("trend-revenue-2026", 0, domain.TrendPrompt{
		Periods: []string{"2023", "2024", "2025"},
		Revenue: []float64{100, 110, 121},
		Margin:  []float64{0.2, 0.2, 0.2},
		Question: "If the growth trend holds, what revenue do you project for 2026?",
	}, domain.AnswerSchema{Value: f64(133.1), Tolerance: 2}),

	trend("trend-profit-path", 1, domain.TrendPrompt{
		Periods: []string{"2023", "2024", "2025"},
		Revenue: []float64{400, 440, 484},
		Margin:  []float64{0.05, 0.08, 0.11},
		Question: "Approximately what operating profit does 2025 show?",
	}, domain.AnswerSchema{Value: f64(53.2), Tolerance: 2}),
	trend("trend-breakeven", 1, domain.TrendPrompt{
		Periods: []string{"2023", "2024", "2025"},
		Revenue: []float64{90, 120, 150},
		Margin:  []float64{-0.10, -0.04, 0.02},
		Question: "Margins improve 6 points per year. In which calendar year did the firm first break even?",
	}, domain.AnswerSchema{Value: f64(2025), Tolerance: 0}),
	trend("trend-incremental-margin", 1, domain.TrendPrompt{
		Periods: []string{"2024", "2025"},
		Revenue: []float64{300, 360},
		Margin:  []float64{0.10, 0.15},
		Question: "What incremental operating margin did the new revenue earn (decimal)?",
	}, domain.AnswerSchema{Value: f64(0.40), Tolerance: 0.03}),

	trend("trend-mix-shift", 2, domain.TrendPrompt{
		Periods: []string{"2023", "2024", "2025"},
		Revenue: []float64{1000, 1030, 1060},
		Margin:  []float64{0.12, 0.16, 0.20},
		Question: "Margins expand 8 points on 3% growth. Give the 2025 profit and the most likely driver in a phrase.",
	}, domain.AnswerSchema{Value: f64(212), Tolerance: 8, Keywords: []string{"mix", "price", "cost"}}),
	trend("trend-organic-vs-acquired", 2, domain.TrendPrompt{
		Periods: []string{"2024", "2025"},
		Revenue: []float64{500, 650},
		Margin:  []float64{0.14, 0.11},
		Question: "Revenue jumps 30% while margin drops. An acquisition closed mid-2025. Estimate organic growth if the deal added 120, and note the margin read.",
	}, domain.AnswerSchema{Value: f64(0.06), Tolerance: 0.02, Keywords: []string{"acquisition", "dilut", "integrat"}}),
	trend("trend-fx-adjusted", 2, domain.TrendPrompt{
		Periods: []string{"2024", "2025"},
		Revenue: []float64{800, 824},
		Margin:  []float64{0.2, 0.2},
		Question: "Reported growth is 3% with a 4-point currency headwind. What was constant-currency growth, and does the trend read differently?",
	}, domain.AnswerSchema{Value: f64(0.07), Tolerance: 0.01, Keywords: []string{"currency", "underlying", "constant"}}),

	trend("trend-scenario-model", 3, domain.TrendPrompt{
		Periods: []string{"2023", "2024", "2025"},
		Revenue: []float64{240, 288, 346},
		Margin:  []float64{0.08, 0.12, 0.16},
		Question: "Project 2027 operating profit if growth fades to 10% a year and margin caps at 20%. Show your reasoning.",
	}, domain.AnswerSchema{Value: f64(83.7), Tolerance: 6, Keywords: []string{"fade", "cap", "compound"}}),
	trend("trend-cash-conversion", 3, domain.TrendPrompt{
		Periods: []string{"2023", "2024", "2025"},
		Revenue: []float64{600, 660, 726},
		Margin:  []float64{0.15, 0.15, 0.15},
		Question: "Profit grows 10% a year but operating cash flow is flat. Walk through where the cash is going and what you would examine next.",
	}, domain.AnswerSchema{Keywords: []string{"working capital", "receivable", "inventory", "convert"}}),
	trend("trend-normalized-earnings", 3, domain.TrendPrompt{
		Periods: []string{"2021", "2022", "2023", "2024", "2025"},
		Revenue: []float64{300, 420, 510, 380, 310},
		Margin:  []float64{0.10, 0.22, 0.26, 0.12, 0.08},
		Question: "Estimate mid-cycle revenue and margin for this commodity producer and explain the normalization.",
	}, domain.AnswerSchema{Value: f64(384), Tolerance: 40, Keywords: []string{"cycle", "normal", "average"}}),

	// --- blind analysis (tool independence) ---
	blind("blind-liquidity-read", 0, domain.BlindAnalysisPrompt{
		Scenario: "A regional grocer, figures in millions. No ratios are provided; work from the raw lines.",
		Figures: map[string]float64{
			"cash": 15, "current_assets": 120, "current_liabilities": 95,
			"revenue": 900, "net_income": 18,
		},
		Tasks: []string{"State whether the company can cover near-term obligations", "Give a one-line overall verdict"},
	}, domain.AnswerSchema{Choice: "healthy", Keywords: []string{"current", "cover"}}),
	blind("blind-leverage-read", 0, domain.BlindAnalysisPrompt{
		Scenario: "A furniture chain, figures in millions.",
		Figures: map[string]float64{
			"total_debt": 450, "equity": 90, "operating_income": 40, "interest_expense": 38,
		},
		Tasks: []string{"Judge whether the debt load is manageable", "Give a one-line overall verdict"},
	}, domain.AnswerSchema{Choice: "distressed", Keywords: []string{"interest", "debt"}}),
	blind("blind-profit-read", 0, domain.BlindAnalysisPrompt{
		Scenario: "A niche toolmaker, figures in millions.",
		Figures: map[string]float64{
			"revenue": 210, "gross_profit": 105, "operating_income": 44, "net_income": 33,
		},
		Tasks: []string{"Judge the profitability of this business", "Give a one-line overall verdict"},
	}, domain.AnswerSchema{Choice: "healthy", Keywords: []string{"margin", "profit"}}),

	blind("blind-quality-check", 1, domain.BlindAnalysisPrompt{
		Scenario: "A staffing agency, figures in millions, two years side by side (suffix _py = prior year).",
		Figures: map[string]float64{
			"revenue": 480, "revenue_py": 450, "net_income": 30, "net_income_py": 28,
			"operating_cash_flow": 6, "operating_cash_flow_py": 27, "receivables": 140, "receivables_py": 85,
		},
		Tasks: []string{"Decide whether earnings quality improved or worsened", "Name the single most telling line item"},
	}, domain.AnswerSchema{Choice: "distressed", Keywords: []string{"receivable", "cash"}}),
	blind("blind-growth-funding", 1, domain.BlindAnalysisPrompt{
		Scenario: "A beverage startup, figures in millions.",
		Figures: map[string]float64{
			"revenue": 120, "revenue_py": 70, "net_income": -22, "cash": 18,
			"operating_cash_flow": -30, "total_debt": 95,
		},
		Tasks: []string{"Estimate how long the cash lasts at the current burn", "Judge whether the growth is sustainably funded"},
	}, domain.AnswerSchema{Choice: "distressed", Keywords: []string{"burn", "runway", "raise"}}),
	blind("blind-capital-returns", 1, domain.BlindAnalysisPrompt{
		Scenario: "A specialty chemicals firm, figures in millions.",
		Figures: map[string]float64{
			"operating_income": 88, "total_assets": 520, "total_debt": 110,
			"equity": 300, "dividends_paid": 35, "buybacks": 25,
		},
		Tasks: []string{"Judge whether returns on capital justify the payout", "Give a one-line overall verdict"},
	}, domain.AnswerSchema{Choice: "healthy", Keywords: []string{"return", "payout"}}),

	blind("blind-segment-drag", 2, domain.BlindAnalysisPrompt{
		Scenario: "A two-segment conglomerate, figures in millions. Segment A: mature tools. Segment B: robotics.",
		Figures: map[string]float64{
			"segment_a_revenue": 600, "segment_a_operating_income": 90,
			"segment_b_revenue": 200, "segment_b_operating_income": -60,
			"corporate_costs": 20, "total_debt": 240, "equity": 310,
		},
		Tasks: []string{"Identify which segment drives consolidated results", "Argue for or against exiting segment B"},
	}, domain.AnswerSchema{Keywords: []string{"segment", "subsid", "margin", "exit"}}),
	blind("blind-bank-lite", 2, domain.BlindAnalysisPrompt{
		Scenario: "A consumer lender, figures in millions. No provision ratios given.",
		Figures: map[string]float64{
			"loans": 2400, "deposits": 2100, "equity": 190,
			"net_interest_income": 96, "loan_losses": 58, "loan_losses_py": 22,
		},
		Tasks: []string{"Assess the loss trend against the equity cushion", "Give a verdict on solvency risk"},
	}, domain.AnswerSchema{Keywords: []string{"loss", "equity", "cushion", "trend"}}),
	blind("blind-rollup-screen", 2, domain.BlindAnalysisPrompt{
		Scenario: "A serial acquirer of dental practices, figures in millions.",
		Figures: map[string]float64{
			"revenue": 820, "net_income": 41, "goodwill": 1300, "total_assets": 1900,
			"total_debt": 900, "operating_cash_flow": 95, "acquisitions_spend": 310,
		},
		Tasks: []string{"Assess whether the roll-up creates or consumes value", "Name the two figures you would track next quarter"},
	}, domain.AnswerSchema{Keywords: []string{"goodwill", "acquisition", "organic", "debt"}}),

	blind("blind-full-thesis", 3, domain.BlindAnalysisPrompt{
		Scenario: "An industrial filtration maker, figures in millions. Build a complete view with no precomputed metrics.",
		Figures: map[string]float64{
			"revenue": 950, "revenue_py": 905, "gross_profit": 390, "operating_income": 152,
			"net_income": 108, "operating_cash_flow": 140, "capex": 55, "total_debt": 280,
			"cash": 120, "equity": 610, "shares_outstanding": 48,
		},
		Tasks: []string{"Write a three-sentence investment thesis", "State the valuation you would pay per share and why"},
	}, domain.AnswerSchema{Keywords: []string{"cash flow", "margin", "growth", "value"}}),
	blind("blind-distress-triage", 3, domain.BlindAnalysisPrompt{
		Scenario: "A mall REIT entering refinancing talks, figures in millions.",
		Figures: map[string]float64{
			"rental_income": 310, "operating_expenses": 140, "interest_expense": 150,
			"debt_due_12mo": 900, "total_debt": 2600, "property_value_estimate": 2900, "cash": 75,
		},
		Tasks: []string{"Assess refinancing feasibility from coverage and collateral", "Rank the claims most at risk"},
	}, domain.AnswerSchema{Keywords: []string{"coverage", "refinanc", "collateral", "equity"}}),
	blind("blind-moat-evidence", 3, domain.BlindAnalysisPrompt{
		Scenario: "A label-printing firm with decade-long customer relationships, figures in millions.",
		Figures: map[string]float64{
			"revenue": 430, "gross_profit": 240, "operating_income": 120,
			"capex": 18, "total_assets": 380, "equity": 290, "customer_retention_rate": 0.97,
		},
		Tasks: []string{"Argue from the figures alone whether a moat exists", "Identify what evidence would falsify the moat claim"},
	}, domain.AnswerSchema{Keywords: []string{"moat", "retention", "return", "pricing"}}),
}
