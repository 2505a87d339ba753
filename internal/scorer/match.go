package scorer

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/venture-galaxy/matchmaker/internal/config"
	"github.com/venture-galaxy/matchmaker/internal/model"
)

// Factor names used as component keys.
const (
	FactorSector       = "sector"
	FactorTicket       = "ticket_size"
	FactorRevenue      = "revenue"
	FactorValuation    = "valuation"
	FactorRevenueModel = "revenue_model"
	FactorOrigin       = "origin_state"
	FactorAge          = "company_age"
	FactorStage        = "stage"
)

// Factors lists every factor in summation order.
var Factors = []string{
	FactorSector, FactorTicket, FactorRevenue, FactorValuation,
	FactorRevenueModel, FactorOrigin, FactorAge, FactorStage,
}

// Match holds the score for a single startup/investor pair.
type Match struct {
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components"`
}

// StartupScore pairs a startup with its score. Index is the startup's
// position in the input slice.
type StartupScore struct {
	Index   int                  `json:"index"`
	Startup model.StartupProfile `json:"startup"`
	Score   float64              `json:"score"`
}

// InvestorScore pairs an investor with its score for a fixed startup.
type InvestorScore struct {
	Index    int                   `json:"index"`
	Investor model.InvestorProfile `json:"investor"`
	Score    float64               `json:"score"`
}

// Scorer computes weighted compatibility scores. It holds no mutable state
// and is safe for concurrent use.
type Scorer struct {
	cfg config.ScoringConfig
}

// New creates a Scorer. A config with no weights falls back to DefaultConfig.
func New(cfg config.ScoringConfig) *Scorer {
	if WeightSum(cfg) <= 0 {
		cfg = DefaultConfig()
	}
	return &Scorer{cfg: cfg}
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() config.ScoringConfig {
	return s.cfg
}

// Score returns the compatibility percentage in [0, 100].
func (s *Scorer) Score(startup model.StartupProfile, investor model.InvestorProfile) float64 {
	return s.Breakdown(startup, investor).Score
}

// Breakdown returns the score together with each factor's contribution
// before weighting. Every component lies in [0, 1].
func (s *Scorer) Breakdown(startup model.StartupProfile, investor model.InvestorProfile) Match {
	cfg := s.cfg

	var ticket float64
	if cfg.TicketRatio == ValuationOverTicket {
		ticket = ratioScore(startup.Valuation, investor.TicketSize, cfg.RatioFloor)
	} else {
		ticket = ratioScore(investor.TicketSize, startup.Valuation, cfg.RatioFloor)
	}

	var valuation float64
	if cfg.ValuationRatio == ValuationOverPreferred {
		valuation = ratioScore(startup.Valuation, investor.PreferredValuation, cfg.RatioFloor)
	} else {
		valuation = ratioScore(investor.PreferredValuation, startup.Valuation, cfg.RatioFloor)
	}

	components := map[string]float64{
		FactorSector:       sectorScore(investor.SectorInterest, startup.Sector, cfg.SectorFloor),
		FactorTicket:       ticket,
		FactorRevenue:      ratioScore(startup.AnnualRevenue, investor.PreferredRevenue, cfg.RatioFloor),
		FactorValuation:    valuation,
		FactorRevenueModel: boolScore(setMatches(investor.RevenueIncome, startup.RevenueModel)),
		FactorOrigin:       boolScore(preferenceMatches(investor.OriginState, startup.OriginState)),
		FactorAge:          AgeScore(float64(startup.CompanyAge - investor.CompanieAge)),
		FactorStage:        boolScore(preferenceMatches(investor.PreferredStage, startup.Stage)),
	}

	weights := map[string]float64{
		FactorSector:       cfg.SectorWeight,
		FactorTicket:       cfg.TicketWeight,
		FactorRevenue:      cfg.RevenueWeight,
		FactorValuation:    cfg.ValuationWeight,
		FactorRevenueModel: cfg.RevenueModelWeight,
		FactorOrigin:       cfg.OriginWeight,
		FactorAge:          cfg.AgeWeight,
		FactorStage:        cfg.StageWeight,
	}

	var total float64
	for _, k := range Factors {
		total += components[k] * weights[k]
	}

	score := total / WeightSum(cfg) * 100
	score = math.Max(0, math.Min(score, 100))

	return Match{Score: score, Components: components}
}

// ScoreAll scores every startup against one investor, highest score first.
// Ties keep input order.
func (s *Scorer) ScoreAll(startups []model.StartupProfile, investor model.InvestorProfile) []StartupScore {
	out := make([]StartupScore, len(startups))
	for i, st := range startups {
		out[i] = StartupScore{Index: i, Startup: st, Score: s.Score(st, investor)}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// RankInvestors scores every investor against one startup, highest first.
func (s *Scorer) RankInvestors(startup model.StartupProfile, investors []model.InvestorProfile) []InvestorScore {
	out := make([]InvestorScore, len(investors))
	for i, inv := range investors {
		out[i] = InvestorScore{Index: i, Investor: inv, Score: s.Score(startup, inv)}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// FormatPercent renders a score the way it appears in exported sheets.
func FormatPercent(score float64) string {
	return fmt.Sprintf("%.2f%%", score)
}

// AgeScore rewards closeness in company age: 1 for identical ages, decaying
// as 1/(1+|diff|) otherwise. Never zero for finite input.
func AgeScore(diff float64) float64 {
	d := math.Abs(diff)
	if d == 0 {
		return 1
	}
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return math.SmallestNonzeroFloat64
	}
	return 1 / (1 + d)
}

// ratioScore returns min(num/max(den,1), 1), floored at floor.
func ratioScore(num, den, floor float64) float64 {
	if den < 1 || math.IsNaN(den) {
		den = 1
	}
	r := math.Min(num/den, 1)
	if math.IsNaN(r) || r < floor {
		return floor
	}
	return r
}

func sectorScore(interest []string, sector string, floor float64) float64 {
	if setMatches(interest, sector) {
		return 1
	}
	return floor
}

// setMatches reports whether set contains Agnostic or the non-empty value.
func setMatches(set []string, value string) bool {
	if slices.Contains(set, model.Agnostic) {
		return true
	}
	return value != "" && slices.Contains(set, value)
}

// preferenceMatches treats an empty or Agnostic preference as matching
// anything.
func preferenceMatches(pref, value string) bool {
	if pref == "" || pref == model.Agnostic {
		return true
	}
	return value != "" && pref == value
}

func boolScore(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
