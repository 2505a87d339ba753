// Package scorer computes the compatibility percentage between a startup and
// an investor's preferences.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/venture-galaxy/matchmaker/internal/config"
)

// DefaultRatioFloor is the minimum contribution of the ticket, revenue and
// valuation factors, so a zero ratio still carries some signal.
const DefaultRatioFloor = 0.1

// DefaultSectorFloor is the contribution of a non-matching sector.
const DefaultSectorFloor = 0.0

// Ratio directions for the ticket and valuation factors.
const (
	TicketOverValuation    = "ticket_over_valuation"
	ValuationOverTicket    = "valuation_over_ticket"
	PreferredOverValuation = "preferred_over_valuation"
	ValuationOverPreferred = "valuation_over_preferred"
)

// DefaultConfig returns a config.ScoringConfig with every factor weighted 1.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		SectorWeight:       1,
		TicketWeight:       1,
		RevenueWeight:      1,
		ValuationWeight:    1,
		RevenueModelWeight: 1,
		OriginWeight:       1,
		AgeWeight:          1,
		StageWeight:        1,

		RatioFloor:  DefaultRatioFloor,
		SectorFloor: DefaultSectorFloor,

		TicketRatio:    TicketOverValuation,
		ValuationRatio: PreferredOverValuation,
	}
}

// WeightSum returns the sum of all factor weights.
func WeightSum(c config.ScoringConfig) float64 {
	return c.SectorWeight + c.TicketWeight + c.RevenueWeight + c.ValuationWeight +
		c.RevenueModelWeight + c.OriginWeight + c.AgeWeight + c.StageWeight
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	weights := map[string]float64{
		"sector_weight":        c.SectorWeight,
		"ticket_weight":        c.TicketWeight,
		"revenue_weight":       c.RevenueWeight,
		"valuation_weight":     c.ValuationWeight,
		"revenue_model_weight": c.RevenueModelWeight,
		"origin_weight":        c.OriginWeight,
		"age_weight":           c.AgeWeight,
		"stage_weight":         c.StageWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}
	if WeightSum(c) <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}

	if c.RatioFloor < 0 || c.RatioFloor > 1 {
		errs = append(errs, "ratio_floor must be between 0 and 1")
	}
	if c.SectorFloor < 0 || c.SectorFloor > 1 {
		errs = append(errs, "sector_floor must be between 0 and 1")
	}

	switch c.TicketRatio {
	case "", TicketOverValuation, ValuationOverTicket:
	default:
		errs = append(errs, fmt.Sprintf("ticket_ratio %q is not one of %s, %s", c.TicketRatio, TicketOverValuation, ValuationOverTicket))
	}
	switch c.ValuationRatio {
	case "", PreferredOverValuation, ValuationOverPreferred:
	default:
		errs = append(errs, fmt.Sprintf("valuation_ratio %q is not one of %s, %s", c.ValuationRatio, PreferredOverValuation, ValuationOverPreferred))
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
