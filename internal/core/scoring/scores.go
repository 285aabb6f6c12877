// Package scoring turns a KPI set into scores, risk flags,
// recommendations and an industry comparison.
package scoring

import (
	"math"

	"github.com/kirillkom/sme-health/internal/core/cleaning"
	"github.com/kirillkom/sme-health/internal/core/domain"
)

// Neutral sub-scores used when the underlying KPI is unavailable.
const (
	defaultProfit     = 0.0
	defaultVolatility = 0.5
	defaultDSO        = 0.5
	defaultDebt       = 0.7
)

// SubScores are the normalised [0, 1] inputs of every score.
type SubScores struct {
	Profit     float64
	Volatility float64
	DSO        float64
	Debt       float64
}

func Sub(k domain.KPISet) SubScores {
	return SubScores{
		Profit:     subScore(k.OperatingMargin, func(v float64) float64 { return (v - 0.02) / 0.18 }, defaultProfit),
		Volatility: subScore(k.RevenueVolatility, func(v float64) float64 { return 1 - (v / 0.6) }, defaultVolatility),
		DSO:        subScore(k.DSODays, func(v float64) float64 { return 1 - (v / 120) }, defaultDSO),
		Debt:       subScore(k.EMIToMonthlyRevenue, func(v float64) float64 { return 1 - (v / 0.35) }, defaultDebt),
	}
}

func subScore(kpi *float64, scale func(float64) float64, fallback float64) float64 {
	if kpi == nil || math.IsNaN(*kpi) {
		return fallback
	}
	return *cleaning.Clip01(domain.Float(scale(*kpi)))
}

// Score computes the health, credit readiness and risk triad.
func Score(k domain.KPISet) domain.Scores {
	s := Sub(k)

	// Explicit conversions stop the compiler from fusing multiply-adds so
	// the scores round the same way on every architecture.
	health := float64(float64(0.40*s.Profit)+float64(0.30*s.Volatility)+float64(0.30*s.DSO)) * 100
	credit := float64(float64(0.45*(health/100))+float64(0.35*s.Debt)+float64(0.20*s.DSO)) * 100
	risk := (1 - float64(float64(0.35*s.Profit)+float64(0.30*s.Volatility)+float64(0.20*s.DSO)+float64(0.15*s.Debt))) * 100

	return triad(health, credit, risk)
}

// triad rounds half to even and rates the unrounded health, so 79.5 reports
// a score of 80 rated Good.
func triad(health, credit, risk float64) domain.Scores {
	return domain.Scores{
		HealthScore:          int(math.RoundToEven(health)),
		CreditReadinessScore: int(math.RoundToEven(credit)),
		RiskScore:            int(math.RoundToEven(risk)),
		Rating:               RatingFor(health),
	}
}

// RatingFor labels an unrounded health score.
func RatingFor(health float64) domain.Rating {
	switch {
	case health >= 80:
		return domain.RatingStrong
	case health >= 65:
		return domain.RatingGood
	case health >= 50:
		return domain.RatingWatch
	default:
		return domain.RatingHighRisk
	}
}
