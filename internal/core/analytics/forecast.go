package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

const (
	DefaultForecastHorizon = 6
	minTrendPoints         = 3
	trendWindow            = 6
)

// Forecast projects revenue and expense month by month after the latest
// observed month. Series with at least three points follow a least-squares
// trend over their last six points; shorter series stay flat at their mean.
func Forecast(revenue, expense []domain.MonthlyPoint, horizon int) domain.Forecast {
	if horizon <= 0 {
		horizon = DefaultForecastHorizon
	}
	out := domain.Forecast{
		HorizonMonths: horizon,
		Points:        []domain.ForecastPoint{},
		Method:        domain.ForecastMethodInsufficient,
	}
	if len(revenue) == 0 && len(expense) == 0 {
		return out
	}

	rev := sortedSeries(revenue)
	exp := sortedSeries(expense)
	anchor, ok := latestMonth(rev, exp)
	if !ok {
		return out
	}

	revBase, revSlope := trend(rev)
	expBase, expSlope := trend(exp)
	for step := 1; step <= horizon; step++ {
		r := math.Max(0, revBase+revSlope*float64(step))
		e := math.Max(0, expBase+expSlope*float64(step))
		out.Points = append(out.Points, domain.ForecastPoint{
			Month:                   anchor.AddDate(0, step, 0).Format("2006-01"),
			ForecastRevenue:         r,
			ForecastExpense:         e,
			ForecastOperatingProfit: r - e,
		})
	}
	out.Method = domain.ForecastMethodTrend
	return out
}

func sortedSeries(points []domain.MonthlyPoint) []domain.MonthlyPoint {
	out := append([]domain.MonthlyPoint(nil), points...)
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func latestMonth(series ...[]domain.MonthlyPoint) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, s := range series {
		for _, p := range s {
			m, err := time.Parse("2006-01", p.Month)
			if err != nil {
				continue
			}
			if !found || m.After(latest) {
				latest = m
				found = true
			}
		}
	}
	return latest, found
}

func trend(series []domain.MonthlyPoint) (base, slope float64) {
	ys := make([]float64, len(series))
	for i, p := range series {
		ys[i] = p.Value
	}
	if len(ys) < minTrendPoints {
		m, _ := mean(ys)
		return m, 0
	}
	ys = tail(ys, trendWindow)
	return ys[len(ys)-1], leastSquaresSlope(ys)
}

func leastSquaresSlope(ys []float64) float64 {
	n := float64(len(ys))
	xMean := (n - 1) / 2
	yMean, _ := mean(ys)
	var num, den float64
	for i, y := range ys {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
