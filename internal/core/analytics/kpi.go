package analytics

import (
	"math"
	"sort"

	"github.com/kirillkom/sme-health/internal/core/cleaning"
	"github.com/kirillkom/sme-health/internal/core/domain"
)

const (
	shortWindow    = 3
	longWindow     = 6
	daysPerMonth   = 30.0
	defaultDivisor = 1.0
)

// KPIInputs bundles the aggregates the KPI composer merges.
type KPIInputs struct {
	Revenue   []domain.MonthlyPoint
	Expense   []domain.MonthlyPoint
	AR        domain.AgingSummary
	AP        domain.AgingSummary
	Loans     domain.LoanSummary
	Inventory domain.InventorySummary
}

// Timeline merges revenue and expense into one ascending month series,
// filling the gaps with zero.
func Timeline(revenue, expense []domain.MonthlyPoint) []domain.TimelinePoint {
	byMonth := make(map[string]*domain.TimelinePoint)
	get := func(month string) *domain.TimelinePoint {
		p, ok := byMonth[month]
		if !ok {
			p = &domain.TimelinePoint{Month: month}
			byMonth[month] = p
		}
		return p
	}
	for _, r := range revenue {
		get(r.Month).Revenue += r.Value
	}
	for _, e := range expense {
		get(e.Month).Expense += e.Value
	}

	out := make([]domain.TimelinePoint, 0, len(byMonth))
	for _, p := range byMonth {
		p.OperatingProfit = p.Revenue - p.Expense
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// ComposeKPIs derives the unified KPI set. Metrics whose denominator is
// missing or zero stay nil.
func ComposeKPIs(in KPIInputs) domain.KPISet {
	timeline := Timeline(in.Revenue, in.Expense)
	last3 := tail(timeline, shortWindow)
	last6 := tail(timeline, longWindow)

	kpis := domain.KPISet{
		TimelineMonths: timeline,
		AR:             in.AR,
		AP:             in.AP,
		Loans:          in.Loans,
		Inventory:      in.Inventory,
	}
	if kpis.AR.Buckets == nil {
		kpis.AR.Buckets = map[string]float64{}
	}
	if kpis.AP.Buckets == nil {
		kpis.AP.Buckets = map[string]float64{}
	}

	for _, p := range timeline {
		kpis.TotalRevenue += p.Revenue
		kpis.TotalExpense += p.Expense
		kpis.TotalOperatingProfit += p.OperatingProfit
	}

	revenue3 := values(last3, func(p domain.TimelinePoint) float64 { return p.Revenue })
	expense3 := values(last3, func(p domain.TimelinePoint) float64 { return p.Expense })
	avgRev, _ := mean(revenue3)
	avgExp, _ := mean(expense3)
	kpis.AvgMonthlyRevenueLast3 = avgRev
	kpis.AvgMonthlyExpenseLast3 = avgExp

	kpis.OperatingMargin = cleaning.SafeDiv(kpis.TotalOperatingProfit, kpis.TotalRevenue)
	kpis.RevenueVolatility = domain.Float(revenueVolatility(
		values(last6, func(p domain.TimelinePoint) float64 { return p.Revenue }),
	))

	arOutstanding := in.AR.TotalOutstanding
	apOutstanding := in.AP.TotalOutstanding
	if avgExp > 0 {
		kpis.RunwayMonthsProxy = cleaning.SafeDiv(math.Max(arOutstanding-apOutstanding, 0), avgExp)
		if dpo := cleaning.SafeDiv(apOutstanding, avgExp); dpo != nil {
			kpis.DPODays = domain.Float(*dpo * daysPerMonth)
		}
	}
	if avgRev > 0 {
		if dso := cleaning.SafeDiv(arOutstanding, avgRev); dso != nil {
			kpis.DSODays = domain.Float(*dso * daysPerMonth)
		}
	}
	if avgRev != 0 {
		kpis.EMIToMonthlyRevenue = cleaning.SafeDiv(in.Loans.TotalEMI, avgRev)
	}
	return kpis
}

// revenueVolatility is the sample standard deviation over the trailing
// window divided by its mean. Undefined ratios collapse to zero.
func revenueVolatility(revenue []float64) float64 {
	std := 0.0
	if len(revenue) >= 2 {
		std = sampleStdDev(revenue)
	}
	divisor := defaultDivisor
	if m, ok := mean(revenue); ok {
		divisor = m
	}
	ratio := cleaning.SafeDiv(std, divisor)
	if ratio == nil || math.IsNaN(*ratio) || math.IsInf(*ratio, 0) {
		return 0
	}
	return math.Abs(*ratio)
}

func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func values(points []domain.TimelinePoint, pick func(domain.TimelinePoint) float64) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = pick(p)
	}
	return out
}

func mean(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), true
}

func sampleStdDev(xs []float64) float64 {
	m, _ := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
