package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/sme-health/internal/core/cleaning"
	"github.com/kirillkom/sme-health/internal/core/domain"
)

// MonthlySeries sums amount by calendar month of date, ascending. Sales
// tables yield revenue and expense tables yield expense.
func MonthlySeries(t *domain.Table) []domain.MonthlyPoint {
	out := []domain.MonthlyPoint{}
	if t.Empty() || !t.Has("date") || !t.Has("amount") {
		return out
	}

	sums := make(map[string]decimal.Decimal)
	for i := 0; i < t.Len(); i++ {
		date, ok := cleaning.ParseDate(t.Value(i, "date"))
		if !ok {
			continue
		}
		amount, ok := cleaning.ParseDecimal(t.Value(i, "amount"))
		if !ok {
			continue
		}
		month := cleaning.MonthKey(date)
		sums[month] = sums[month].Add(amount)
	}

	for month, value := range sums {
		out = append(out, domain.MonthlyPoint{Month: month, Value: value.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
