package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/sme-health/internal/core/cleaning"
	"github.com/kirillkom/sme-health/internal/core/domain"
)

// ARAging buckets receivables by days past due_date, else invoice_date.
func ARAging(t *domain.Table, asOf time.Time) domain.AgingSummary {
	return aging(t, "invoice_date", asOf)
}

// APAging buckets payables by days past due_date, else bill_date.
func APAging(t *domain.Table, asOf time.Time) domain.AgingSummary {
	return aging(t, "bill_date", asOf)
}

func aging(t *domain.Table, counterpart string, asOf time.Time) domain.AgingSummary {
	if t.Empty() || !t.Has("outstanding") {
		return domain.AgingSummary{Buckets: map[string]float64{}}
	}
	asOf = asOfOrToday(asOf)

	total := decimal.Zero
	buckets := make(map[string]decimal.Decimal, len(domain.AgingBuckets))
	for i := 0; i < t.Len(); i++ {
		amount, ok := cleaning.ParseDecimal(t.Value(i, "outstanding"))
		if !ok {
			continue
		}
		age := 0
		if ref, ok := referenceDate(t, i, counterpart); ok {
			age = cleaning.DaysBetween(asOf, ref)
		}
		total = total.Add(amount)
		bucket := BucketFor(age)
		buckets[bucket] = buckets[bucket].Add(amount)
	}

	summary := domain.AgingSummary{
		TotalOutstanding: total.InexactFloat64(),
		Buckets:          make(map[string]float64, len(domain.AgingBuckets)),
	}
	for _, bucket := range domain.AgingBuckets {
		summary.Buckets[bucket] = buckets[bucket].InexactFloat64()
	}
	return summary
}

func referenceDate(t *domain.Table, row int, counterpart string) (time.Time, bool) {
	if due, ok := cleaning.ParseDate(t.Value(row, "due_date")); ok {
		return due, true
	}
	return cleaning.ParseDate(t.Value(row, counterpart))
}

// BucketFor places an age in days. Negative ages (not yet due) land in 0-30.
func BucketFor(age int) string {
	switch {
	case age <= 30:
		return domain.Bucket0To30
	case age <= 60:
		return domain.Bucket31To60
	case age <= 90:
		return domain.Bucket61To90
	default:
		return domain.Bucket90Plus
	}
}

func asOfOrToday(asOf time.Time) time.Time {
	if asOf.IsZero() {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	return asOf
}
