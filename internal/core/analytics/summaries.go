package analytics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/sme-health/internal/core/cleaning"
	"github.com/kirillkom/sme-health/internal/core/domain"
)

const (
	staleAfterDays = 90
	taxTypeTop     = 10
	unknownPeriod  = "UNKNOWN"
)

// Loans sums principal and EMI and averages the interest rate over rows
// that parse. A missing rate column leaves the average unavailable.
func Loans(t *domain.Table) domain.LoanSummary {
	var out domain.LoanSummary
	if t.Empty() {
		return out
	}
	principal, _ := sumColumn(t, "principal")
	emi, _ := sumColumn(t, "emi")
	out.TotalPrincipal = principal.InexactFloat64()
	out.TotalEMI = emi.InexactFloat64()
	if sum, n := sumColumn(t, "interest_rate"); n > 0 {
		out.AvgInterestRate = domain.Float(sum.InexactFloat64() / float64(n))
	}
	return out
}

// Inventory values stock, counts SKUs and flags items with no movement in
// the 90 days before asOf.
func Inventory(t *domain.Table, asOf time.Time) domain.InventorySummary {
	var out domain.InventorySummary
	if t.Empty() {
		return out
	}
	value, _ := sumColumn(t, "value")
	out.InventoryValue = value.InexactFloat64()

	if t.Has("sku") {
		seen := make(map[string]struct{})
		for _, cell := range t.Column("sku") {
			if key, ok := cleaning.Text(cell); ok {
				seen[key] = struct{}{}
			}
		}
		out.SKUCount = len(seen)
	} else {
		out.SKUCount = t.Len()
	}

	if t.Has("last_movement_date") {
		asOf = asOfOrToday(asOf)
		for _, cell := range t.Column("last_movement_date") {
			moved, ok := cleaning.ParseDate(cell)
			if ok && cleaning.DaysBetween(asOf, moved) > staleAfterDays {
				out.StaleItems++
			}
		}
	}
	return out
}

var (
	pendingTaxStatuses = map[string]bool{"pending": true, "unpaid": true, "due": true}
	lateTaxStatuses    = map[string]bool{"late": true, "overdue": true}
)

// Tax totals tax liabilities by type and period and tracks pending and
// late items. Without an amount column it reports unavailable.
func Tax(t *domain.Table) domain.TaxSummary {
	if t.Empty() || !t.Has("amount") {
		return domain.TaxSummary{}
	}

	derivePeriod := !t.Has("period") || allBlank(t, "period")

	out := domain.TaxSummary{Available: true}
	total, pending := decimal.Zero, decimal.Zero
	byType := groupSums{}
	byPeriod := groupSums{}
	for i := 0; i < t.Len(); i++ {
		amount, ok := cleaning.ParseDecimal(t.Value(i, "amount"))
		if !ok {
			continue
		}
		taxType := lowerOr(t.Value(i, "type"), "tax")
		status := lowerOr(t.Value(i, "status"), "unknown")

		total = total.Add(amount)
		if pendingTaxStatuses[status] {
			pending = pending.Add(amount)
		}
		if lateTaxStatuses[status] {
			out.LateItems++
		}
		byType.add(taxType, amount)
		if period, ok := taxPeriod(t, i, derivePeriod); ok {
			byPeriod.add(period, amount)
		}
	}
	out.TotalTaxAmount = total.InexactFloat64()
	out.PendingAmount = pending.InexactFloat64()
	out.ByTypeTop = byType.ranked("type", taxTypeTop)
	out.ByPeriod = byPeriod.byKey("period")
	return out
}

// taxPeriod reads the period column, or derives the month from date. A
// derived period that cannot be read groups under UNKNOWN so the per-period
// amounts still add up to the total.
func taxPeriod(t *domain.Table, row int, derive bool) (string, bool) {
	if !derive {
		return cleaning.Text(t.Value(row, "period"))
	}
	date, ok := cleaning.ParseDate(t.Value(row, "date"))
	if !ok {
		return unknownPeriod, true
	}
	return cleaning.MonthKey(date), true
}

func sumColumn(t *domain.Table, column string) (decimal.Decimal, int) {
	sum := decimal.Zero
	if !t.Has(column) {
		return sum, 0
	}
	var n int
	for _, cell := range t.Column(column) {
		if v, ok := cleaning.ParseDecimal(cell); ok {
			sum = sum.Add(v)
			n++
		}
	}
	return sum, n
}

func allBlank(t *domain.Table, column string) bool {
	for _, cell := range t.Column(column) {
		if _, ok := cleaning.Text(cell); ok {
			return false
		}
	}
	return true
}

func lowerOr(cell any, fallback string) string {
	s, ok := cleaning.Text(cell)
	if !ok {
		return fallback
	}
	return strings.ToLower(s)
}
