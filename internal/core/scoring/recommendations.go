package scoring

import (
	"fmt"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

type recommendationRule func(k domain.KPISet) (domain.Recommendation, bool)

var recommendationRules = []recommendationRule{
	func(k domain.KPISet) (domain.Recommendation, bool) {
		if k.DSODays == nil || *k.DSODays <= 60 {
			return domain.Recommendation{}, false
		}
		return domain.Recommendation{
			Title: "Improve collections (reduce DSO)",
			Why:   fmt.Sprintf("DSO is high (~%.0f days), which traps cash in receivables.", *k.DSODays),
			Actions: []string{
				"Send payment reminders before due date (3/7/14-day cycle)",
				"Set a stop-credit rule for customers overdue >60 days",
				"Ask new customers for partial advance payment",
			},
			ImpactEstimate: "Lower DSO improves cashflow and reduces risk.",
		}, true
	},
	func(k domain.KPISet) (domain.Recommendation, bool) {
		if k.OperatingMargin == nil || *k.OperatingMargin >= 0.08 {
			return domain.Recommendation{}, false
		}
		return domain.Recommendation{
			Title: "Cut controllable costs (raise operating margin)",
			Why:   fmt.Sprintf("Operating margin is %s, leaving limited buffer.", percent(*k.OperatingMargin)),
			Actions: []string{
				"Remove unused subscriptions/tools",
				"Negotiate rent/vendor pricing",
				"Set monthly budgets per expense category",
			},
			ImpactEstimate: "A 3-5% cost reduction usually improves margin directly.",
		}, true
	},
	func(k domain.KPISet) (domain.Recommendation, bool) {
		if k.EMIToMonthlyRevenue == nil || *k.EMIToMonthlyRevenue <= 0.20 {
			return domain.Recommendation{}, false
		}
		return domain.Recommendation{
			Title: "Reduce fixed EMI pressure",
			Why: fmt.Sprintf("EMI is %s of monthly revenue, increasing default risk during low-sales months.",
				percent(*k.EMIToMonthlyRevenue)),
			Actions: []string{
				"Prioritize prepayment of highest-interest debt first",
				"Avoid new fixed-cost borrowing until cashflow stabilizes",
				"Consider restructuring tenure to reduce EMI (compare total interest)",
			},
			ImpactEstimate: "Lower EMI ratio increases credit readiness.",
		}, true
	},
	func(k domain.KPISet) (domain.Recommendation, bool) {
		if k.Inventory.StaleItems <= 0 {
			return domain.Recommendation{}, false
		}
		return domain.Recommendation{
			Title: "Clear stale inventory",
			Why:   fmt.Sprintf("%d items have no movement for 90+ days, locking cash.", k.Inventory.StaleItems),
			Actions: []string{
				"Run targeted discounts on dead stock",
				"Stop reordering slow SKUs until stock normalizes",
				"Track weekly aging inventory report",
			},
			ImpactEstimate: "Releasing dead stock improves working capital quickly.",
		}, true
	},
}

func maintainDiscipline() domain.Recommendation {
	return domain.Recommendation{
		Title: "Maintain monthly finance discipline",
		Why:   "No strong red flags triggered; keep tracking consistently.",
		Actions: []string{
			"Close accounts monthly by day 5",
			"Track weekly revenue, AR 30+, and cash buffer",
		},
		ImpactEstimate: "Consistency prevents surprises and improves decision-making.",
	}
}

// Recommend evaluates every rule in order. The result is never empty.
func Recommend(k domain.KPISet) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(recommendationRules))
	for _, rule := range recommendationRules {
		if rec, ok := rule(k); ok {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		out = append(out, maintainDiscipline())
	}
	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}
