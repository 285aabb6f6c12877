package scoring

import (
	"fmt"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

const (
	MaxRisks           = 10
	MaxRecommendations = 5
)

type riskRule func(k domain.KPISet) (domain.RiskFlag, bool)

var riskRules = []riskRule{
	func(k domain.KPISet) (domain.RiskFlag, bool) {
		if k.OperatingMargin == nil || *k.OperatingMargin >= 0.02 {
			return domain.RiskFlag{}, false
		}
		return domain.RiskFlag{
			Type:     "Profitability",
			Severity: domain.SeverityHigh,
			Signal:   fmt.Sprintf("Operating margin is low (%s).", percent(*k.OperatingMargin)),
			Why:      "Low margin reduces buffer for shocks.",
		}, true
	},
	func(k domain.KPISet) (domain.RiskFlag, bool) {
		if k.RevenueVolatility == nil || *k.RevenueVolatility <= 0.35 {
			return domain.RiskFlag{}, false
		}
		return domain.RiskFlag{
			Type:     "Revenue Stability",
			Severity: domain.SeverityMedium,
			Signal:   fmt.Sprintf("Revenue volatility is high (%.2f).", *k.RevenueVolatility),
			Why:      "High variance increases cashflow uncertainty.",
		}, true
	},
	func(k domain.KPISet) (domain.RiskFlag, bool) {
		if k.DSODays == nil || *k.DSODays <= 60 {
			return domain.RiskFlag{}, false
		}
		severity := domain.SeverityMedium
		if *k.DSODays > 90 {
			severity = domain.SeverityHigh
		}
		return domain.RiskFlag{
			Type:     "Receivables",
			Severity: severity,
			Signal:   fmt.Sprintf("DSO is high (~%.0f days).", *k.DSODays),
			Why:      "Slow collections strain working capital.",
		}, true
	},
	func(k domain.KPISet) (domain.RiskFlag, bool) {
		if k.EMIToMonthlyRevenue == nil || *k.EMIToMonthlyRevenue <= 0.25 {
			return domain.RiskFlag{}, false
		}
		return domain.RiskFlag{
			Type:     "Debt Burden",
			Severity: domain.SeverityHigh,
			Signal:   fmt.Sprintf("EMI burden is high (%s of monthly revenue).", percent(*k.EMIToMonthlyRevenue)),
			Why:      "High fixed outflow raises default risk.",
		}, true
	},
	func(k domain.KPISet) (domain.RiskFlag, bool) {
		if k.AR.Share(domain.Bucket90Plus) <= 0.25 {
			return domain.RiskFlag{}, false
		}
		return domain.RiskFlag{
			Type:     "Receivables Aging",
			Severity: domain.SeverityHigh,
			Signal:   "Large share of AR is 90+ days.",
			Why:      "Older receivables have lower recovery probability.",
		}, true
	},
	func(k domain.KPISet) (domain.RiskFlag, bool) {
		if k.Inventory.StaleItems <= 0 {
			return domain.RiskFlag{}, false
		}
		return domain.RiskFlag{
			Type:     "Inventory",
			Severity: domain.SeverityMedium,
			Signal:   fmt.Sprintf("%d items appear stale (no movement in 90+ days).", k.Inventory.StaleItems),
			Why:      "Dead stock locks cash and may require discounting.",
		}, true
	},
	func(k domain.KPISet) (domain.RiskFlag, bool) {
		if k.AP.Share(domain.Bucket90Plus) <= 0.20 {
			return domain.RiskFlag{}, false
		}
		return domain.RiskFlag{
			Type:     "Payables Aging",
			Severity: domain.SeverityMedium,
			Signal:   "Notable AP is 90+ days overdue.",
			Why:      "Vendor pressure may disrupt supply.",
		}, true
	},
}

var noRisks = domain.RiskFlag{
	Type:     "General",
	Severity: domain.SeverityLow,
	Signal:   "No major red flags detected from uploaded data.",
	Why:      "Keep monitoring monthly.",
}

// Risks evaluates every rule in order. The result is never empty.
func Risks(k domain.KPISet) []domain.RiskFlag {
	out := make([]domain.RiskFlag, 0, len(riskRules))
	for _, rule := range riskRules {
		if flag, ok := rule(k); ok {
			out = append(out, flag)
		}
	}
	if len(out) == 0 {
		out = append(out, noRisks)
	}
	if len(out) > MaxRisks {
		out = out[:MaxRisks]
	}
	return out
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
