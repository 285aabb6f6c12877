// Package report renders an assessment as an investor-ready Markdown
// snapshot.
package report

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

const (
	notAvailable = "NA"
	listLimit    = 10
	riskLimit    = 8
	recLimit     = 5
	forecastRows = 6
)

// Render builds the Markdown report. generatedAt is printed in the header.
func Render(a *domain.Assessment, generatedAt time.Time) string {
	w := &writer{p: message.NewPrinter(language.English)}
	if a == nil {
		a = &domain.Assessment{}
	}

	w.linef("# Investor-Ready Financial Snapshot - %s", a.Company)
	w.linef("**Industry:** %s  \n**Generated:** %s", a.Industry, generatedAt.Format("2006-01-02 15:04"))
	w.line("")

	w.scores(a.Scores)
	w.kpis(a.KPIs)
	w.breakdowns(a.Breakdowns)
	w.risks(a.Risks)
	w.recommendations(a.Recommendations)
	w.benchmark(a.Benchmarks)
	w.forecast(a.Forecast)
	w.tax(a.Breakdowns.Tax)

	w.line("")
	w.line("## Notes")
	for _, n := range a.Notes {
		w.linef("- %s", n)
	}
	w.line("")
	return w.String()
}

type writer struct {
	strings.Builder
	p *message.Printer
}

func (w *writer) line(s string) {
	w.WriteString(s)
	w.WriteByte('\n')
}

func (w *writer) linef(format string, args ...any) {
	w.line(w.p.Sprintf(format, args...))
}

// String drops the trailing newline so the output ends like the last line.
func (w *writer) String() string {
	return strings.TrimSuffix(w.Builder.String(), "\n")
}

func (w *writer) money(v float64) string {
	return w.p.Sprintf("%.2f", v)
}

func (w *writer) scores(s domain.Scores) {
	w.line("## 1) Scores")
	w.linef("- **Financial Health Score:** %d/100 (%s)", s.HealthScore, s.Rating)
	w.linef("- **Credit Readiness Score:** %d/100", s.CreditReadinessScore)
	w.linef("- **Risk Score (higher = riskier):** %d/100", s.RiskScore)
	w.line("")
}

func (w *writer) kpis(k domain.KPISet) {
	w.line("## 2) Key KPIs")
	w.linef("- **Total Revenue:** %s", w.money(k.TotalRevenue))
	w.linef("- **Total Expense:** %s", w.money(k.TotalExpense))
	w.linef("- **Operating Profit:** %s", w.money(k.TotalOperatingProfit))
	w.linef("- **Operating Margin:** %s", pct(k.OperatingMargin))
	w.linef("- **DSO (days):** %s", days(k.DSODays))
	w.linef("- **DPO (days):** %s", days(k.DPODays))
	if k.RevenueVolatility != nil {
		w.linef("- **Revenue Volatility (normalized):** %.2f", *k.RevenueVolatility)
	} else {
		w.line("- **Revenue Volatility:** NA")
	}
	w.line("")
}

func (w *writer) breakdowns(b domain.Breakdowns) {
	w.line("## 3) Revenue & Expense Breakdown")

	if b.Revenue.Available {
		w.groups("Top Customers by Revenue", b.Revenue.ByCustomerTop)
		w.groups("Revenue by Channel", b.Revenue.ByChannel)
		w.groups("Revenue by Status", b.Revenue.ByStatus)
		w.groups("Top Products by Revenue", b.Revenue.ByProductTop)
	} else {
		w.line("- Revenue breakdown not available (missing optional columns like customer/status/channel).")
	}

	if b.Expenses.Available {
		w.line("### Top Expense Categories")
		w.groupLines(b.Expenses.ByCategoryTop)
		w.line("### Expense Super Categories")
		w.groupLines(b.Expenses.BySuperCategory)
	} else {
		w.line("- Expense breakdown not available (missing category).")
	}
	w.line("")
}

func (w *writer) groups(title string, rows []domain.GroupTotal) {
	if rows == nil {
		return
	}
	w.linef("### %s", title)
	w.groupLines(rows)
}

func (w *writer) groupLines(rows []domain.GroupTotal) {
	for i, r := range rows {
		if i == listLimit {
			break
		}
		w.linef("- %s: %s", r.Key, w.money(r.Amount))
	}
}

func (w *writer) risks(risks []domain.RiskFlag) {
	w.line("## 4) Risks & Red Flags")
	for i, r := range risks {
		if i == riskLimit {
			break
		}
		w.linef("- **[%s] %s:** %s - %s", r.Severity, r.Type, r.Signal, r.Why)
	}
	w.line("")
}

func (w *writer) recommendations(recs []domain.Recommendation) {
	w.line("## 5) Rule-Based Recommendations (minimal)")
	for i, rec := range recs {
		if i == recLimit {
			break
		}
		w.linef("### %d. %s", i+1, rec.Title)
		w.linef("- **Why:** %s", rec.Why)
		w.line("- **Actions:**")
		for _, action := range rec.Actions {
			w.linef("  - %s", action)
		}
		w.linef("- **Impact:** %s", rec.ImpactEstimate)
		w.line("")
	}
}

func (w *writer) benchmark(b domain.Benchmark) {
	w.line("## 6) Benchmarking")
	if !b.Available {
		w.line("- Benchmarking not available for this industry label in MVP.")
		w.line("")
		return
	}
	w.linef("- Industry median operating margin: **%.1f%%** | Yours: **%s**", b.Benchmarks.OpMargin*100, pct(b.Your.OperatingMargin))
	if b.Your.DSODays != nil {
		w.linef("- Industry DSO: **%d days** | Yours: **%.0f days**", int(b.Benchmarks.DSO), *b.Your.DSODays)
	} else {
		w.line("- Industry DSO: NA")
	}
	if b.Your.DPODays != nil {
		w.linef("- Industry DPO: **%d days** | Yours: **%.0f days**", int(b.Benchmarks.DPO), *b.Your.DPODays)
	} else {
		w.line("- Industry DPO: NA")
	}
	w.line("")
}

func (w *writer) forecast(f domain.Forecast) {
	w.line("## 7) Forecast (simple)")
	w.linef("- Method: `%s` | Horizon: %d months", f.Method, f.HorizonMonths)
	for i, p := range f.Points {
		if i == forecastRows {
			break
		}
		// Plain formatting here: forecast rows carry no grouping separators.
		w.line("  - " + p.Month + ": Rev " + plain(p.ForecastRevenue) +
			", Exp " + plain(p.ForecastExpense) +
			", OpProfit " + plain(p.ForecastOperatingProfit))
	}
	w.line("")
}

func (w *writer) tax(t domain.TaxSummary) {
	w.line("## 8) Tax & Compliance (if provided)")
	if !t.Available {
		w.line("- Tax data not provided or not mapped.")
		return
	}
	w.linef("- Total tax amount: %s", w.money(t.TotalTaxAmount))
	w.linef("- Pending amount: %s", w.money(t.PendingAmount))
	w.linef("- Late items: %d", t.LateItems)
	w.line("### Tax by Type (top)")
	w.groupLines(t.ByTypeTop)
}
