package domain

import "encoding/json"

// MappingResult is a reconciliation strategy's answer for one dataset.
type MappingResult struct {
	Mappings   map[string]string `json:"mappings"`
	Confidence float64           `json:"confidence"`
	Notes      string            `json:"notes"`
}

// MappingReport describes how one uploaded dataset was reconciled.
// Text-only sources were never reconciled and serialize as a flat result
// carrying the source file.
type MappingReport struct {
	SourceFile      string              `json:"source_file"`
	OriginalColumns []string            `json:"original_columns"`
	Preview         []map[string]string `json:"preview_5_rows"`
	Result          MappingResult       `json:"mapping_result"`
	TextOnly        bool                `json:"-"`
}

func (r MappingReport) MarshalJSON() ([]byte, error) {
	if r.TextOnly {
		mappings := r.Result.Mappings
		if mappings == nil {
			mappings = map[string]string{}
		}
		return json.Marshal(struct {
			Mappings   map[string]string `json:"mappings"`
			Confidence float64           `json:"confidence"`
			Notes      string            `json:"notes"`
			SourceFile string            `json:"source_file"`
		}{mappings, r.Result.Confidence, r.Result.Notes, r.SourceFile})
	}
	type plain MappingReport
	return json.Marshal(plain(r))
}

type MonthlyPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

type TimelinePoint struct {
	Month           string  `json:"month"`
	Revenue         float64 `json:"revenue"`
	Expense         float64 `json:"expense"`
	OperatingProfit float64 `json:"operating_profit"`
}

// Aging bucket labels.
const (
	Bucket0To30  = "0-30"
	Bucket31To60 = "31-60"
	Bucket61To90 = "61-90"
	Bucket90Plus = "90+"
)

var AgingBuckets = []string{Bucket0To30, Bucket31To60, Bucket61To90, Bucket90Plus}

type AgingSummary struct {
	TotalOutstanding float64            `json:"total_outstanding"`
	Buckets          map[string]float64 `json:"buckets"`
}

// Share returns the fraction of the outstanding balance sitting in bucket.
func (a AgingSummary) Share(bucket string) float64 {
	if a.TotalOutstanding <= 0 {
		return 0
	}
	denominator := a.TotalOutstanding
	if denominator < 1e-9 {
		denominator = 1e-9
	}
	return a.Buckets[bucket] / denominator
}

type LoanSummary struct {
	TotalPrincipal  float64  `json:"total_principal"`
	TotalEMI        float64  `json:"total_emi"`
	AvgInterestRate *float64 `json:"avg_interest_rate"`
}

type InventorySummary struct {
	InventoryValue float64 `json:"inventory_value"`
	SKUCount       int     `json:"sku_count"`
	StaleItems     int     `json:"stale_items"`
}

// GroupTotal is one row of a categorical breakdown. It serialises as
// {"<Field>": Key, "amount": Amount}.
type GroupTotal struct {
	Field  string
	Key    string
	Amount float64
}

func (g GroupTotal) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		g.Field:  g.Key,
		"amount": g.Amount,
	})
}

type TaxSummary struct {
	Available      bool         `json:"available"`
	TotalTaxAmount float64      `json:"total_tax_amount"`
	PendingAmount  float64      `json:"pending_amount"`
	LateItems      int          `json:"late_items"`
	ByTypeTop      []GroupTotal `json:"tax_by_type_top"`
	ByPeriod       []GroupTotal `json:"tax_by_period"`
}

func (t TaxSummary) MarshalJSON() ([]byte, error) {
	if !t.Available {
		return unavailableJSON, nil
	}
	type alias TaxSummary
	return json.Marshal(alias(t))
}

type ExpenseBreakdown struct {
	Available       bool         `json:"available"`
	ByCategoryTop   []GroupTotal `json:"by_category_top"`
	BySuperCategory []GroupTotal `json:"by_super_category"`
}

func (e ExpenseBreakdown) MarshalJSON() ([]byte, error) {
	if !e.Available {
		return unavailableJSON, nil
	}
	type alias ExpenseBreakdown
	return json.Marshal(alias(e))
}

type RevenueBreakdown struct {
	Available     bool         `json:"available"`
	ByCustomerTop []GroupTotal `json:"by_customer_top,omitempty"`
	ByStatus      []GroupTotal `json:"by_status,omitempty"`
	ByProductTop  []GroupTotal `json:"by_product_top,omitempty"`
	ByChannel     []GroupTotal `json:"by_channel,omitempty"`
}

func (r RevenueBreakdown) MarshalJSON() ([]byte, error) {
	if !r.Available {
		return unavailableJSON, nil
	}
	type alias RevenueBreakdown
	return json.Marshal(alias(r))
}

type Breakdowns struct {
	Revenue  RevenueBreakdown `json:"revenue"`
	Expenses ExpenseBreakdown `json:"expenses"`
	Tax      TaxSummary       `json:"tax"`
}

// KPISet is the unified metric set. Nil pointers mean "not available" and
// must never be read as zero.
type KPISet struct {
	TimelineMonths         []TimelinePoint  `json:"timeline_months"`
	TotalRevenue           float64          `json:"total_revenue"`
	TotalExpense           float64          `json:"total_expense"`
	TotalOperatingProfit   float64          `json:"total_operating_profit"`
	AvgMonthlyRevenueLast3 float64          `json:"avg_monthly_revenue_last3"`
	AvgMonthlyExpenseLast3 float64          `json:"avg_monthly_expense_last3"`
	OperatingMargin        *float64         `json:"operating_margin"`
	RevenueVolatility      *float64         `json:"revenue_volatility"`
	AR                     AgingSummary     `json:"ar"`
	AP                     AgingSummary     `json:"ap"`
	Inventory              InventorySummary `json:"inventory"`
	Loans                  LoanSummary      `json:"loans"`
	DSODays                *float64         `json:"dso_days"`
	DPODays                *float64         `json:"dpo_days"`
	RunwayMonthsProxy      *float64         `json:"runway_months_proxy"`
	EMIToMonthlyRevenue    *float64         `json:"emi_to_monthly_revenue"`
}

type Rating string

const (
	RatingStrong   Rating = "Strong"
	RatingGood     Rating = "Good"
	RatingWatch    Rating = "Watch"
	RatingHighRisk Rating = "High Risk"
)

type Scores struct {
	HealthScore          int    `json:"health_score"`
	CreditReadinessScore int    `json:"credit_readiness_score"`
	RiskScore            int    `json:"risk_score"`
	Rating               Rating `json:"rating"`
}

type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

type RiskFlag struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Signal   string   `json:"signal"`
	Why      string   `json:"why"`
}

type Recommendation struct {
	Title          string   `json:"title"`
	Why            string   `json:"why"`
	Actions        []string `json:"actions"`
	ImpactEstimate string   `json:"impact_estimate"`
}

// IndustryBenchmark holds median reference values for one industry.
type IndustryBenchmark struct {
	GrossMargin float64 `json:"gross_margin" yaml:"gross_margin"`
	OpMargin    float64 `json:"op_margin" yaml:"op_margin"`
	DSO         float64 `json:"dso" yaml:"dso"`
	DPO         float64 `json:"dpo" yaml:"dpo"`
}

type BenchmarkPosition struct {
	OperatingMargin *float64 `json:"operating_margin"`
	DSODays         *float64 `json:"dso_days"`
	DPODays         *float64 `json:"dpo_days"`
}

type BenchmarkGaps struct {
	OpMarginGap *float64 `json:"op_margin_gap"`
	DSOGapDays  *float64 `json:"dso_gap_days"`
	DPOGapDays  *float64 `json:"dpo_gap_days"`
}

type Benchmark struct {
	Industry   string            `json:"industry"`
	Available  bool              `json:"available"`
	Benchmarks IndustryBenchmark `json:"benchmarks"`
	Your       BenchmarkPosition `json:"your"`
	Gaps       BenchmarkGaps     `json:"gaps"`
}

func (b Benchmark) MarshalJSON() ([]byte, error) {
	if !b.Available {
		return json.Marshal(map[string]any{"industry": b.Industry, "available": false})
	}
	type alias Benchmark
	return json.Marshal(alias(b))
}

type ForecastPoint struct {
	Month                   string  `json:"month"`
	ForecastRevenue         float64 `json:"forecast_revenue"`
	ForecastExpense         float64 `json:"forecast_expense"`
	ForecastOperatingProfit float64 `json:"forecast_operating_profit"`
}

const (
	ForecastMethodTrend        = "mean+trend_last6"
	ForecastMethodInsufficient = "insufficient_data"
)

type Forecast struct {
	HorizonMonths int             `json:"horizon_months"`
	Points        []ForecastPoint `json:"forecast"`
	Method        string          `json:"method"`
}

// Assessment is the immutable output of one engine run.
type Assessment struct {
	Company         string                        `json:"company"`
	Industry        string                        `json:"industry"`
	KPIs            KPISet                        `json:"kpis"`
	Scores          Scores                        `json:"scores"`
	Risks           []RiskFlag                    `json:"risks"`
	Recommendations []Recommendation              `json:"recommendations"`
	Benchmarks      Benchmark                     `json:"benchmarks"`
	Forecast        Forecast                      `json:"forecast"`
	Notes           []string                      `json:"notes"`
	Mappings        map[DatasetKind]MappingReport `json:"mappings"`
	Breakdowns      Breakdowns                    `json:"breakdowns"`
}

var unavailableJSON = []byte(`{"available":false}`)

// Float returns a pointer to v for nullable metric fields.
func Float(v float64) *float64 {
	return &v
}
