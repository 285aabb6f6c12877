package engine

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

type stubReconciler struct {
	calls  int
	result domain.MappingResult
}

func (s *stubReconciler) Reconcile(_ context.Context, _ domain.DatasetKind, _ *domain.Table) domain.MappingResult {
	s.calls++
	return s.result
}

func TestRunWithoutInputs(t *testing.T) {
	got := New(nil, nil).Run(context.Background(), Input{Company: "Acme", Industry: "retail"})

	want := domain.Scores{HealthScore: 45, CreditReadinessScore: 55, RiskScore: 50, Rating: domain.RatingHighRisk}
	if got.Scores != want {
		t.Fatalf("scores = %+v, want %+v", got.Scores, want)
	}
	wantNotes := []string{
		"Sales missing/empty: revenue analytics limited.",
		"Expenses missing/empty: cost analytics limited.",
	}
	if !reflect.DeepEqual(got.Notes, wantNotes) {
		t.Fatalf("notes = %v", got.Notes)
	}
	if got.Forecast.Method != domain.ForecastMethodInsufficient || len(got.Forecast.Points) != 0 {
		t.Fatalf("forecast = %+v", got.Forecast)
	}
	if len(got.Risks) != 1 || len(got.Recommendations) != 1 {
		t.Fatalf("expected default risk and recommendation")
	}

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"kpis", "scores", "risks", "recommendations", "benchmarks", "forecast", "notes", "mappings", "breakdowns"} {
		if _, ok := top[key]; !ok {
			t.Fatalf("missing top-level key %q in %s", key, raw)
		}
	}
	if !strings.Contains(string(top["breakdowns"]), `"revenue":{"available":false}`) {
		t.Fatalf("breakdowns = %s", top["breakdowns"])
	}
	if !strings.Contains(string(top["kpis"]), `"operating_margin":null`) {
		t.Fatalf("unavailable KPIs must serialise as null: %s", top["kpis"])
	}
}

func TestRunFullScenario(t *testing.T) {
	in := Input{
		Company:  "Acme Traders",
		Industry: "retail",
		AsOf:     time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		Datasets: map[domain.DatasetKind]*domain.Table{
			domain.KindSales: domain.NewTable(
				[]string{"Invoice Date", "Net Amount", "Client"},
				[][]any{
					{"2024-01-05", "1,000", "A"},
					{"2024-02-03", "(200)", "B"},
					{"2024-03-10", "2,500", "A"},
				},
			),
			domain.KindExpenses: domain.NewTable(
				[]string{"Txn Date", "Amount", "Expense Head"},
				[][]any{
					{"2024-01-20", "400", "Salary"},
					{"2024-02-20", "300", "Rent"},
				},
			),
			domain.KindAR: domain.NewTable(
				[]string{"Outstanding Amt", "Due Date"},
				[][]any{{"5000", "2024-01-01"}},
			),
			domain.KindInventory: domain.NewTable([]string{domain.TextBlobColumn}, [][]any{{"stock list"}}),
			domain.KindTax:       domain.NewTable([]string{"foo", "bar"}, [][]any{{"1", "2"}}),
		},
		Sources: map[domain.DatasetKind]string{
			domain.KindSales:     "sales.csv",
			domain.KindInventory: "stock.pdf",
		},
	}

	got := New(nil, nil).Run(context.Background(), in)

	wantNotes := []string{
		"inventory: PDF loaded as text blob; structured parsing not implemented.",
		"tax: could not map columns; provide clearer headers or enable AI mapping.",
	}
	if !reflect.DeepEqual(got.Notes, wantNotes) {
		t.Fatalf("notes = %v", got.Notes)
	}

	if got.KPIs.TotalRevenue != 3300 || got.KPIs.TotalExpense != 700 {
		t.Fatalf("totals = %v / %v", got.KPIs.TotalRevenue, got.KPIs.TotalExpense)
	}
	if got.KPIs.AR.Buckets["90+"] != 5000 {
		t.Fatalf("ar buckets = %v", got.KPIs.AR.Buckets)
	}
	if len(got.KPIs.TimelineMonths) != 3 {
		t.Fatalf("timeline = %+v", got.KPIs.TimelineMonths)
	}

	sales := got.Mappings[domain.KindSales]
	if sales.SourceFile != "sales.csv" || sales.Result.Mappings["amount"] != "Net Amount" || len(sales.Preview) != 3 {
		t.Fatalf("sales mapping report = %+v", sales)
	}
	inv := got.Mappings[domain.KindInventory]
	if inv.Result.Notes != "pdf_text_only" || inv.Result.Confidence != 0 || len(inv.Result.Mappings) != 0 {
		t.Fatalf("inventory mapping report = %+v", inv)
	}
	raw, err := json.Marshal(inv)
	if err != nil {
		t.Fatalf("marshal inventory report: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("decode inventory report: %v", err)
	}
	wantFlat := map[string]any{
		"mappings":    map[string]any{},
		"confidence":  0.0,
		"notes":       "pdf_text_only",
		"source_file": "stock.pdf",
	}
	if !reflect.DeepEqual(flat, wantFlat) {
		t.Fatalf("inventory report json = %s", raw)
	}
	raw, err = json.Marshal(sales)
	if err != nil {
		t.Fatalf("marshal sales report: %v", err)
	}
	if !strings.Contains(string(raw), `"mapping_result":{"mappings":`) || !strings.Contains(string(raw), `"original_columns":[`) {
		t.Fatalf("sales report json = %s", raw)
	}
	if _, ok := got.Mappings[domain.KindLoans]; ok {
		t.Fatalf("absent kinds must not appear in mappings")
	}

	if !got.Breakdowns.Revenue.Available || got.Breakdowns.Revenue.ByCustomerTop == nil {
		t.Fatalf("revenue breakdown = %+v", got.Breakdowns.Revenue)
	}
	if !got.Breakdowns.Expenses.Available || got.Breakdowns.Expenses.BySuperCategory[0].Key != "payroll" {
		t.Fatalf("expense breakdown = %+v", got.Breakdowns.Expenses)
	}
	if got.Breakdowns.Tax.Available {
		t.Fatalf("unmapped tax must be unavailable")
	}
	if !got.Benchmarks.Available || got.Forecast.Method != domain.ForecastMethodTrend {
		t.Fatalf("benchmarks/forecast = %+v / %+v", got.Benchmarks, got.Forecast)
	}
	if got.Forecast.Points[0].Month != "2024-04" {
		t.Fatalf("forecast starts at %s", got.Forecast.Points[0].Month)
	}
}

func TestRunUsesOracleOnlyWhenRequested(t *testing.T) {
	oracle := &stubReconciler{result: domain.MappingResult{
		Mappings:   map[string]string{"date": "when", "amount": "how much"},
		Confidence: 0.9,
	}}
	in := Input{
		Datasets: map[domain.DatasetKind]*domain.Table{
			domain.KindSales: domain.NewTable([]string{"when", "how much"}, [][]any{{"2024-01-01", "10"}}),
		},
	}
	e := New(nil, oracle)

	plain := e.Run(context.Background(), in)
	if oracle.calls != 0 || plain.KPIs.TotalRevenue != 0 {
		t.Fatalf("oracle must not run without MapWithAI (calls=%d)", oracle.calls)
	}

	in.MapWithAI = true
	got := e.Run(context.Background(), in)
	if oracle.calls != 1 || got.KPIs.TotalRevenue != 10 {
		t.Fatalf("oracle mapping not applied: calls=%d revenue=%v", oracle.calls, got.KPIs.TotalRevenue)
	}
	if got.Mappings[domain.KindSales].Result.Confidence != 0.9 {
		t.Fatalf("mapping report must carry oracle result")
	}
}
