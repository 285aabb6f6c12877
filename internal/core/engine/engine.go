// Package engine runs one assessment end to end over already-loaded tables.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/sme-health/internal/core/analytics"
	"github.com/kirillkom/sme-health/internal/core/catalog"
	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/core/ports"
	"github.com/kirillkom/sme-health/internal/core/reconcile"
	"github.com/kirillkom/sme-health/internal/core/scoring"
)

const textOnlyMappingNotes = "pdf_text_only"

// Input is an immutable snapshot of one assessment's uploads.
type Input struct {
	Company  string
	Industry string
	// Datasets holds raw tables by kind. Absent kinds are simply missing.
	Datasets map[domain.DatasetKind]*domain.Table
	// Sources names the file each dataset came from.
	Sources   map[domain.DatasetKind]string
	AsOf      time.Time
	Horizon   int
	MapWithAI bool
}

type Engine struct {
	catalog   *catalog.Catalog
	heuristic ports.ColumnReconciler
	oracle    ports.ColumnReconciler
}

// New builds an engine. oracle may be nil, in which case AI mapping
// requests use the heuristic.
func New(cat *catalog.Catalog, oracle ports.ColumnReconciler) *Engine {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Engine{
		catalog:   cat,
		heuristic: reconcile.NewHeuristic(cat),
		oracle:    oracle,
	}
}

// Run computes the assessment. It does not fail on bad data; problems are
// reported through Notes and unavailable metrics.
func (e *Engine) Run(ctx context.Context, in Input) *domain.Assessment {
	notes := []string{}
	mappings := make(map[domain.DatasetKind]domain.MappingReport)
	mapped := make(map[domain.DatasetKind]*domain.Table)

	for _, kind := range domain.DatasetKinds {
		raw, ok := in.Datasets[kind]
		if !ok || raw == nil {
			continue
		}
		table, report, note := e.reconcile(ctx, kind, raw, in.Sources[kind], in.MapWithAI)
		mapped[kind] = table
		mappings[kind] = report
		if note != "" {
			notes = append(notes, note)
		}
	}

	sales := mapped[domain.KindSales]
	expenses := mapped[domain.KindExpenses]
	if sales.Empty() {
		notes = append(notes, "Sales missing/empty: revenue analytics limited.")
	}
	if expenses.Empty() {
		notes = append(notes, "Expenses missing/empty: cost analytics limited.")
	}

	revenue := analytics.MonthlySeries(sales)
	expense := analytics.MonthlySeries(expenses)
	kpis := analytics.ComposeKPIs(analytics.KPIInputs{
		Revenue:   revenue,
		Expense:   expense,
		AR:        analytics.ARAging(mapped[domain.KindAR], in.AsOf),
		AP:        analytics.APAging(mapped[domain.KindAP], in.AsOf),
		Loans:     analytics.Loans(mapped[domain.KindLoans]),
		Inventory: analytics.Inventory(mapped[domain.KindInventory], in.AsOf),
	})

	return &domain.Assessment{
		Company:         in.Company,
		Industry:        in.Industry,
		KPIs:            kpis,
		Scores:          scoring.Score(kpis),
		Risks:           scoring.Risks(kpis),
		Recommendations: scoring.Recommend(kpis),
		Benchmarks:      scoring.Benchmark(kpis, in.Industry, e.catalog),
		Forecast:        analytics.Forecast(revenue, expense, in.Horizon),
		Notes:           notes,
		Mappings:        mappings,
		Breakdowns: domain.Breakdowns{
			Revenue:  analytics.Revenue(sales),
			Expenses: analytics.Expenses(expenses, e.catalog),
			Tax:      analytics.Tax(mapped[domain.KindTax]),
		},
	}
}

func (e *Engine) reconcile(
	ctx context.Context,
	kind domain.DatasetKind,
	raw *domain.Table,
	source string,
	useOracle bool,
) (*domain.Table, domain.MappingReport, string) {
	if raw.IsTextOnly() {
		report := domain.MappingReport{
			SourceFile: source,
			Result: domain.MappingResult{
				Mappings: map[string]string{},
				Notes:    textOnlyMappingNotes,
			},
			TextOnly: true,
		}
		return raw, report, fmt.Sprintf("%s: PDF loaded as text blob; structured parsing not implemented.", kind)
	}

	reconciler := e.heuristic
	if useOracle && e.oracle != nil {
		reconciler = e.oracle
	}
	result := reconciler.Reconcile(ctx, kind, raw)
	if result.Mappings == nil {
		result.Mappings = map[string]string{}
	}

	report := domain.MappingReport{
		SourceFile:      source,
		OriginalColumns: nonNil(raw.Columns),
		Preview:         reconcile.Preview(raw, 5),
		Result:          result,
	}
	table := reconcile.Apply(raw, e.catalog.Schema(kind), result)

	note := ""
	if table.Empty() {
		note = fmt.Sprintf("%s: could not map columns; provide clearer headers or enable AI mapping.", kind)
	}
	return table, report, note
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
