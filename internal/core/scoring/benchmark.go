package scoring

import (
	"github.com/kirillkom/sme-health/internal/core/catalog"
	"github.com/kirillkom/sme-health/internal/core/domain"
)

// Benchmark compares margin, DSO and DPO against industry medians. Gaps
// stay nil where the company's own KPI is unavailable.
func Benchmark(k domain.KPISet, industry string, cat *catalog.Catalog) domain.Benchmark {
	if cat == nil {
		cat = catalog.Default()
	}
	ref, ok := cat.Benchmark(industry)
	if !ok {
		return domain.Benchmark{Industry: industry}
	}
	return domain.Benchmark{
		Industry:   industry,
		Available:  true,
		Benchmarks: ref,
		Your: domain.BenchmarkPosition{
			OperatingMargin: k.OperatingMargin,
			DSODays:         k.DSODays,
			DPODays:         k.DPODays,
		},
		Gaps: domain.BenchmarkGaps{
			OpMarginGap: gap(k.OperatingMargin, ref.OpMargin),
			DSOGapDays:  gap(k.DSODays, ref.DSO),
			DPOGapDays:  gap(k.DPODays, ref.DPO),
		},
	}
}

func gap(yours *float64, median float64) *float64 {
	if yours == nil {
		return nil
	}
	return domain.Float(*yours - median)
}
