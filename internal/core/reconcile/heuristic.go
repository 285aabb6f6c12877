// Package reconcile maps arbitrary dataset headers onto canonical fields.
package reconcile

import (
	"context"
	"strings"

	"github.com/kirillkom/sme-health/internal/core/catalog"
	"github.com/kirillkom/sme-health/internal/core/domain"
)

const (
	HeuristicConfidence = 0.25
	HeuristicNotes      = "fallback_fuzzy"
)

// Heuristic maps headers by lower-case keyword containment.
type Heuristic struct {
	catalog *catalog.Catalog
}

func NewHeuristic(cat *catalog.Catalog) *Heuristic {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Heuristic{catalog: cat}
}

func (h *Heuristic) Reconcile(_ context.Context, kind domain.DatasetKind, table *domain.Table) domain.MappingResult {
	var columns []string
	if table != nil {
		columns = table.Columns
	}

	mappings := make(map[string]string)
	for _, field := range h.catalog.Schema(kind).Fields() {
		hints := h.catalog.Hints(field)
		if len(hints) == 0 {
			continue
		}
		if pick, ok := FuzzyPick(columns, hints); ok {
			mappings[field] = pick
		}
	}
	return domain.MappingResult{
		Mappings:   mappings,
		Confidence: HeuristicConfidence,
		Notes:      HeuristicNotes,
	}
}

// FuzzyPick returns the first column containing the earliest keyword.
// Keywords are tried in order across every column before moving on.
func FuzzyPick(columns []string, keywords []string) (string, bool) {
	lowered := make([]string, len(columns))
	for i, col := range columns {
		lowered[i] = strings.ToLower(col)
	}
	for _, kw := range keywords {
		needle := strings.ToLower(kw)
		for i, col := range lowered {
			if strings.Contains(col, needle) {
				return columns[i], true
			}
		}
	}
	return "", false
}
