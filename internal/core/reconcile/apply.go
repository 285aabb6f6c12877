package reconcile

import (
	"strings"

	"github.com/kirillkom/sme-health/internal/core/catalog"
	"github.com/kirillkom/sme-health/internal/core/domain"
)

// Apply projects a raw table onto the mapped canonical fields, in schema
// order, carrying rows over one for one. A mapping that matches nothing
// yields a table with no columns and no rows.
func Apply(raw *domain.Table, schema catalog.Schema, result domain.MappingResult) *domain.Table {
	provenance := ""
	if raw != nil {
		provenance = strings.Join(raw.Columns, ", ")
	}

	var fields, sources []string
	for _, field := range schema.Fields() {
		source, ok := result.Mappings[field]
		if !ok || !raw.Has(source) {
			continue
		}
		fields = append(fields, field)
		sources = append(sources, source)
	}
	if len(fields) == 0 {
		out := domain.NewTable(nil, nil)
		out.Provenance = provenance
		return out
	}

	rows := make([][]any, raw.Len())
	for i := range rows {
		row := make([]any, len(sources))
		for j, source := range sources {
			row[j] = raw.Value(i, source)
		}
		rows[i] = row
	}
	out := domain.NewTable(fields, rows)
	out.Provenance = provenance
	return out
}
