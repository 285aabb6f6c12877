package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/sme-health/internal/core/catalog"
	"github.com/kirillkom/sme-health/internal/core/domain"
)

const (
	previewRows      = 5
	previewCellLimit = 160
)

// BuildMappingPrompt renders the oracle instructions for one dataset.
func BuildMappingPrompt(kind domain.DatasetKind, schema catalog.Schema, table *domain.Table) (string, error) {
	sample, err := marshalIndent(Preview(table, previewRows))
	if err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	required, _ := json.Marshal(nonNil(schema.Required))
	optional, _ := json.Marshal(nonNil(schema.Optional))
	columns, _ := json.Marshal(nonNil(table.Columns))

	var b strings.Builder
	fmt.Fprintf(&b, `You are a data-mapping assistant for SME finance analytics.
Task: Map unknown column names into a canonical schema for dataset kind = %q.

Return ONLY valid JSON in this exact format:
{
  "mappings": { "canonical_field": "actual_column_name", ... },
  "confidence": 0.0,
  "notes": "short"
}

Rules:
- Use the sample rows to infer meanings.
- Only map when you are reasonably sure.
- If multiple columns could match, choose the best and mention ambiguity in notes.
- Do not invent columns that are not present.
- Keep confidence between 0 and 1.

Canonical fields:
Required: %s
Optional: %s

Actual columns:
%s

First 5 rows sample:
%s`, string(kind), required, optional, columns, sample)
	return b.String(), nil
}

// Preview renders the first n rows as text, truncating long cells.
func Preview(table *domain.Table, n int) []map[string]string {
	if table.Empty() {
		return []map[string]string{}
	}
	if n > table.Len() {
		n = table.Len()
	}
	out := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		row := make(map[string]string, len(table.Columns))
		for _, col := range table.Columns {
			row[col] = truncate(cellText(table.Value(i, col)), previewCellLimit)
		}
		out = append(out, row)
	}
	return out
}

func cellText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
