package domain

import "strings"

const (
	// TextBlobColumn is the only column of a table extracted from a non-tabular document.
	TextBlobColumn = "pdf_text"
)

// Table is a raw or reconciled dataset. Cells hold string, float64, int,
// time.Time or nil values; the column set is explicit and queryable.
type Table struct {
	Columns []string
	Rows    [][]any

	// Provenance holds the comma-joined header list of the raw table a
	// reconciled table was built from.
	Provenance string

	index map[string]int
}

// NewTable trims column names and indexes them. Rows shorter than the
// header are treated as having nil trailing cells.
func NewTable(columns []string, rows [][]any) *Table {
	trimmed := make([]string, len(columns))
	for i, col := range columns {
		trimmed[i] = strings.TrimSpace(col)
	}
	t := &Table{Columns: trimmed, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		if _, exists := t.index[col]; !exists {
			t.index[col] = i
		}
	}
}

func (t *Table) Has(column string) bool {
	if t == nil {
		return false
	}
	if t.index == nil {
		t.reindex()
	}
	_, ok := t.index[column]
	return ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table carries no usable cells.
func (t *Table) Empty() bool {
	return t == nil || len(t.Columns) == 0 || len(t.Rows) == 0
}

// IsTextOnly reports whether the table is a raw text blob from a document.
func (t *Table) IsTextOnly() bool {
	return t != nil && len(t.Columns) == 1 && t.Columns[0] == TextBlobColumn
}

// Value returns the cell at row/column, or nil when either is absent.
func (t *Table) Value(row int, column string) any {
	if t == nil || row < 0 || row >= len(t.Rows) {
		return nil
	}
	if t.index == nil {
		t.reindex()
	}
	idx, ok := t.index[column]
	if !ok || idx >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][idx]
}

// Column returns a copy of one column's cells.
func (t *Table) Column(column string) []any {
	if !t.Has(column) {
		return nil
	}
	out := make([]any, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Value(i, column)
	}
	return out
}
