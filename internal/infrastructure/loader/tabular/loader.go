// Package tabular turns uploaded CSV, Excel and PDF files into raw tables.
package tabular

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

type Loader struct{}

func New() *Loader {
	return &Loader{}
}

// Supports reports whether the extension of filename has a reader.
func (l *Loader) Supports(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx", ".xlsm", ".pdf":
		return true
	default:
		return false
	}
}

// Load dispatches on the file extension. Unknown extensions fail with
// domain.ErrUnsupportedFormat.
func (l *Loader) Load(ctx context.Context, filename string, body io.Reader) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	switch ext {
	case ".csv":
		return loadCSV(raw)
	case ".xlsx", ".xlsm":
		return loadWorkbook(bytes.NewReader(raw))
	case ".pdf":
		return loadPDF(raw)
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "load table", fmt.Errorf("unsupported file type %q", ext))
	}
}

// buildTable treats the first non-blank record as the header row.
func buildTable(records [][]string) *domain.Table {
	return buildTableWith(records, func(_, _ int, cell string) any { return cell })
}

// buildTableWith is buildTable with a per-cell conversion. convert gets the
// zero based record and field index and the trimmed, non-empty cell text.
func buildTableWith(records [][]string, convert func(row, col int, cell string) any) *domain.Table {
	var header []string
	rows := make([][]any, 0, len(records))
	for r, record := range records {
		if blankRecord(record) {
			continue
		}
		if header == nil {
			header = headerNames(record)
			continue
		}
		row := make([]any, len(header))
		for i := range header {
			if i >= len(record) {
				break
			}
			if cell := strings.TrimSpace(record[i]); cell != "" {
				row[i] = convert(r, i, cell)
			}
		}
		rows = append(rows, row)
	}
	return domain.NewTable(header, rows)
}

func headerNames(record []string) []string {
	names := make([]string, len(record))
	seen := make(map[string]int, len(record))
	for i, cell := range record {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n)
		} else {
			seen[name] = 1
		}
		names[i] = name
	}
	return names
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
