package tabular

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

func TestLoadCSV(t *testing.T) {
	body := "\xEF\xBB\xBF Invoice Date , Amount,,Amount\n2024-01-05,\"1,000\",x,1\n\n,,,\n2024-02-03,(200)\n"
	table, err := New().Load(context.Background(), "Sales.CSV", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"Invoice Date", "Amount", "column_3", "Amount.1"}
	if strings.Join(table.Columns, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected columns %v", table.Columns)
	}
	if table.Len() != 2 {
		t.Fatalf("expected blank rows to be skipped, got %d rows", table.Len())
	}
	if table.Value(0, "Amount") != "1,000" {
		t.Fatalf("unexpected amount %v", table.Value(0, "Amount"))
	}
	if table.Value(1, "column_3") != nil || table.Value(1, "Amount.1") != nil {
		t.Fatalf("short rows must be padded with nil")
	}
}

func TestLoadCSVWindows1252(t *testing.T) {
	body := []byte("Vendor,Amount\nCaf\xe9 Ltd,100\n")
	table, err := New().Load(context.Background(), "expenses.csv", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Value(0, "Vendor") != "Café Ltd" {
		t.Fatalf("expected cp1252 decoding, got %q", table.Value(0, "Vendor"))
	}
}

func TestLoadWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]any{"Outstanding", "Due Date"})
	_ = f.SetSheetRow(sheet, "A2", &[]any{5000, "2024-01-01"})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	table, err := New().Load(context.Background(), "ar.xlsx", &buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !table.Has("Outstanding") || !table.Has("Due Date") || table.Len() != 1 {
		t.Fatalf("unexpected table %+v", table)
	}
	if table.Value(0, "Outstanding") != "5000" {
		t.Fatalf("unexpected cell %v", table.Value(0, "Outstanding"))
	}
}

func TestLoadWorkbookTypedDates(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]any{"Date", "Booked", "Amount", "Time"})
	_ = f.SetCellValue(sheet, "A2", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	_ = f.SetCellValue(sheet, "B2", 45296)
	_ = f.SetCellValue(sheet, "C2", 150)
	_ = f.SetCellValue(sheet, "D2", 0.5)

	dayFirst := "dd/mm/yyyy"
	custom, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dayFirst})
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	clock := "h:mm"
	clockStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &clock})
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	_ = f.SetCellStyle(sheet, "B2", "B2", custom)
	_ = f.SetCellStyle(sheet, "C2", "C2", money)
	_ = f.SetCellStyle(sheet, "D2", "D2", clockStyle)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	table, err := New().Load(context.Background(), "sales.xlsx", &buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, ok := table.Value(0, "Date").(time.Time)
	if !ok || !got.Equal(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Date cell = %#v, want 2024-01-20", table.Value(0, "Date"))
	}
	booked, ok := table.Value(0, "Booked").(time.Time)
	if !ok || !booked.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Booked cell = %#v, want 2024-01-05", table.Value(0, "Booked"))
	}
	if table.Value(0, "Amount") != "150" {
		t.Fatalf("Amount cell = %#v, want raw 150", table.Value(0, "Amount"))
	}
	if table.Value(0, "Time") != "0.5" {
		t.Fatalf("Time cell = %#v, want raw 0.5", table.Value(0, "Time"))
	}
}

func TestDateFormatCode(t *testing.T) {
	cases := map[string]bool{
		"dd/mm/yyyy":          true,
		"mmm-yy":              true,
		"[$-409]d-mmm-yy;@":   true,
		"h:mm":                false,
		"mm:ss":               false,
		"#,##0.00":            false,
		`0.00" days"`:         false,
		"[Red]#,##0;[Blue]-0": false,
	}
	for code, want := range cases {
		if got := dateFormatCode(code); got != want {
			t.Fatalf("dateFormatCode(%q)=%v, want %v", code, got, want)
		}
	}
}

func TestSupports(t *testing.T) {
	l := New()
	for _, name := range []string{"a.csv", "B.XLSX", "c.xlsm", "d.pdf"} {
		if !l.Supports(name) {
			t.Fatalf("expected %s to be supported", name)
		}
	}
	for _, name := range []string{"a.xls", "b.json", "noext"} {
		if l.Supports(name) {
			t.Fatalf("expected %s to be rejected", name)
		}
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := New().Load(context.Background(), "ledger.json", strings.NewReader("{}"))
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestLoadRejectsBrokenPDF(t *testing.T) {
	_, err := New().Load(context.Background(), "stock.pdf", strings.NewReader("not a pdf"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
