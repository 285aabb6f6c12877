package tabular

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

// loadWorkbook reads the first sheet only. Cells are read raw so that
// date-formatted serials come back as time.Time instead of whatever the
// display format renders.
func loadWorkbook(r io.Reader) (*domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open workbook", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return domain.NewTable(nil, nil), nil
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	dates := newDateCells(f, sheet)
	return buildTableWith(rows, dates.convert), nil
}

// dateCells resolves which cells of a sheet carry a date number format.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	byStyle  map[int]bool
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	d := &dateCells{f: f, sheet: sheet, byStyle: map[int]bool{0: false}}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// convert returns a time.Time for numeric cells styled as dates and the
// trimmed text otherwise. row and col are zero based sheet positions.
func (d *dateCells) convert(row, col int, cell string) any {
	serial, err := strconv.ParseFloat(cell, 64)
	if err != nil || serial <= 0 || !d.isDate(row, col) {
		return cell
	}
	ts, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return cell
	}
	return ts.UTC()
}

func (d *dateCells) isDate(row, col int) bool {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return false
	}
	styleID, err := d.f.GetCellStyle(d.sheet, name)
	if err != nil {
		return false
	}
	if known, ok := d.byStyle[styleID]; ok {
		return known
	}
	isDate := false
	if style, err := d.f.GetStyle(styleID); err == nil && style != nil {
		isDate = dateNumFmt(style.NumFmt)
		if style.CustomNumFmt != nil {
			isDate = dateFormatCode(*style.CustomNumFmt)
		}
	}
	d.byStyle[styleID] = isDate
	return isDate
}

// dateNumFmt reports whether a built-in number format id renders a
// calendar date, including the East Asian locale variants. Time-only
// formats such as h:mm stay numeric.
func dateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 17, id == 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 50 && id <= 58:
		return true
	default:
		return false
	}
}

// dateFormatCode looks for day, month or year tokens outside quoted
// literals, escapes and bracketed sections such as colours or locales.
func dateFormatCode(code string) bool {
	section, _, _ := strings.Cut(code, ";")
	inQuote, inBracket := false, false
	for i := 0; i < len(section); i++ {
		ch := section[i]
		switch {
		case inQuote:
			inQuote = ch != '"'
		case inBracket:
			inBracket = ch != ']'
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		case ch == 'd' || ch == 'D' || ch == 'y' || ch == 'Y':
			return true
		case ch == 'm' || ch == 'M':
			if !minutesContext(section, i) {
				return true
			}
		}
	}
	return false
}

// minutesContext reports whether the m at index i follows an hour or
// precedes a seconds token, in which case it means minutes.
func minutesContext(section string, i int) bool {
	j := i - 1
	for j >= 0 && strings.ContainsRune(" :mM", rune(section[j])) {
		j--
	}
	if j >= 0 && (section[j] == 'h' || section[j] == 'H') {
		return true
	}
	k := i + 1
	for k < len(section) && strings.ContainsRune(" :mM", rune(section[k])) {
		k++
	}
	return k < len(section) && (section[k] == 's' || section[k] == 'S')
}
