// Package cleaning coerces messy spreadsheet cells into numbers and dates.
// Every function reports failure through its second return value or a nil
// pointer and never panics on malformed input.
package cleaning

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var amountNoise = regexp.MustCompile(`[^\d.\-()]`)

// ParseAmount converts a currency-like cell into a float. Thousands
// separators and currency symbols are dropped and "(x)" reads as -x.
// Booleans and timestamps are not amounts.
func ParseAmount(v any) (float64, bool) {
	d, ok := ParseDecimal(v)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// ParseDecimal is ParseAmount without the float conversion. Sums of money
// columns accumulate in decimal so that totals and bucket splits agree to
// the cent.
func ParseDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil, bool, time.Time:
		return decimal.Zero, false
	case decimal.Decimal:
		return n, true
	case float64:
		return finiteDecimal(n)
	case float32:
		return finiteDecimal(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(n)), 0), true
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case string:
		return parseAmountString(n)
	case []byte:
		return parseAmountString(string(n))
	case fmt.Stringer:
		return parseAmountString(n.String())
	default:
		return parseAmountString(fmt.Sprint(n))
	}
}

func parseAmountString(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = amountNoise.ReplaceAllString(s, "")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && len(s) >= 2 {
		s = "-" + s[1:len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func finiteDecimal(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// Year-first layouts are unambiguous and are tried before anything else.
var isoLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"20060102",
	"2006-01",
}

var dayFirstLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2-1-2006 15:04:05",
	"2/1/06",
	"2-1-06",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"2 Jan 06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"Mon, 2 Jan 2006",
	"Jan 2006",
	"January 2006",
	"Jan-2006",
	"Jan-06",
}

var monthFirstLayouts = []string{
	"1/2/2006",
	"1-2-2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/06",
}

// ParseDate reads a date cell. Year-first text is read as year-month-day;
// ambiguous numeric dates prefer day-first and fall back to month-first.
func ParseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if d.IsZero() {
			return time.Time{}, false
		}
		return d, true
	case *time.Time:
		if d == nil || d.IsZero() {
			return time.Time{}, false
		}
		return *d, true
	case string:
		return parseDateString(d)
	case []byte:
		return parseDateString(string(d))
	default:
		return time.Time{}, false
	}
}

func parseDateString(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, group := range [][]string{isoLayouts, dayFirstLayouts, monthFirstLayouts} {
		for _, layout := range group {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// MonthKey formats t as "YYYY-MM".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// DaysBetween counts whole days from ref to asOf using calendar dates only.
func DaysBetween(asOf, ref time.Time) int {
	a := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	r := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Floor(a.Sub(r).Hours() / 24))
}

// SafeDiv returns a/b, or nil when b is zero or NaN.
func SafeDiv(a, b float64) *float64 {
	if b == 0 || math.IsNaN(b) || math.IsNaN(a) {
		return nil
	}
	v := a / b
	return &v
}

// Clip01 clamps x into [0, 1]. A nil x stays nil.
func Clip01(x *float64) *float64 {
	if x == nil {
		return nil
	}
	v := math.Max(0, math.Min(1, *x))
	return &v
}

// Text renders a cell as trimmed text. ok is false for nil and blank cells.
func Text(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case time.Time:
		s = t.Format("2006-01-02")
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}
