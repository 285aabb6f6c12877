package report

import "strconv"

func pct(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v*100, 'f', 1, 64) + "%"
}

func days(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', 0, 64)
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
