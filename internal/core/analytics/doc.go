// Package analytics aggregates reconciled datasets into monthly series,
// aging summaries, breakdowns, the KPI set and a trend forecast.
//
// Every builder accepts a nil or partially mapped table and degrades to its
// documented zero value. Cells that fail to parse drop the row from the
// aggregate that needed them and nothing else.
package analytics
