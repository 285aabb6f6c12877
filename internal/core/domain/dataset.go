package domain

import "strings"

// DatasetKind selects the canonical schema an uploaded table is reconciled onto.
type DatasetKind string

const (
	KindSales     DatasetKind = "sales"
	KindExpenses  DatasetKind = "expenses"
	KindAR        DatasetKind = "ar"
	KindAP        DatasetKind = "ap"
	KindLoans     DatasetKind = "loans"
	KindInventory DatasetKind = "inventory"
	KindTax       DatasetKind = "tax"
)

// DatasetKinds lists every kind in processing order.
var DatasetKinds = []DatasetKind{
	KindSales,
	KindExpenses,
	KindAR,
	KindAP,
	KindLoans,
	KindInventory,
	KindTax,
}

func ParseDatasetKind(raw string) (DatasetKind, bool) {
	candidate := DatasetKind(strings.ToLower(strings.TrimSpace(raw)))
	for _, kind := range DatasetKinds {
		if kind == candidate {
			return kind, true
		}
	}
	return "", false
}
