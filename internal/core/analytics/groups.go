package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

// groupSums accumulates amounts per key.
type groupSums map[string]decimal.Decimal

func (g groupSums) add(key string, amount decimal.Decimal) {
	g[key] = g[key].Add(amount)
}

// ranked orders totals by amount descending with ties broken by key, then
// keeps the first limit entries. limit <= 0 keeps everything.
func (g groupSums) ranked(field string, limit int) []domain.GroupTotal {
	keys := g.keys()
	sort.SliceStable(keys, func(i, j int) bool {
		if c := g[keys[i]].Cmp(g[keys[j]]); c != 0 {
			return c > 0
		}
		return keys[i] < keys[j]
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return g.totals(field, keys)
}

// byKey orders totals by key ascending.
func (g groupSums) byKey(field string) []domain.GroupTotal {
	keys := g.keys()
	sort.Strings(keys)
	return g.totals(field, keys)
}

func (g groupSums) keys() []string {
	keys := make([]string, 0, len(g))
	for key := range g {
		keys = append(keys, key)
	}
	return keys
}

func (g groupSums) totals(field string, keys []string) []domain.GroupTotal {
	out := make([]domain.GroupTotal, 0, len(keys))
	for _, key := range keys {
		out = append(out, domain.GroupTotal{Field: field, Key: key, Amount: g[key].InexactFloat64()})
	}
	return out
}
