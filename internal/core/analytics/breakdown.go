package analytics

import (
	"github.com/kirillkom/sme-health/internal/core/catalog"
	"github.com/kirillkom/sme-health/internal/core/cleaning"
	"github.com/kirillkom/sme-health/internal/core/domain"
)

const breakdownTop = 12

// Expenses groups spend by category and by keyword super-category.
func Expenses(t *domain.Table, cat *catalog.Catalog) domain.ExpenseBreakdown {
	if t.Empty() || !t.Has("amount") {
		return domain.ExpenseBreakdown{}
	}
	if cat == nil {
		cat = catalog.Default()
	}

	byCategory := groupSums{}
	bySuper := groupSums{}
	for i := 0; i < t.Len(); i++ {
		amount, ok := cleaning.ParseDecimal(t.Value(i, "amount"))
		if !ok {
			continue
		}
		category, ok := cleaning.Text(t.Value(i, "category"))
		if !ok {
			category = catalog.OtherSuperCategory
		}
		byCategory.add(category, amount)
		bySuper.add(cat.SuperCategory(category), amount)
	}
	return domain.ExpenseBreakdown{
		Available:       true,
		ByCategoryTop:   byCategory.ranked("category", breakdownTop),
		BySuperCategory: bySuper.ranked("super_category", 0),
	}
}

// Revenue groups sales by whichever of customer, status, product and
// channel were mapped. Rows with a blank group key are left out of that
// grouping only.
func Revenue(t *domain.Table) domain.RevenueBreakdown {
	if t.Empty() || !t.Has("amount") {
		return domain.RevenueBreakdown{}
	}

	out := domain.RevenueBreakdown{Available: true}
	group := func(field string, limit int) []domain.GroupTotal {
		if !t.Has(field) {
			return nil
		}
		sums := groupSums{}
		for i := 0; i < t.Len(); i++ {
			amount, ok := cleaning.ParseDecimal(t.Value(i, "amount"))
			if !ok {
				continue
			}
			if key, ok := cleaning.Text(t.Value(i, field)); ok {
				sums.add(key, amount)
			}
		}
		return sums.ranked(field, limit)
	}
	out.ByCustomerTop = group("customer", breakdownTop)
	out.ByStatus = group("status", 0)
	out.ByProductTop = group("product", breakdownTop)
	out.ByChannel = group("channel", 0)
	return out
}
