package consol

import "strings"

// keyword groups checked in order; first hit wins.
var categoryKeywords = []struct {
	category AccountCategory
	keywords []string
}{
	{CategoryRevenue, []string{"revenue", "sales"}},
	{CategoryCOGS, []string{"cogs", "cost of sales"}},
	{CategoryOperatingExpense, []string{"expense", "salary", "rent"}},
	{CategoryAsset, []string{"asset", "cash", "receivable"}},
	{CategoryLiability, []string{"liability", "payable"}},
	{CategoryEquity, []string{"equity"}},
}

// Classify resolves the statement bucket for a posting. An explicit category
// on the transaction wins; otherwise the account name is matched against
// case-insensitive keywords. Anything unmatched is CategoryUnclassified.
func Classify(t LedgerTransaction) AccountCategory {
	switch t.Category {
	case CategoryRevenue, CategoryCOGS, CategoryOperatingExpense,
		CategoryAsset, CategoryLiability, CategoryEquity:
		return t.Category
	}
	name := strings.ToLower(t.AccountName)
	for _, group := range categoryKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(name, kw) {
				return group.category
			}
		}
	}
	return CategoryUnclassified
}

// IsIncomeStatement reports whether the category belongs to the income
// statement detail map.
func IsIncomeStatement(c AccountCategory) bool {
	switch c {
	case CategoryRevenue, CategoryCOGS, CategoryOperatingExpense:
		return true
	}
	return false
}
