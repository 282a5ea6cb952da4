package consol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyByAccountName(t *testing.T) {
	cases := []struct {
		account string
		want    AccountCategory
	}{
		{"Sales Revenue", CategoryRevenue},
		{"Product sales", CategoryRevenue},
		{"COGS", CategoryCOGS},
		{"Cost of Sales", CategoryCOGS},
		{"Office Rent", CategoryOperatingExpense},
		{"Salary Expense", CategoryOperatingExpense},
		{"Cash at Bank", CategoryAsset},
		{"Trade Receivable", CategoryAsset},
		{"Fixed Asset", CategoryAsset},
		{"Trade Payable", CategoryLiability},
		{"Long Term Liability", CategoryLiability},
		{"Share Equity", CategoryEquity},
		{"Suspense", CategoryUnclassified},
		{"", CategoryUnclassified},
	}
	for _, tc := range cases {
		t.Run(tc.account, func(t *testing.T) {
			got := Classify(LedgerTransaction{AccountName: tc.account})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyExplicitCategoryWins(t *testing.T) {
	got := Classify(LedgerTransaction{AccountName: "Sales Revenue", Category: CategoryAsset})
	assert.Equal(t, CategoryAsset, got)
}

func TestClassifyUnknownExplicitCategoryFallsBack(t *testing.T) {
	got := Classify(LedgerTransaction{AccountName: "Trade Payable", Category: AccountCategory("bogus")})
	assert.Equal(t, CategoryLiability, got)
}

func TestIsIncomeStatement(t *testing.T) {
	assert.True(t, IsIncomeStatement(CategoryRevenue))
	assert.True(t, IsIncomeStatement(CategoryCOGS))
	assert.True(t, IsIncomeStatement(CategoryOperatingExpense))
	assert.False(t, IsIncomeStatement(CategoryAsset))
	assert.False(t, IsIncomeStatement(CategoryUnclassified))
}
