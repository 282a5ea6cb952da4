package consol

import "github.com/shopspring/decimal"

// NewEntityFinancials returns a zero-valued summary with initialised
// detail maps.
func NewEntityFinancials() EntityFinancials {
	return EntityFinancials{
		IncomeStatement: make(map[string]decimal.Decimal),
		BalanceSheet:    make(map[string]decimal.Decimal),
	}
}

// Summarize filters the flat transaction list to one entity and accumulates
// a categorised financial summary with exact decimal arithmetic. Pure
// function: no side effects, unclassified postings are skipped, an entity
// with no transactions yields all zeros.
func Summarize(entityID string, txns []LedgerTransaction) EntityFinancials {
	fin := NewEntityFinancials()
	for _, t := range txns {
		if t.EntityID != entityID {
			continue
		}
		category := Classify(t)
		switch category {
		case CategoryRevenue:
			fin.Revenue = fin.Revenue.Add(t.Amount)
		case CategoryCOGS:
			fin.COGS = fin.COGS.Add(t.Amount)
		case CategoryOperatingExpense:
			fin.OperatingExpenses = fin.OperatingExpenses.Add(t.Amount)
		case CategoryAsset:
			fin.TotalAssets = fin.TotalAssets.Add(t.Amount)
		case CategoryLiability:
			fin.TotalLiabilities = fin.TotalLiabilities.Add(t.Amount)
		case CategoryEquity:
			fin.Equity = fin.Equity.Add(t.Amount)
		case CategoryUnclassified:
			continue
		default:
			continue
		}
		label := t.AccountName
		if label == "" {
			label = t.AccountID
		}
		if IsIncomeStatement(category) {
			fin.IncomeStatement[label] = fin.IncomeStatement[label].Add(t.Amount)
		} else {
			fin.BalanceSheet[label] = fin.BalanceSheet[label].Add(t.Amount)
		}
	}
	fin.Recompute()
	return fin
}

// Recompute derives gross profit, EBITDA and net income from the primary
// buckets. COGS and operating expenses are signed-negative, so the derived
// lines are plain sums. No income-statement lines below EBITDA are modelled.
func (f *EntityFinancials) Recompute() {
	f.GrossProfit = f.Revenue.Add(f.COGS)
	f.EBITDA = f.GrossProfit.Add(f.OperatingExpenses)
	f.NetIncome = f.EBITDA
}
