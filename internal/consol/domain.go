package consol

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountCategory classifies a ledger account into one statement bucket.
// Unclassified postings are excluded from every summary total.
type AccountCategory string

// Account categories recognised by the summarizer.
const (
	CategoryRevenue          AccountCategory = "revenue"
	CategoryCOGS             AccountCategory = "cogs"
	CategoryOperatingExpense AccountCategory = "operating_expense"
	CategoryAsset            AccountCategory = "asset"
	CategoryLiability        AccountCategory = "liability"
	CategoryEquity           AccountCategory = "equity"
	CategoryUnclassified     AccountCategory = "unclassified"
)

// Basis tags a posting as actual, budget or forecast data.
type Basis string

// Posting bases.
const (
	BasisActual   Basis = "actual"
	BasisBudget   Basis = "budget"
	BasisForecast Basis = "forecast"
)

// Method selects how an entity folds into the group totals.
type Method string

// Consolidation methods.
const (
	MethodFull          Method = "full"
	MethodProportionate Method = "proportionate"
	MethodEquity        Method = "equity"
)

// LedgerTransaction is one posted financial line. Produced by the ingestion
// layer and consumed read-only here.
type LedgerTransaction struct {
	EntityID    string          `json:"entity_id"`
	AccountID   string          `json:"account_id"`
	AccountName string          `json:"account_name"`
	Category    AccountCategory `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Currency    string          `json:"currency"`
	Basis       Basis           `json:"basis"`
}

// EntityRecord is the flat entity row the hierarchy is assembled from.
// An empty ParentID marks the group root.
type EntityRecord struct {
	ID           string
	Name         string
	ParentID     string
	OwnershipPct decimal.Decimal
	Method       Method
}

// EntityNode is one node of the ownership tree. OwnershipPct is the share
// held by the immediate parent, not the cumulative group share.
type EntityNode struct {
	ID           string
	Name         string
	OwnershipPct decimal.Decimal
	Method       Method
	Children     []*EntityNode
}

// EntityFinancials is the categorised summary for one entity or the group.
// COGS and operating expenses are carried signed-negative, so
// GrossProfit = Revenue + COGS and EBITDA = GrossProfit + OperatingExpenses.
type EntityFinancials struct {
	Revenue           decimal.Decimal `json:"revenue"`
	COGS              decimal.Decimal `json:"cogs"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	OperatingExpenses decimal.Decimal `json:"operating_expenses"`
	EBITDA            decimal.Decimal `json:"ebitda"`
	NetIncome         decimal.Decimal `json:"net_income"`
	TotalAssets       decimal.Decimal `json:"total_assets"`
	TotalLiabilities  decimal.Decimal `json:"total_liabilities"`
	Equity            decimal.Decimal `json:"equity"`

	IncomeStatement map[string]decimal.Decimal `json:"income_statement"`
	BalanceSheet    map[string]decimal.Decimal `json:"balance_sheet"`
}

// Elimination is one journal-style adjustment removing an intercompany
// balance from the group figures.
type Elimination struct {
	ID                  string          `json:"id"`
	Type                string          `json:"type"`
	DebitAccount        string          `json:"debit_account"`
	CreditAccount       string          `json:"credit_account"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description"`
	EntityA             string          `json:"entity_a"`
	EntityB             string          `json:"entity_b"`
	AffectsIncomeStmt   bool            `json:"affects_income_statement"`
	AffectsBalanceSheet bool            `json:"affects_balance_sheet"`
}

// MatchMethod names the heuristic that produced an intercompany candidate.
type MatchMethod string

// Match methods.
const (
	MatchByAmount    MatchMethod = "amount"
	MatchByReference MatchMethod = "reference"
)

// IntercompanyTransaction is an inferred pairing of two offsetting postings
// across entities. Ephemeral: generated by the matcher and consumed by the
// engine within the same run.
type IntercompanyTransaction struct {
	SourceEntity  string          `json:"source_entity"`
	TargetEntity  string          `json:"target_entity"`
	Type          string          `json:"type"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	DebitAccount  string          `json:"debit_account"`
	CreditAccount string          `json:"credit_account"`
	Confidence    float64         `json:"confidence"`
	Method        MatchMethod     `json:"method"`
	Status        string          `json:"status"`
}

// MinorityShare is the non-controlling stake in one partially owned
// full-consolidation subsidiary.
type MinorityShare struct {
	EntityID       string          `json:"entity_id"`
	EntityName     string          `json:"entity_name"`
	MinorityPct    decimal.Decimal `json:"minority_pct"`
	NetIncome      decimal.Decimal `json:"net_income"`
	Equity         decimal.Decimal `json:"equity"`
	MinorityIncome decimal.Decimal `json:"minority_income"`
	MinorityEquity decimal.Decimal `json:"minority_equity"`
}

// MinorityInterest aggregates non-controlling interest across the group.
type MinorityInterest struct {
	TotalIncome decimal.Decimal `json:"total_income"`
	TotalEquity decimal.Decimal `json:"total_equity"`
	Breakdown   []MinorityShare `json:"breakdown"`
}

// ValidationResult reports invariant checks over the consolidated figures.
// Heuristic misses never fail validation; warnings flag suspicious totals.
type ValidationResult struct {
	Passed   bool     `json:"passed"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ConsolidatedResult is the output envelope of one consolidation run.
type ConsolidatedResult struct {
	RunID            string                      `json:"run_id"`
	Period           string                      `json:"period"`
	TargetCurrency   string                      `json:"target_currency,omitempty"`
	Group            EntityFinancials            `json:"group"`
	Entities         map[string]EntityFinancials `json:"entities"`
	Eliminations     []Elimination               `json:"eliminations"`
	MinorityInterest *MinorityInterest           `json:"minority_interest,omitempty"`
	Validation       ValidationResult            `json:"validation"`
	Reconciliation   map[string]any              `json:"reconciliation"`
	AuditTrailID     string                      `json:"audit_trail_id"`
}

// Scope configures one consolidation run.
type Scope struct {
	Period                    string
	DefaultMethod             Method
	EliminateIntercompany     bool
	CalculateMinorityInterest bool
	TranslateCurrency         bool
	TargetCurrency            string
}

// Stage identifies a coarse milestone reported through the progress callback.
type Stage string

// Run stages.
const (
	StageAggregation      Stage = "aggregation"
	StageElimination      Stage = "elimination"
	StageMinorityInterest Stage = "minority_interest"
	StageComplete         Stage = "complete"
)

// ProgressFunc observes run milestones. It carries no control-flow
// significance; a nil or panicking callback must not change the result.
type ProgressFunc func(stage Stage)

// MatchDetector finds offsetting intercompany pairs in a transaction set.
// Implemented by the ic package.
type MatchDetector interface {
	Detect(txns []LedgerTransaction) []IntercompanyTransaction
}
