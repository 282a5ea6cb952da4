package consol

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// balanceTolerance is the largest assets vs liabilities+equity gap that the
// validation step tolerates before warning.
var balanceTolerance = decimal.RequireFromString("0.01")

// Engine computes a consolidated financial statement from raw ledger data.
// Pure synchronous computation: no I/O, deterministic for identical input.
type Engine struct {
	matcher MatchDetector
	logger  *slog.Logger
	newID   func() string
}

// NewEngine wires the engine. The matcher may be nil when intercompany
// elimination is never requested.
func NewEngine(matcher MatchDetector, logger *slog.Logger) *Engine {
	return &Engine{
		matcher: matcher,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// Run consolidates the transaction set over the ownership tree according to
// the scope. Heuristic misses never fail the run; only malformed input does.
func (e *Engine) Run(scope Scope, txns []LedgerTransaction, root *EntityNode, onProgress ProgressFunc) (*ConsolidatedResult, error) {
	if e == nil {
		return nil, fmt.Errorf("consol engine not initialised")
	}
	if root == nil {
		return nil, fmt.Errorf("consol: hierarchy root is required")
	}

	result := &ConsolidatedResult{
		RunID:          e.newID(),
		Period:         scope.Period,
		Group:          NewEntityFinancials(),
		Entities:       make(map[string]EntityFinancials),
		Eliminations:   make([]Elimination, 0),
		Reconciliation: make(map[string]any),
		AuditTrailID:   e.newID(),
	}
	if scope.TranslateCurrency {
		result.TargetCurrency = scope.TargetCurrency
	}

	notify(onProgress, StageAggregation)
	minority := e.aggregate(scope, txns, root, result)

	result.Group.Recompute()

	if scope.EliminateIntercompany && e.matcher != nil {
		notify(onProgress, StageElimination)
		e.eliminate(txns, result)
		result.Group.Recompute()
	}

	if minority != nil {
		notify(onProgress, StageMinorityInterest)
		result.Group.NetIncome = result.Group.NetIncome.Sub(minority.TotalIncome)
		result.MinorityInterest = minority
	}

	result.Validation = validate(result.Group)
	notify(onProgress, StageComplete)

	e.log().Debug("consolidation run complete",
		slog.String("run_id", result.RunID),
		slog.String("period", scope.Period),
		slog.Int("entities", len(result.Entities)),
		slog.Int("eliminations", len(result.Eliminations)))
	return result, nil
}

// aggregate walks the tree pre-order with an explicit stack, summarizes each
// node and folds its figures into the group totals per its method. Returns
// accumulated minority interest, or nil when none applies.
func (e *Engine) aggregate(scope Scope, txns []LedgerTransaction, root *EntityNode, result *ConsolidatedResult) *MinorityInterest {
	var minority *MinorityInterest

	stack := []*EntityNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}

		fin := Summarize(node.ID, txns)
		result.Entities[node.ID] = fin

		ownership := node.OwnershipPct
		if ownership.IsZero() && node == root {
			ownership = hundred
		}
		fraction := ownership.Div(hundred)

		switch resolveMethod(node.Method, scope.DefaultMethod) {
		case MethodProportionate:
			addScaled(&result.Group, fin, fraction)
		case MethodEquity:
			share := fraction.Mul(fin.NetIncome)
			investment := fraction.Mul(fin.Equity)
			addDetail(result.Group.IncomeStatement, "Share of associate income", share)
			addDetail(result.Group.BalanceSheet, "Investment in associates", investment)
			result.Group.TotalAssets = result.Group.TotalAssets.Add(investment)
			result.Group.Equity = result.Group.Equity.Add(investment)
		default: // full
			addScaled(&result.Group, fin, decimal.NewFromInt(1))
			if scope.CalculateMinorityInterest && node != root && ownership.LessThan(hundred) {
				minorityPct := hundred.Sub(ownership)
				minorityFraction := minorityPct.Div(hundred)
				share := MinorityShare{
					EntityID:       node.ID,
					EntityName:     node.Name,
					MinorityPct:    minorityPct,
					NetIncome:      fin.NetIncome,
					Equity:         fin.Equity,
					MinorityIncome: minorityFraction.Mul(fin.NetIncome),
					MinorityEquity: minorityFraction.Mul(fin.Equity),
				}
				if minority == nil {
					minority = &MinorityInterest{}
				}
				minority.TotalIncome = minority.TotalIncome.Add(share.MinorityIncome)
				minority.TotalEquity = minority.TotalEquity.Add(share.MinorityEquity)
				minority.Breakdown = append(minority.Breakdown, share)
			}
		}
	}
	return minority
}

// eliminate runs the matcher once over the full transaction set and nets
// every accepted intercompany pair out of group revenue and COGS. A match
// larger than the remaining group revenue is skipped, not an error.
func (e *Engine) eliminate(txns []LedgerTransaction, result *ConsolidatedResult) {
	matches := e.matcher.Detect(txns)
	for _, m := range matches {
		amount := m.Amount.Abs()
		if amount.GreaterThan(result.Group.Revenue) {
			continue
		}
		result.Group.Revenue = result.Group.Revenue.Sub(amount)
		result.Group.COGS = result.Group.COGS.Add(amount)
		result.Eliminations = append(result.Eliminations, Elimination{
			ID:            e.newID(),
			Type:          m.Type,
			DebitAccount:  "Revenue",
			CreditAccount: "COGS",
			Amount:        amount,
			Description: fmt.Sprintf("Intercompany elimination %s -> %s (%s match, confidence %.2f)",
				m.SourceEntity, m.TargetEntity, m.Method, m.Confidence),
			EntityA:           m.SourceEntity,
			EntityB:           m.TargetEntity,
			AffectsIncomeStmt: true,
		})
	}
}

func resolveMethod(node, fallback Method) Method {
	if node != "" {
		return node
	}
	if fallback != "" {
		return fallback
	}
	return MethodFull
}

// addScaled folds a scaled copy of every summary figure and account-detail
// entry into the group totals. Derived lines are recomputed by the caller.
func addScaled(group *EntityFinancials, fin EntityFinancials, factor decimal.Decimal) {
	group.Revenue = group.Revenue.Add(fin.Revenue.Mul(factor))
	group.COGS = group.COGS.Add(fin.COGS.Mul(factor))
	group.OperatingExpenses = group.OperatingExpenses.Add(fin.OperatingExpenses.Mul(factor))
	group.TotalAssets = group.TotalAssets.Add(fin.TotalAssets.Mul(factor))
	group.TotalLiabilities = group.TotalLiabilities.Add(fin.TotalLiabilities.Mul(factor))
	group.Equity = group.Equity.Add(fin.Equity.Mul(factor))
	for label, amount := range fin.IncomeStatement {
		addDetail(group.IncomeStatement, label, amount.Mul(factor))
	}
	for label, amount := range fin.BalanceSheet {
		addDetail(group.BalanceSheet, label, amount.Mul(factor))
	}
}

func addDetail(detail map[string]decimal.Decimal, label string, amount decimal.Decimal) {
	detail[label] = detail[label].Add(amount)
}

// validate reports invariant findings as warnings. Heuristic outcomes never
// fail a run, so Passed only reflects hard errors (currently none).
func validate(group EntityFinancials) ValidationResult {
	v := ValidationResult{Passed: true, Errors: []string{}, Warnings: []string{}}
	gap := group.TotalAssets.Sub(group.TotalLiabilities.Add(group.Equity))
	if gap.Abs().GreaterThan(balanceTolerance) {
		v.Warnings = append(v.Warnings, fmt.Sprintf("balance sheet imbalance: assets - (liabilities + equity) = %s", gap.String()))
	}
	if group.Revenue.IsNegative() {
		v.Warnings = append(v.Warnings, fmt.Sprintf("negative group revenue: %s", group.Revenue.String()))
	}
	return v
}

// notify invokes the progress callback, isolating the run from a panicking
// observer.
func notify(onProgress ProgressFunc, stage Stage) {
	if onProgress == nil {
		return
	}
	defer func() { _ = recover() }()
	onProgress(stage)
}

func (e *Engine) log() *slog.Logger {
	if e != nil && e.logger != nil {
		return e.logger.With(slog.String("component", "consol_engine"))
	}
	return slog.Default().With(slog.String("component", "consol_engine"))
}
