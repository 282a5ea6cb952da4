package consol_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-fin/meridian/internal/consol"
	"github.com/meridian-fin/meridian/internal/consol/ic"
)

// Round trip through the real matcher: an intercompany sale and its mirrored
// purchase net to zero at the group level while EBITDA stays put.
func TestConsolidationRoundTrip(t *testing.T) {
	date := time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC)
	txns := []consol.LedgerTransaction{
		{EntityID: "alpha", AccountID: "4000", AccountName: "Sales Revenue",
			Amount: decimal.NewFromInt(100000), Date: date, Description: "IC Sale to B", Currency: "USD", Basis: consol.BasisActual},
		{EntityID: "beta", AccountID: "5000", AccountName: "COGS",
			Amount: decimal.RequireFromString("-100050"), Date: date, Description: "IC Purchase from A", Currency: "USD", Basis: consol.BasisActual},
		{EntityID: "alpha", AccountID: "4000", AccountName: "Sales Revenue",
			Amount: decimal.NewFromInt(250000), Date: date, Description: "External sales", Currency: "USD", Basis: consol.BasisActual},
	}
	root, err := consol.BuildHierarchy([]consol.EntityRecord{
		{ID: "alpha", Name: "Alpha", OwnershipPct: decimal.NewFromInt(100), Method: consol.MethodFull},
		{ID: "beta", Name: "Beta", ParentID: "alpha", OwnershipPct: decimal.NewFromInt(100), Method: consol.MethodFull},
	})
	require.NoError(t, err)

	engine := consol.NewEngine(ic.NewMatcher(ic.DefaultConfig(), nil), nil)
	withoutElim, err := engine.Run(consol.Scope{Period: "2024-06"}, txns, root, nil)
	require.NoError(t, err)
	withElim, err := engine.Run(consol.Scope{Period: "2024-06", EliminateIntercompany: true}, txns, root, nil)
	require.NoError(t, err)

	require.Len(t, withElim.Eliminations, 1)
	entry := withElim.Eliminations[0]
	require.True(t, entry.Amount.Equal(decimal.NewFromInt(100000)), "got %s", entry.Amount)
	require.Equal(t, "alpha", entry.EntityA)
	require.Equal(t, "beta", entry.EntityB)

	// Revenue down by the matched amount, COGS up by the same amount.
	require.True(t, withElim.Group.Revenue.Equal(withoutElim.Group.Revenue.Sub(decimal.NewFromInt(100000))),
		"revenue %s", withElim.Group.Revenue)
	require.True(t, withElim.Group.COGS.Equal(withoutElim.Group.COGS.Add(decimal.NewFromInt(100000))),
		"cogs %s", withElim.Group.COGS)
	require.True(t, withElim.Group.EBITDA.Equal(withoutElim.Group.EBITDA), "ebitda must be unchanged")
}
