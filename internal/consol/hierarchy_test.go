package consol

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func pct(v int) decimal.Decimal { return decimal.NewFromInt(int64(v)) }

func TestBuildHierarchy(t *testing.T) {
	entities := []EntityRecord{
		{ID: "hold", Name: "Holding", OwnershipPct: pct(100), Method: MethodFull},
		{ID: "sub-a", Name: "Sub A", ParentID: "hold", OwnershipPct: pct(80), Method: MethodFull},
		{ID: "sub-b", Name: "Sub B", ParentID: "hold", OwnershipPct: pct(50), Method: MethodProportionate},
		{ID: "sub-a1", Name: "Sub A1", ParentID: "sub-a", OwnershipPct: pct(100), Method: MethodFull},
	}
	root, err := BuildHierarchy(entities)
	require.NoError(t, err)
	require.Equal(t, "hold", root.ID)
	require.Len(t, root.Children, 2)
	require.Equal(t, "sub-a", root.Children[0].ID)
	require.Equal(t, "sub-b", root.Children[1].ID)
	require.Len(t, root.Children[0].Children, 1)
	require.Equal(t, "sub-a1", root.Children[0].Children[0].ID)
	require.True(t, root.Children[0].OwnershipPct.Equal(pct(80)))
}

func TestBuildHierarchySiblingOrderFollowsInput(t *testing.T) {
	entities := []EntityRecord{
		{ID: "hold", Name: "Holding"},
		{ID: "z", ParentID: "hold"},
		{ID: "a", ParentID: "hold"},
		{ID: "m", ParentID: "hold"},
	}
	root, err := BuildHierarchy(entities)
	require.NoError(t, err)
	require.Equal(t, []string{"z", "a", "m"}, []string{root.Children[0].ID, root.Children[1].ID, root.Children[2].ID})
}

func TestBuildHierarchyDefaultsRootOwnership(t *testing.T) {
	root, err := BuildHierarchy([]EntityRecord{{ID: "hold", Name: "Holding"}})
	require.NoError(t, err)
	require.True(t, root.OwnershipPct.Equal(pct(100)))
}

func TestBuildHierarchyNoRoot(t *testing.T) {
	root, err := BuildHierarchy([]EntityRecord{
		{ID: "a", ParentID: "b"},
		{ID: "b", ParentID: "a"},
	})
	require.ErrorIs(t, err, ErrNoRootEntity)
	require.NotNil(t, root)
	require.Equal(t, PlaceholderRootID, root.ID)
	require.Empty(t, root.Children)
}

func TestBuildHierarchyRejectsReachableCycle(t *testing.T) {
	// A reused root ID forms a parent/child loop; the walk must stop with an
	// error instead of recursing forever.
	root, err := BuildHierarchy([]EntityRecord{
		{ID: "hold", Name: "Holding"},
		{ID: "loop", ParentID: "hold"},
		{ID: "hold", ParentID: "loop"},
	})
	require.ErrorIs(t, err, ErrDuplicateEntity)
	require.Nil(t, root)
}

func TestBuildHierarchyRejectsDuplicateID(t *testing.T) {
	root, err := BuildHierarchy([]EntityRecord{
		{ID: "hold", Name: "Holding"},
		{ID: "sub", ParentID: "hold"},
		{ID: "sub", ParentID: "hold"},
	})
	require.ErrorIs(t, err, ErrDuplicateEntity)
	require.Nil(t, root)
}

func TestBuildHierarchyEmptyInput(t *testing.T) {
	root, err := BuildHierarchy(nil)
	require.ErrorIs(t, err, ErrNoRootEntity)
	require.Equal(t, PlaceholderRootID, root.ID)
}
