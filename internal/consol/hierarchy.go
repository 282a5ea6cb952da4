package consol

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNoRootEntity indicates no parentless entity exists in the input. The
// returned placeholder root still satisfies callers that only inspect the
// tree shape, but the error lets them fail loudly instead.
var ErrNoRootEntity = errors.New("consol: no root entity found")

// ErrDuplicateEntity indicates an entity ID is reachable more than once in
// the tree, either as a duplicate record or as a parent/child cycle.
var ErrDuplicateEntity = errors.New("consol: duplicate entity in hierarchy")

// PlaceholderRootID names the degenerate root returned for malformed input.
const PlaceholderRootID = "group-root"

var hundred = decimal.NewFromInt(100)

// BuildHierarchy assembles the ownership tree from a flat entity list. The
// unique parentless record becomes the root; children keep the order of the
// input list. A missing root yields a degenerate single-node placeholder
// plus ErrNoRootEntity; an ID reachable twice yields ErrDuplicateEntity.
func BuildHierarchy(entities []EntityRecord) (*EntityNode, error) {
	var root *EntityRecord
	for i := range entities {
		if entities[i].ParentID == "" {
			root = &entities[i]
			break
		}
	}
	if root == nil {
		return &EntityNode{ID: PlaceholderRootID, Name: "Group", OwnershipPct: hundred, Method: MethodFull}, ErrNoRootEntity
	}
	return buildNode(*root, entities, make(map[string]struct{}))
}

func buildNode(rec EntityRecord, entities []EntityRecord, visited map[string]struct{}) (*EntityNode, error) {
	if _, seen := visited[rec.ID]; seen {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, rec.ID)
	}
	visited[rec.ID] = struct{}{}

	node := &EntityNode{
		ID:           rec.ID,
		Name:         rec.Name,
		OwnershipPct: rec.OwnershipPct,
		Method:       rec.Method,
	}
	if rec.ParentID == "" && node.OwnershipPct.IsZero() {
		node.OwnershipPct = hundred
	}
	for _, child := range entities {
		if child.ParentID == rec.ID {
			childNode, err := buildNode(child, entities, visited)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, childNode)
		}
	}
	return node, nil
}
