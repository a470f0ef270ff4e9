package lower

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/source"
)

// NodeID is any caller-defined key identifying an AST node; the lowerer
// package never looks inside it, which is what keeps it frontend-agnostic.
// A frontend typically uses its own AST node pointer or a stable ID.
type NodeID any

// RVal is the lowered value and static type a frontend AST node evaluates
// to, plus the location it came from for diagnostics.
type RVal struct {
	Value il.Value
	Ty    il.Type
	Loc   source.Loc
}

// RValTable maps AST nodes (of whatever concrete type the caller's frontend
// uses) to their lowered RVal, the way a lowerer needs to look up an
// already-lowered subexpression's value without re-lowering it.
type RValTable struct {
	byNode map[NodeID]RVal
}

// NewRValTable returns an empty table for one lowering pass.
func NewRValTable() *RValTable {
	return &RValTable{byNode: map[NodeID]RVal{}}
}

// Set records the lowered value for node.
func (t *RValTable) Set(node NodeID, rv RVal) {
	t.byNode[node] = rv
}

// Get looks up the lowered value for node.
func (t *RValTable) Get(node NodeID) (RVal, bool) {
	rv, ok := t.byNode[node]
	return rv, ok
}
