package ir

import "github.com/sogcc/sog/pkg/tarval"

// ConstAttr is the attribute of a Const node.
type ConstAttr struct{ Value *tarval.Value }

// SymConstAttr is the attribute of a SymConst node: an unresolved
// external symbol (function or global data address) the emitter
// resolves at link time.
type SymConstAttr struct{ Symbol string }

// ProjAttr is the attribute of a Proj node: which component of its
// tuple-producing predecessor it selects.
type ProjAttr struct{ Num int }

// SwitchCase is one arm of a Switch node's jump table: a continuous,
// inclusive range [Min,Max] mapped to a single target (spec.md §4.7
// models entries as ranges, not scalars, so a single-value case is
// just Min == Max). Entries never overlap.
type SwitchCase struct {
	Min, Max *tarval.Value
	Proj     int // the Proj number this case's target block hangs off
}

// SwitchAttr is the attribute of a Switch node.
type SwitchAttr struct {
	Cases      []SwitchCase
	DefaultProj int
}

// CmpAttr is the attribute of a Cmp node: which relation it tests for.
type CmpAttr struct{ Relation tarval.Relation }

// RelationOf returns a Cmp node's tested relation, or tarval.False if
// n isn't one.
func RelationOf(n *Node) tarval.Relation {
	if ca, ok := n.Attr.(*CmpAttr); ok {
		return ca.Relation
	}
	return tarval.False
}

// CallAttr is the attribute of a Call node. The callee is a
// SymConst/pointer value already among its Ins; the attribute only
// records how many results the call produces.
type CallAttr struct {
	NumResults int
}

// ASMAttr is the attribute of an ASM node: the inline-assembly
// template text plus its operand constraint strings.
type ASMAttr struct {
	Template    string
	Constraints []string
}

// ConstOf returns the tarval of a Const node, or nil if n isn't one.
func ConstOf(n *Node) *tarval.Value {
	if ca, ok := n.Attr.(*ConstAttr); ok {
		return ca.Value
	}
	return nil
}

// ProjNum returns a Proj node's selector, or -1 if n isn't a Proj.
func ProjNum(n *Node) int {
	if pa, ok := n.Attr.(*ProjAttr); ok {
		return pa.Num
	}
	return -1
}
