package ir

import (
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

// Constructors for opcodes whose attribute must be visible to the
// opcode's Hash/AttrEq hooks the moment the node enters the GVN
// cache. NewNode's generic path only sets Ins before calling
// finalize, which is wrong for these — so they set Attr on the raw
// node first and finalize explicitly afterward.

// NewConst builds (or reuses, via GVN) a constant in the graph's
// start block. Constants always live there rather than floating into
// whichever block first demanded them.
func (g *Graph) NewConst(v *tarval.Value) *Node {
	n := g.newRaw(op.Const, v.Mode(), g.StartBlock)
	n.Attr = &ConstAttr{Value: v}
	return g.finalize(n)
}

// NewSymConst builds (or reuses) a reference to an external symbol.
func (g *Graph) NewSymConst(m *mode.Mode, symbol string) *Node {
	n := g.newRaw(op.SymConst, m, g.StartBlock)
	n.Attr = &SymConstAttr{Symbol: symbol}
	return g.finalize(n)
}

// NewProj builds a Proj selecting component num out of tuple, in
// tuple's own block (Proj is always pinned to its predecessor's
// block, never floated independently).
func (g *Graph) NewProj(tuple *Node, m *mode.Mode, num int) *Node {
	n := g.newRaw(op.Proj, m, tuple.Block(), tuple)
	n.Attr = &ProjAttr{Num: num}
	return g.finalize(n)
}

// NewCmp builds (or reuses, via GVN) a comparison: two Cmp nodes with
// the same operands but different relations (e.g. Equal vs Less) must
// never hash-cons together, which is why Relation lives in an
// attribute rather than being encoded as distinct opcodes per relation.
func (g *Graph) NewCmp(block *Node, left, right *Node, rel tarval.Relation) *Node {
	n := g.newRaw(op.Cmp, mode.B, block, left, right)
	n.Attr = &CmpAttr{Relation: rel}
	return g.finalize(n)
}
