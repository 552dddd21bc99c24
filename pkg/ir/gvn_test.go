package ir

import (
	"testing"

	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

func newTestGraph() *Graph {
	g := NewGraph("test")
	return g
}

// TestConstHashCons verifies identical constants are hash-consed to a
// single node, matching spec.md's "floating pure nodes are unique" rule.
func TestConstHashCons(t *testing.T) {
	g := newTestGraph()
	a := g.NewConst(tarval.FromInt64(mode.Is32, 7))
	b := g.NewConst(tarval.FromInt64(mode.Is32, 7))
	if a != b {
		t.Fatalf("two identical constants were not hash-consed to the same node")
	}
	c := g.NewConst(tarval.FromInt64(mode.Is32, 8))
	if a == c {
		t.Fatalf("constants with different values were incorrectly unified")
	}
}

// TestCmpRelationDistinguished is the regression test for the GVN bug
// found during construction: two Cmp nodes over the same operand pair
// but different relations must never hash-cons together.
func TestCmpRelationDistinguished(t *testing.T) {
	g := newTestGraph()
	block := g.NewBlock()
	g.SealBlock(block)

	x := g.NewConst(tarval.FromInt64(mode.Is32, 3))
	y := g.NewConst(tarval.FromInt64(mode.Is32, 5))

	eq := g.NewCmp(block, x, y, tarval.Equal)
	lt := g.NewCmp(block, x, y, tarval.Less)

	if eq == lt {
		t.Fatalf("Cmp nodes with different relations over the same operands were incorrectly unified")
	}
	if RelationOf(eq) != tarval.Equal {
		t.Errorf("RelationOf(eq) = %v, want Equal", RelationOf(eq))
	}
	if RelationOf(lt) != tarval.Less {
		t.Errorf("RelationOf(lt) = %v, want Less", RelationOf(lt))
	}

	// Same relation, same operands: should still hash-cons.
	eq2 := g.NewCmp(block, x, y, tarval.Equal)
	if eq != eq2 {
		t.Errorf("two Cmp nodes with identical operands and relation were not hash-consed")
	}
}

// TestCmpConstantFold verifies foldCmp evaluates constant comparisons
// at construction time instead of leaving a live Cmp node around.
func TestCmpConstantFold(t *testing.T) {
	g := newTestGraph()
	block := g.NewBlock()
	g.SealBlock(block)

	x := g.NewConst(tarval.FromInt64(mode.Is32, 3))
	y := g.NewConst(tarval.FromInt64(mode.Is32, 5))

	n := g.NewCmp(block, x, y, tarval.Less)
	if n.Op != op.Const {
		t.Fatalf("Cmp of two constants should fold to a Const node, got op %v", n.Op)
	}
	ca, ok := n.Attr.(*ConstAttr)
	if !ok {
		t.Fatalf("folded Cmp node has no ConstAttr")
	}
	if ca.Value.Int64() == 0 {
		t.Errorf("3 < 5 should fold to true, got false")
	}
}

// TestBlockNeverParticipatesInGVN verifies distinct blocks with no
// predecessors are never unified, since Block is excluded from
// participatesInGVN.
func TestBlockNeverParticipatesInGVN(t *testing.T) {
	g := newTestGraph()
	b1 := g.NewBlock()
	b2 := g.NewBlock()
	if b1 == b2 {
		t.Fatalf("two distinct Block nodes were unified")
	}
}
