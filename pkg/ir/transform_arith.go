package ir

import (
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

// Default Hooks for the arithmetic/logic opcodes: const folding and
// the handful of identity-element simplifications cheap
// enough to apply unconditionally at construction time. Strength
// reductions (x*2 -> x+x, etc.) are not among them.
func init() {
	RegisterHooks(op.Const, &Hooks{
		Hash:   func(n *Node) uint64 { return constHash(ConstOf(n)) },
		AttrEq: func(a, b *Node) bool { return ConstOf(a) == ConstOf(b) },
	})
	RegisterHooks(op.SymConst, &Hooks{
		AttrEq: func(a, b *Node) bool {
			sa, sb := a.Attr.(*SymConstAttr), b.Attr.(*SymConstAttr)
			return sa != nil && sb != nil && sa.Symbol == sb.Symbol
		},
	})
	RegisterHooks(op.Proj, &Hooks{
		AttrEq: func(a, b *Node) bool { return ProjNum(a) == ProjNum(b) },
	})

	RegisterHooks(op.Add, &Hooks{Identity: foldAdd})
	RegisterHooks(op.Sub, &Hooks{Identity: foldSub})
	RegisterHooks(op.Mul, &Hooks{Identity: foldMul})
	RegisterHooks(op.And, &Hooks{Identity: foldAnd})
	RegisterHooks(op.Or, &Hooks{Identity: foldOr})
	RegisterHooks(op.Xor, &Hooks{Identity: foldXor})
	RegisterHooks(op.Not, &Hooks{Identity: foldDoubleNot})
	RegisterHooks(op.Minus, &Hooks{Identity: foldDoubleMinus})
	RegisterHooks(op.Shl, &Hooks{Identity: foldShiftByZero})
	RegisterHooks(op.Shr, &Hooks{Identity: foldShiftByZero})
	RegisterHooks(op.Shrs, &Hooks{Identity: foldShiftByZero})
}

func constHash(v *tarval.Value) uint64 {
	if v == nil {
		return 0
	}
	return fnv1a64(1, v.Uint64())
}

func asConstNode(n *Node) (*Node, *tarval.Value) {
	if c := ConstOf(n); c != nil {
		return n, c
	}
	return nil, nil
}

// binConst returns (otherOperand, constVal, constIsLHS) for n's first
// Const operand, or zero values if neither operand is a Const.
func binConst(n *Node) (other *Node, c *tarval.Value, constIsLHS bool) {
	lhs, rhs := n.In(1), n.In(2)
	if _, cv := asConstNode(lhs); cv != nil {
		return rhs, cv, true
	}
	if _, cv := asConstNode(rhs); cv != nil {
		return lhs, cv, false
	}
	return nil, nil, false
}

func bothConst(n *Node) (a, b *tarval.Value, ok bool) {
	av := ConstOf(n.In(1))
	bv := ConstOf(n.In(2))
	if av == nil || bv == nil {
		return nil, nil, false
	}
	return av, bv, true
}

func foldAdd(n *Node) *Node {
	if a, b, ok := bothConst(n); ok {
		return materializeConst(n, tarval.Add(a, b))
	}
	if other, c, _ := binConst(n); c != nil && tarval.IsNull(c) {
		return other
	}
	return n
}

func foldSub(n *Node) *Node {
	if a, b, ok := bothConst(n); ok {
		return materializeConst(n, tarval.Sub(a, b))
	}
	if c := ConstOf(n.In(2)); c != nil && tarval.IsNull(c) {
		return n.In(1)
	}
	if n.In(1) == n.In(2) {
		return materializeConst(n, tarval.Null(n.Mode))
	}
	return n
}

func foldMul(n *Node) *Node {
	if a, b, ok := bothConst(n); ok {
		return materializeConst(n, tarval.Mul(a, b))
	}
	if other, c, _ := binConst(n); c != nil {
		if tarval.IsOne(c) {
			return other
		}
		if tarval.IsNull(c) {
			return materializeConst(n, tarval.Null(n.Mode))
		}
	}
	return n
}

func foldAnd(n *Node) *Node {
	if other, c, _ := binConst(n); c != nil {
		if tarval.IsNull(c) {
			return materializeConst(n, tarval.Null(n.Mode))
		}
		if c == tarval.AllOnes(n.Mode) {
			return other
		}
	}
	if n.In(1) == n.In(2) {
		return n.In(1)
	}
	return n
}

func foldOr(n *Node) *Node {
	if other, c, _ := binConst(n); c != nil {
		if tarval.IsNull(c) {
			return other
		}
		if c == tarval.AllOnes(n.Mode) {
			return materializeConst(n, tarval.AllOnes(n.Mode))
		}
	}
	if n.In(1) == n.In(2) {
		return n.In(1)
	}
	return n
}

func foldXor(n *Node) *Node {
	if other, c, _ := binConst(n); c != nil && tarval.IsNull(c) {
		return other
	}
	if n.In(1) == n.In(2) {
		return materializeConst(n, tarval.Null(n.Mode))
	}
	return n
}

func foldDoubleNot(n *Node) *Node {
	if inner := n.In(1); inner.Op == op.Not {
		return inner.In(1)
	}
	return n
}

func foldDoubleMinus(n *Node) *Node {
	if inner := n.In(1); inner.Op == op.Minus {
		return inner.In(1)
	}
	return n
}

func foldShiftByZero(n *Node) *Node {
	if c := ConstOf(n.In(2)); c != nil && tarval.IsNull(c) {
		return n.In(1)
	}
	return n
}

// materializeConst builds (or reuses, via GVN) the Const node for a
// folded value.
func materializeConst(n *Node, v *tarval.Value) *Node {
	return n.graph.NewConst(v)
}
