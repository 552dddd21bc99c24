package ir

import (
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

func init() {
	RegisterHooks(op.Cmp, &Hooks{
		Hash:     func(n *Node) uint64 { return fnv1a64(1, uint64(RelationOf(n))) },
		AttrEq:   func(a, b *Node) bool { return RelationOf(a) == RelationOf(b) },
		Identity: foldCmp,
	})
}

// foldCmp evaluates a comparison of two constants at construction
// time rather than waiting for a later constant-folding pass to catch
// it, the same as the arithmetic opcodes in transform_arith.go.
func foldCmp(n *Node) *Node {
	a, b := ConstOf(n.In(1)), ConstOf(n.In(2))
	if a == nil || b == nil {
		return n
	}
	rel := RelationOf(n)
	result := tarval.Cmp(a, b)&rel != 0
	return materializeConst(n, tarval.FromBool(result))
}
