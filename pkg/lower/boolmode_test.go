package lower

import (
	"testing"

	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

// TestLowerModeBMaterializesShortCircuitAnd covers spec scenario S4:
// `bool g(int a){ return a<0 && a!=5; }` lowered with a 32-bit
// unsigned carrier must leave no mode.B value consumed by anything but
// a Cond selector. Each Cmp producer is materialized into an intMode
// 0/1 branch-and-merge Phi that the And now reads; the And itself keeps
// mode.B and is in turn consumed only by the Cond that materializes it
// for the Return.
func TestLowerModeBMaterializesShortCircuitAnd(t *testing.T) {
	g := ir.NewGraph("boolmodetest")
	entryJmp := g.NewNode(op.Jmp, mode.X, g.StartBlock)
	entry := g.NewBlock(entryJmp)
	g.SealBlock(entry)

	// a stands in for an opaque parameter: a Phi of two distinct
	// constants can't be constant-folded the way a literal arithmetic
	// expression would be, so the Cmp nodes below stay live instead of
	// being evaluated away at construction time.
	a := g.NewDynamicNode(op.Phi, mode.Is32, entry)
	a.AppendIn(g.NewConst(tarval.FromInt64(mode.Is32, 3)))
	a.AppendIn(g.NewConst(tarval.FromInt64(mode.Is32, -2)))
	zero := g.NewConst(tarval.FromInt64(mode.Is32, 0))
	five := g.NewConst(tarval.FromInt64(mode.Is32, 5))

	lt := g.NewCmp(entry, a, zero, tarval.Less)
	ne := g.NewCmp(entry, a, five, tarval.NotEqual)
	and := g.NewNode(op.And, mode.B, entry, lt, ne)

	ret := g.NewDynamicNode(op.Return, mode.X, entry)
	ret.AppendIn(and)
	g.EndBlock.AppendIn(ret)
	g.SealBlock(g.EndBlock)

	LowerModeB(g, mode.Iu32)

	walkNodes(g, func(n *ir.Node) {
		if n.Mode != mode.B {
			return
		}
		if n == lt || n == ne {
			return
		}
		for _, u := range n.Users() {
			if u.Op != op.Cond {
				t.Errorf("node %v (opcode %v) still carries mode.B and is consumed by a non-Cond user %v", n, n.Op, u.Op)
			}
		}
	})

	replaced := ret.In(ret.NumIns() - 1)
	if replaced == and {
		t.Error("Return's value operand should have been rewired off the original boolean And")
	}
	if replaced.Mode == mode.B {
		t.Error("Return's value operand must no longer carry mode.B after lowering")
	}
}
