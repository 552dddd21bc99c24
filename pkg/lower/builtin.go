package lower

import (
	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
)

// BuiltinRuntime names the runtime helper each bit-manipulation
// builtin lowers to when HasNative(code) says the target has no
// matching instruction. Prefetch never needs one: it lowers to
// nothing when the target can't honor it, rather than a runtime call.
type BuiltinRuntime struct {
	HasNative func(code op.Code) bool
	Symbol    func(code op.Code) string // runtime function name, e.g. "__ctzsi2"
}

// LowerBuiltin rewrites Ffs/Clz/Ctz/Popcount/Parity/Bswap nodes the
// target can't execute natively into a Call to the matching runtime
// helper, and drops Prefetch nodes the target can't honor to their
// memory input's identity (a no-op hint, never a correctness
// requirement).
func LowerBuiltin(g *ir.Graph, rt BuiltinRuntime) {
	walkNodes(g, func(n *ir.Node) {
		switch n.Op {
		case op.Ffs, op.Clz, op.Ctz, op.Popcount, op.Parity, op.Bswap:
			if rt.HasNative(n.Op) {
				return
			}
			callee := g.NewSymConst(mode.PCode, rt.Symbol(n.Op))
			call := g.NewDynamicNode(op.Call, mode.T, n.Block())
			call.Attr = &ir.CallAttr{NumResults: 1}
			call.AppendIn(callee)
			call.AppendIn(n.In(1))
			n.ReplaceBy(g.NewProj(call, n.Mode, 0))
		case op.Prefetch:
			if rt.HasNative(op.Prefetch) {
				return
			}
			n.ReplaceBy(n.In(1)) // memory input passes through untouched
		}
	})
}
