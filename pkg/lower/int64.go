package lower

import (
	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

// Target describes what Lower64 needs to know about the backend: the
// machine word mode double-word integers split into, and whether the
// target exposes carry-aware primitives (AddCC/AddX/SubCC/SubX) or
// only a runtime call.
type Target struct {
	WordMode     *mode.Mode
	HasCarryOps  bool
	RuntimeAddFn string // e.g. "__adddi3", used when !HasCarryOps
	RuntimeSubFn string
	RuntimeMulFn string
}

// Lower64 rewrites Add/Sub/Mul on a 64-bit mode. Add and Sub become,
// with HasCarryOps, AddCC/AddX (or SubCC/SubX) chains that compute the
// low and high halves as a pair of WordMode operations directly in the
// graph; otherwise a Call to the target's runtime helper, matching what
// targets without a native 64-bit ALU do in practice. Mul always
// becomes a runtime call (see lower64Mul).
func Lower64(g *ir.Graph, t Target) {
	if t.WordMode == nil || t.WordMode.SizeBits() >= 64 {
		return // nothing to split into
	}
	walkNodes(g, func(n *ir.Node) {
		if n.Mode == nil || n.Mode.SizeBits() != 64 || n.Mode.Sort() != mode.Int {
			return
		}
		switch n.Op {
		case op.Add:
			lower64Binary(g, n, t, t.RuntimeAddFn, op.AddCC, op.AddX)
		case op.Sub:
			lower64Binary(g, n, t, t.RuntimeSubFn, op.SubCC, op.SubX)
		case op.Mul:
			lower64Mul(g, n, t)
		}
	})
}

// splitHalves returns (lo, hi) WordMode components of a 64-bit value.
func splitHalves(g *ir.Graph, v *ir.Node, t Target) (lo, hi *ir.Node) {
	block := v.Block()
	lo = g.NewNode(op.Conv, t.WordMode, block, v)
	shiftAmt := g.NewConst(tarval.FromUint64(v.Mode, 32))
	shifted := g.NewNode(op.Shr, v.Mode, block, v, shiftAmt)
	hi = g.NewNode(op.Conv, t.WordMode, block, shifted)
	return lo, hi
}

// joinHalves recombines a WordMode (lo, hi) pair back into a 64-bit
// value: zero-extend both, shift hi up, Or them together.
func joinHalves(g *ir.Graph, lo, hi *ir.Node, m64 *mode.Mode) *ir.Node {
	block := lo.Block()
	loExt := g.NewNode(op.Conv, m64, block, lo)
	hiExt := g.NewNode(op.Conv, m64, block, hi)
	shiftAmt := g.NewConst(tarval.FromUint64(m64, 32))
	hiShifted := g.NewNode(op.Shl, m64, block, hiExt, shiftAmt)
	return g.NewNode(op.Or, m64, block, loExt, hiShifted)
}

// lower64Binary splits n (Add or Sub) into a pair of WordMode
// operations chained by a carry, or a runtime call if the target
// lacks carry-aware primitives.
func lower64Binary(g *ir.Graph, n *ir.Node, t Target, runtimeFn string, ccOp, xOp op.Code) {
	a, b := n.In(1), n.In(2)
	block := n.Block()

	if !t.HasCarryOps {
		n.ReplaceBy(runtimeCall(g, block, runtimeFn, n.Mode, a, b))
		return
	}

	aLo, aHi := splitHalves(g, a, t)
	bLo, bHi := splitHalves(g, b, t)

	loOp := g.NewNode(ccOp, t.WordMode, block, aLo, bLo)
	loRes := g.NewProj(loOp, t.WordMode, 0)
	carry := g.NewProj(loOp, t.WordMode, 1)

	hiOp := g.NewNode(xOp, t.WordMode, block, aHi, bHi, carry)
	hiRes := g.NewProj(hiOp, t.WordMode, 0)

	n.ReplaceBy(joinHalves(g, loRes, hiRes, n.Mode))
}

// lower64Mul always falls back to a runtime call: a correct
// carry-propagating double-word multiply needs a 2x-width
// intermediate product most 32-bit ALUs can't produce directly
// (unlike add/sub's single-bit carry, which AddCC/AddX and
// SubCC/SubX model exactly), so sog doesn't try to synthesize it from
// WordMode primitives the way it does for Add/Sub.
func lower64Mul(g *ir.Graph, n *ir.Node, t Target) {
	a, b := n.In(1), n.In(2)
	n.ReplaceBy(runtimeCall(g, n.Block(), t.RuntimeMulFn, n.Mode, a, b))
}

func runtimeCall(g *ir.Graph, block *ir.Node, symbol string, resultMode *mode.Mode, args ...*ir.Node) *ir.Node {
	callee := g.NewSymConst(mode.PCode, symbol)
	call := g.NewDynamicNode(op.Call, mode.T, block)
	call.Attr = &ir.CallAttr{NumResults: 1}
	call.AppendIn(callee)
	for _, a := range args {
		call.AppendIn(a)
	}
	return g.NewProj(call, resultMode, 0)
}
