package lower

import (
	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

// LowerModeB eliminates the internal boolean mode wherever a target
// can't carry it across a register or memory slot: any mode.B value
// that isn't consumed exclusively as a Cond node's selector gets
// materialized into intMode as 0/1 via an explicit branch, and any
// mode.B Phi is rebuilt in intMode directly. Logic nodes over booleans
// (And, Or, Xor, Not) are not rebuilt in intMode: they keep mode.B,
// read the materialized 0/1 operands, and are themselves materialized
// like any other mode.B value.
//
// Loop-carried boolean accumulators create a real chicken-and-egg
// problem: rebuilding a Phi's operands may need to read the very Phi
// being rebuilt (through a back-edge). Firm's mode_b lowering breaks
// this by wiring the new Phi's back-edge operands through a throwaway
// Dummy node first, finishing construction, then swapping the Dummy
// out for the real Phi everywhere it was used as a stand-in — the
// same "Dummy" placeholder op.md C2 calls a Sea-of-Nodes-specific
// escape hatch for exactly this kind of cycle.
func LowerModeB(g *ir.Graph, intMode *mode.Mode) {
	cache := map[*ir.Node]*ir.Node{}
	dummies := map[*ir.Node]*ir.Node{}

	walkNodes(g, func(n *ir.Node) {
		if n.Mode != mode.B {
			return
		}
		if n.Op == op.Phi {
			lowerBooleanPhi(g, n, intMode, cache, dummies)
			return
		}
		if allUsersAreCondSelectors(n) {
			return
		}
		// Snapshot n's users before materializing: materializeBoolean
		// builds a Cond that selects on n itself, which makes that Cond
		// a new user of n. A blanket n.ReplaceBy afterward would catch
		// that Cond too and rewire its selector onto the Phi it feeds,
		// branching on its own result. Only the pre-existing users get
		// redirected.
		origUsers := append([]*ir.Node{}, n.Users()...)
		materialized := materializeBoolean(g, n, intMode, cache)
		for _, u := range origUsers {
			for i := 0; i < u.NumIns(); i++ {
				if u.In(i) == n {
					u.SetIn(i, materialized)
				}
			}
		}
	})

	// Resolve Dummy placeholders now that every boolean Phi has its
	// final replacement registered in cache.
	for dummy, boolPhi := range dummies {
		if real, ok := cache[boolPhi]; ok {
			dummy.ReplaceBy(real)
		}
	}
}

func allUsersAreCondSelectors(n *ir.Node) bool {
	for _, u := range n.Users() {
		if u.Op != op.Cond {
			return false
		}
	}
	return true
}

// lowerBooleanPhi rebuilds a mode.B Phi as an intMode Phi, one operand
// at a time. An operand that is itself the Phi under construction
// (a direct loop back-edge) is temporarily satisfied with a Dummy;
// LowerModeB patches every such Dummy once all Phis are done.
func lowerBooleanPhi(g *ir.Graph, boolPhi *ir.Node, intMode *mode.Mode, cache map[*ir.Node]*ir.Node, dummies map[*ir.Node]*ir.Node) *ir.Node {
	if existing, ok := cache[boolPhi]; ok {
		return existing
	}
	block := boolPhi.Block()
	newPhi := g.NewDynamicNode(op.Phi, intMode, block)
	cache[boolPhi] = newPhi // register before recursing so self-references see it

	for i := 1; i < boolPhi.NumIns(); i++ {
		operand := boolPhi.In(i)
		switch {
		case operand == boolPhi:
			dummy := g.NewNode(op.Dummy, intMode, block)
			dummies[dummy] = boolPhi
			newPhi.AppendIn(dummy)
		case operand.Op == op.Phi && operand.Mode == mode.B:
			newPhi.AppendIn(lowerBooleanPhi(g, operand, intMode, cache, dummies))
		default:
			newPhi.AppendIn(materializeBoolean(g, operand, intMode, cache))
		}
	}
	boolPhi.ReplaceBy(newPhi)
	return newPhi
}

// materializeBoolean turns a mode.B value into an intMode 0/1 value:
// Const(true/false) folds directly; anything else gets branched on
// via Cond and merged through a fresh two-predecessor Phi of 1/0.
// Repeated requests for the same boolean node share one
// materialization.
func materializeBoolean(g *ir.Graph, b *ir.Node, intMode *mode.Mode, cache map[*ir.Node]*ir.Node) *ir.Node {
	if existing, ok := cache[b]; ok {
		return existing
	}
	if c := ir.ConstOf(b); c != nil {
		var v *tarval.Value
		if tarval.IsNull(c) {
			v = tarval.FromUint64(intMode, 0)
		} else {
			v = tarval.FromUint64(intMode, 1)
		}
		out := g.NewConst(v)
		cache[b] = out
		return out
	}

	block := b.Block()
	cond := g.NewNode(op.Cond, mode.T, block, b)
	trueProj := g.NewProj(cond, mode.X, 1)
	falseProj := g.NewProj(cond, mode.X, 0)
	trueBlock := g.NewBlock(trueProj)
	falseBlock := g.NewBlock(falseProj)
	g.SealBlock(trueBlock)
	g.SealBlock(falseBlock)
	trueJmp := g.NewNode(op.Jmp, mode.X, trueBlock)
	falseJmp := g.NewNode(op.Jmp, mode.X, falseBlock)
	merge := g.NewBlock(trueJmp, falseJmp)
	g.SealBlock(merge)

	phi := g.NewDynamicNode(op.Phi, intMode, merge)
	phi.AppendIn(g.NewConst(tarval.FromUint64(intMode, 1)))
	phi.AppendIn(g.NewConst(tarval.FromUint64(intMode, 0)))

	cache[b] = phi
	return phi
}
