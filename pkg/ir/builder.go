package ir

import (
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
)

// Builder implements incremental SSA construction: the
// Braun/Buchwald/... algorithm. Source-level variables are written
// and read through block-local maps rather than being promoted to
// the graph up front; Phi placeholders are inserted lazily at merge
// points and pruned away immediately when they turn out trivial (all
// operands equal, or the variable was never assigned on a path).
type Builder struct {
	g    *Graph
	defs map[*Node]map[int]*Node // block -> varID -> current value

	// UndefinedLocal, if set, supplies the value ReadVariable uses when
	// a local turns out to have no reaching definition on some path
	// (read-before-write). varID identifies the local exactly as it was
	// passed to ReadVariable/WriteVariable, and m is the mode it was
	// declared with. Left nil, a client gets the default: a fresh Bad
	// constant.
	UndefinedLocal func(varID int, m *mode.Mode) *Node
}

// NewBuilder wraps a graph for incremental construction. The graph's
// Start/End skeleton must already exist (NewGraph does this).
func NewBuilder(g *Graph) *Builder {
	return &Builder{g: g, defs: map[*Node]map[int]*Node{}}
}

func (b *Builder) Graph() *Graph { return b.g }

// WriteVariable records the current value of varID in block.
func (b *Builder) WriteVariable(block *Node, varID int, value *Node) {
	m := b.defs[block]
	if m == nil {
		m = map[int]*Node{}
		b.defs[block] = m
	}
	m[varID] = value
}

// ReadVariable resolves varID's current value in block, walking
// predecessors (and inserting Phis at merges) if block has no local
// definition. m is the variable's mode, needed the first time a Phi
// placeholder has to be synthesized.
func (b *Builder) ReadVariable(block *Node, varID int, m *mode.Mode) *Node {
	if v, ok := b.defs[block][varID]; ok {
		return v
	}
	return b.readVariableRecursive(block, varID, m)
}

func (b *Builder) readVariableRecursive(block *Node, varID int, m *mode.Mode) *Node {
	var val *Node
	switch {
	case !block.sealed:
		// Predecessor set isn't final yet: park an operandless Phi;
		// SealBlock fills it in once every predecessor is known.
		phi := b.g.NewDynamicNode(op.Phi, m, block)
		if block.incompletePhi == nil {
			block.incompletePhi = map[int]*Node{}
		}
		block.incompletePhi[varID] = phi
		val = phi
	case len(block.Ins) == 1:
		val = b.ReadVariable(block.Ins[0].Block(), varID, m)
	default:
		phi := b.g.NewDynamicNode(op.Phi, m, block)
		b.WriteVariable(block, varID, phi) // breaks recursive cycles through this Phi
		val = b.fillPhiOperands(block, varID, m, phi)
	}
	b.WriteVariable(block, varID, val)
	return val
}

func (b *Builder) fillPhiOperands(block *Node, varID int, m *mode.Mode, phi *Node) *Node {
	for _, pred := range block.Ins {
		phi.AppendIn(b.ReadVariable(pred.Block(), varID, m))
	}
	return b.tryRemoveTrivialPhi(varID, phi)
}

// SealBlock marks block mature: no further predecessors will be
// appended, so any Phi placeholders ReadVariable parked while the
// predecessor set was incomplete can now be filled in.
func (b *Builder) SealBlock(block *Node) {
	if block.sealed {
		return
	}
	block.sealed = true
	pending := block.incompletePhi
	block.incompletePhi = nil
	for varID, phi := range pending {
		b.fillPhiOperands(block, varID, phi.Mode, phi)
	}
}

// resolveIncompletePhi backs Graph.SealBlock, the low-level entry
// point called when no Builder is alive (e.g. a later pass splits a
// block and must mature it immediately). Without a Builder there is no
// UndefinedLocal hook to consult either, so the placeholder degrades
// straight to the default (Bad) on every incoming edge; real SSA
// construction always goes through Builder.SealBlock instead, which
// has full def-map and hook access and never hits this path.
func resolveIncompletePhi(g *Graph, block *Node, _ int, phi *Node) {
	for range block.Ins {
		phi.AppendIn(g.NewNode(op.Bad, phi.Mode, phi.Block()))
	}
	tryRemoveTrivialPhiOn(g, phi, nil)
}

// tryRemoveTrivialPhi implements Braun et al.'s trivial-Phi
// elimination: a Phi whose non-self operands are all the same node
// (or absent entirely) contributes nothing and is replaced everywhere
// by that node, with the removal re-checked transitively through any
// Phi that used it. varID identifies which local phi stands in for, so
// an absent-everywhere case can consult UndefinedLocal.
func (b *Builder) tryRemoveTrivialPhi(varID int, phi *Node) *Node {
	return tryRemoveTrivialPhiOn(b.g, phi, func(m *mode.Mode, block *Node) *Node {
		if b.UndefinedLocal != nil {
			return b.UndefinedLocal(varID, m)
		}
		return b.g.NewNode(op.Bad, m, block)
	})
}

// tryRemoveTrivialPhiOn does the actual elimination. undefined, when
// non-nil, is consulted for the phi's replacement value when every
// operand turned out absent (no reaching definition on any path); nil
// means fall back to a Bad constant.
func tryRemoveTrivialPhiOn(g *Graph, phi *Node, undefined func(m *mode.Mode, block *Node) *Node) *Node {
	var same *Node
	trivial := true
	for _, in := range phi.Ins[1:] {
		if in == same || in == phi {
			continue
		}
		if same != nil {
			trivial = false
			break
		}
		same = in
	}
	if !trivial {
		return phi
	}
	if same == nil {
		if undefined != nil {
			same = undefined(phi.Mode, phi.Block())
		} else {
			same = g.NewNode(op.Bad, phi.Mode, phi.Block())
		}
	}

	users := make([]*Node, len(phi.users))
	copy(users, phi.users)

	replaceAllUses(phi, same)

	for _, u := range users {
		if u != phi && u.Op == op.Phi {
			tryRemoveTrivialPhiOn(g, u, undefined)
		}
	}
	return same
}

// replaceAllUses rewires every user of old to reference next instead,
// then clears old's own use-list (old is now unreachable).
func replaceAllUses(old, next *Node) {
	users := make([]*Node, len(old.users))
	copy(users, old.users)
	for _, u := range users {
		for i, in := range u.Ins {
			if in == old {
				u.SetIn(i, next)
			}
		}
	}
	old.users = nil
}
