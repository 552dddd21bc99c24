// Package ir is the in-memory program graph: a Sea-of-Nodes
// representation where data dependencies and the control flow
// skeleton share one graph, nodes are hash-consed by an
// incremental GVN identity cache, and construction runs through a
// per-opcode Transform hook so trivial simplifications happen as the
// graph is built rather than as a later pass.
//
// Node carries opcode metadata (pkg/op) but not opcode *behavior* —
// per-opcode hash/attribute-equality/identity/transform hooks live in
// this package's OpHooks table instead, registered from init()
// functions in transform_*.go. Splitting it this way (rather than
// hanging function pointers off pkg/op.Info) avoids a pkg/op <-> pkg/ir
// import cycle: pkg/op cannot know about *ir.Node, but pkg/ir already
// imports pkg/op for opcode metadata.
package ir

import (
	"github.com/sogcc/sog/pkg/diag"
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
)

// Node is one vertex of the program graph. Every non-Block node's
// Ins[0] is the Block it belongs to; Block nodes instead store their
// control-flow predecessors directly in Ins.
type Node struct {
	ID    uint32
	Op    op.Code
	Mode  *mode.Mode
	Ins   []*Node
	Attr  any // opcode-specific attribute: *ConstAttr, *ProjAttr, *SwitchAttr, *SymConstAttr, ...
	users []*Node

	graph *Graph
	// children is populated only on Block nodes: every node pinned or
	// floated into this block, in construction order (the schedule's
	// starting point before pkg/placement/pkg/schedule reorder it).
	children []*Node
	// Matured/sealed bookkeeping used only while op == op.Block and the
	// graph is still under SSA construction. Once a block is sealed no
	// more predecessors can be added and its incomplete Phis can be
	// resolved.
	sealed        bool
	incompletePhi map[int]*Node // varID -> placeholder Phi awaiting operands
}

func (n *Node) addUser(u *Node) { n.users = append(n.users, u) }

func (n *Node) removeUser(u *Node) {
	for i, x := range n.users {
		if x == u {
			n.users = append(n.users[:i], n.users[i+1:]...)
			return
		}
	}
}

// Users returns the nodes that reference n as an input.
func (n *Node) Users() []*Node { return n.users }

// Block returns the Block a node belongs to. For a Block node itself
// this is n: the index-0-is-block rule doesn't apply to Block nodes,
// which have no block of their own.
func (n *Node) Block() *Node {
	if n.Op == op.Block {
		return n
	}
	if len(n.Ins) == 0 {
		return nil
	}
	return n.Ins[0]
}

// In returns the i'th predecessor.
func (n *Node) In(i int) *Node { return n.Ins[i] }

// NumIns returns the number of predecessors (including the block slot
// for non-Block nodes).
func (n *Node) NumIns() int { return len(n.Ins) }

// SetIn mutates predecessor i, keeping use-lists consistent. This is
// the only sanctioned way to rewrite an edge after construction;
// passes must not poke at Ins directly.
func (n *Node) SetIn(i int, next *Node) {
	if next != nil && next.graph != n.graph {
		diag.Fatalf("ir: SetIn would link node %d (graph %q) into node %d's graph %q", next.ID, next.graph.Name, n.ID, n.graph.Name)
	}
	prev := n.Ins[i]
	if prev == next {
		return
	}
	if prev != nil {
		prev.removeUser(n)
	}
	n.Ins[i] = next
	if next != nil {
		next.addUser(n)
	}
}

// AppendIn appends a new predecessor (used by dynamic-arity ops: Phi,
// Block, End, Sync, Return, Call, Tuple, Switch targets).
func (n *Node) AppendIn(next *Node) {
	if next != nil && next.graph != n.graph {
		diag.Fatalf("ir: AppendIn would link node %d (graph %q) into node %d's graph %q", next.ID, next.graph.Name, n.ID, n.graph.Name)
	}
	n.Ins = append(n.Ins, next)
	if next != nil {
		next.addUser(n)
	}
}

// detach removes n's own user registrations on everything it
// references. Used when construction-time folding discards a
// freshly-built node before it ever became reachable.
func (n *Node) detach() {
	for i, in := range n.Ins {
		if in != nil {
			in.removeUser(n)
		}
		n.Ins[i] = nil
	}
}

// Graph is one compilation unit's program graph: a Start block, an End
// block, and everything reachable between them.
type Graph struct {
	Name       string
	Start      *Node // op.Start
	StartBlock *Node // op.Block containing Start
	End        *Node // op.End
	EndBlock   *Node // op.Block containing End

	nextID uint32
	blocks []*Node // all Block nodes, creation order

	identity map[uint64][]*Node // GVN hash-cons buckets
}

// NewGraph creates an empty graph with its Start/End skeleton already
// wired: StartBlock -> Start, EndBlock -> End, matching the fixed
// two-block scaffold every graph begins with.
func NewGraph(name string) *Graph {
	g := &Graph{Name: name, identity: map[uint64][]*Node{}}
	g.StartBlock = g.allocBlock()
	g.Start = g.allocIn(op.Start, mode.T, g.StartBlock)
	g.EndBlock = g.allocBlock()
	g.End = g.allocIn(op.End, mode.X, g.EndBlock)
	return g
}

func (g *Graph) nextNodeID() uint32 {
	id := g.nextID
	g.nextID++
	return id
}

func (g *Graph) allocBlock() *Node {
	n := &Node{ID: g.nextNodeID(), Op: op.Block, Mode: mode.BB, graph: g}
	g.blocks = append(g.blocks, n)
	return n
}

func (g *Graph) allocIn(code op.Code, m *mode.Mode, block *Node) *Node {
	n := &Node{ID: g.nextNodeID(), Op: code, Mode: m, graph: g, Ins: []*Node{block}}
	block.addUser(n)
	block.children = append(block.children, n)
	return n
}

// NewBlock creates a Block node with the given control-flow
// predecessors (Jmp/Cond-Proj/Switch-Proj nodes from other blocks).
// The block starts unsealed: predecessors may still be appended via
// AppendIn until SealBlock is called.
func (g *Graph) NewBlock(preds ...*Node) *Node {
	n := g.allocBlock()
	for _, p := range preds {
		n.AppendIn(p)
	}
	return n
}

// NewNode builds a node of the given opcode in block, wires its
// operands, and routes it through the GVN identity cache and the
// opcode's Transform hook before returning. The returned node may not
// be n if hash-consing or Identity found an equivalent, cheaper, or
// already-existing replacement.
func (g *Graph) NewNode(code op.Code, m *mode.Mode, block *Node, ins ...*Node) *Node {
	return g.finalize(g.newRaw(code, m, block, ins...))
}

// newRaw builds and wires a node without running the finalize
// pipeline, so callers that must set an attribute (Const, SymConst,
// Proj, Cmp) before GVN/Identity ever inspects it can do so in
// between newRaw and finalize.
func (g *Graph) newRaw(code op.Code, m *mode.Mode, block *Node, ins ...*Node) *Node {
	canonicalizeCommutativeOrder(code, ins)
	n := &Node{ID: g.nextNodeID(), Op: code, Mode: m, graph: g}
	n.Ins = make([]*Node, 0, len(ins)+1)
	n.Ins = append(n.Ins, block)
	block.addUser(n)
	for _, in := range ins {
		n.Ins = append(n.Ins, in)
		if in != nil {
			in.addUser(n)
		}
	}
	block.children = append(block.children, n)
	return n
}

// canonicalizeCommutativeOrder puts a commutative binary opcode's two
// operands into a single total order (by ID, standing in for the
// pointer order spec §8's Laws call for — Go pointers have no native
// ordering) so that `a+b` and `b+a` build identical operand sequences
// before either one ever reaches hashCons. Without this, structuralEq's
// positional operand comparison (hooks.go) would never unify the two:
// GVN hash-consing only catches operand-for-operand identical nodes.
func canonicalizeCommutativeOrder(code op.Code, ins []*Node) {
	if !code.IsCommutative() || len(ins) != 2 {
		return
	}
	if ins[0] != nil && ins[1] != nil && ins[0].ID > ins[1].ID {
		ins[0], ins[1] = ins[1], ins[0]
	}
}

// NewDynamicNode is NewNode for opcodes whose operands are appended
// incrementally by the caller after this returns: the
// ArityDynamic/ArityVariable opcodes (Phi, Sync, Return, Call, Tuple,
// ASM, End), and Switch, whose single selector is appended the same way.
func (g *Graph) NewDynamicNode(code op.Code, m *mode.Mode, block *Node) *Node {
	n := &Node{ID: g.nextNodeID(), Op: code, Mode: m, graph: g, Ins: []*Node{block}}
	block.addUser(n)
	block.children = append(block.children, n)
	return n
}

// finalize runs the construction-time pipeline: Identity first (may
// fold to an existing node outright, e.g. x+0 -> x), then GVN
// hash-consing for floating pure/const-like nodes, then a final local
// Transform pass. detach()es n if it turns out unused.
func (g *Graph) finalize(n *Node) *Node {
	info := n.Op.Info()
	if h := OpHooks[n.Op]; h != nil && h.Identity != nil {
		if repl := h.Identity(n); repl != n {
			g.discard(n)
			return repl
		}
	}
	if participatesInGVN(n, info) {
		if repl := g.hashCons(n); repl != n {
			g.discard(n)
			return repl
		}
	}
	if h := OpHooks[n.Op]; h != nil && h.Transform != nil {
		return h.Transform(n)
	}
	return n
}

// participatesInGVN reports whether a node is eligible for hash-consing:
// floating (not control-flow, not pinned to a side effect) and not
// already structurally unique by construction (Block/Phi/Proj keep
// per-site identity).
func participatesInGVN(n *Node, info *op.Info) bool {
	switch n.Op {
	case op.Block, op.Phi, op.Proj, op.Start, op.End, op.Dummy:
		return false
	}
	if info.Flags.Has(op.CSENeutral) {
		return false
	}
	if info.Pin == op.PinPinned || info.Pin == op.PinMemPinned {
		return false
	}
	return true
}

// discard undoes the user-list bookkeeping NewNode performed for a
// freshly built node that turned out to be redundant, so it leaves no
// trace in the graph.
func (g *Graph) discard(n *Node) {
	if b := n.Block(); b != nil && b != n {
		b.removeUser(n)
		if len(b.children) > 0 && b.children[len(b.children)-1] == n {
			b.children = b.children[:len(b.children)-1]
		}
	}
	n.detach()
}

// Blocks returns every block in creation order.
func (g *Graph) Blocks() []*Node { return g.blocks }

// BlockNodes returns the nodes pinned or floated into b, in
// construction order.
func (b *Node) BlockNodes() []*Node { return b.children }

// SealBlock marks a block mature: no further predecessors will be
// appended. Resolves any incomplete Phis the builder inserted as
// placeholders while predecessors were still unknown.
func (g *Graph) SealBlock(b *Node) {
	if b.sealed {
		return
	}
	b.sealed = true
	for varID, phi := range b.incompletePhi {
		resolveIncompletePhi(g, b, varID, phi)
	}
	b.incompletePhi = nil
}

// Sealed reports whether a block has been sealed.
func (b *Node) Sealed() bool { return b.sealed }

// ReplaceBy rewires every current user of n to reference next instead
// and clears n's own use-list. Exported for lowering/optimization
// passes outside this package that need to retire a node in place
// (pkg/lower's boolean-mode and Phi rewrites, pkg/backend's
// peephole rewrites) without hand-rolling use-list surgery.
func (n *Node) ReplaceBy(next *Node) { replaceAllUses(n, next) }

// MoveToBlock relocates a floating node from its current block to
// target, updating both blocks' child lists and n's block-membership
// edge (Ins[0]). Used by pkg/placement and pkg/schedule, which are
// the only passes allowed to move a node between blocks after
// construction.
func (n *Node) MoveToBlock(target *Node) {
	cur := n.Block()
	if cur == target {
		return
	}
	if cur != nil {
		for i, c := range cur.children {
			if c == n {
				cur.children = append(cur.children[:i], cur.children[i+1:]...)
				break
			}
		}
	}
	target.children = append(target.children, n)
	n.SetIn(0, target)
}
