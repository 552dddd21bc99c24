// Package placement assigns a block to every floating (PinFloats)
// node in the graph, via the classic early/late scheduling algorithm:
// place a node as early as the blocks producing its operands allow,
// then as late as the blocks consuming it require, picking the
// shallowest loop nesting along that range so work gets hoisted out
// of loops whenever the dominance relation permits it.
package placement

import (
	"github.com/sogcc/sog/pkg/domtree"
	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/op"
)

// Place runs early placement followed by late placement (with
// loop-depth-minimizing block selection) over every floating node in
// g, and moves each node into its chosen block's child list.
func Place(g *ir.Graph, dt *domtree.Tree, lt *domtree.LoopTree) {
	depth := domDepths(g, dt)

	early := map[*ir.Node]*ir.Node{}
	var computeEarly func(n *ir.Node) *ir.Node
	computeEarly = func(n *ir.Node) *ir.Node {
		if b, ok := early[n]; ok {
			return b
		}
		if !isFloating(n) {
			b := n.Block()
			early[n] = b
			return b
		}
		best := g.StartBlock
		for i := 1; i < n.NumIns(); i++ {
			in := n.In(i)
			if in == nil {
				continue
			}
			var opBlock *ir.Node
			if isFloating(in) {
				opBlock = computeEarly(in)
			} else {
				opBlock = in.Block()
			}
			if depth[opBlock] > depth[best] {
				best = opBlock
			}
		}
		early[n] = best
		return best
	}

	for _, b := range g.Blocks() {
		for _, n := range append([]*ir.Node{}, b.BlockNodes()...) {
			if isFloating(n) {
				computeEarly(n)
			}
		}
	}

	for _, b := range g.Blocks() {
		for _, n := range append([]*ir.Node{}, b.BlockNodes()...) {
			if !isFloating(n) {
				continue
			}
			target := lateBlock(n, dt, lt, depth, early[n])
			moveNode(n, target)
		}
	}
}

func isFloating(n *ir.Node) bool {
	return n.Op.Info().Pin == op.PinFloats
}

// domDepths returns each block's depth in the dominator tree (start = 0).
func domDepths(g *ir.Graph, dt *domtree.Tree) map[*ir.Node]int {
	depth := map[*ir.Node]int{}
	var get func(b *ir.Node) int
	get = func(b *ir.Node) int {
		if d, ok := depth[b]; ok {
			return d
		}
		idom := dt.IDom(b)
		if idom == nil || idom == b {
			depth[b] = 0
			return 0
		}
		d := get(idom) + 1
		depth[b] = d
		return d
	}
	for _, b := range g.Blocks() {
		get(b)
	}
	return depth
}

// lateBlock computes the LCA of every user's block (Phi uses count
// the matching predecessor block, not the Phi's own block), then
// walks up the dominator chain from there to earlyBlock, picking the
// block with the smallest loop depth it passes through.
func lateBlock(n *ir.Node, dt *domtree.Tree, lt *domtree.LoopTree, depth map[*ir.Node]int, earlyBlock *ir.Node) *ir.Node {
	var lca *ir.Node
	for _, u := range n.Users() {
		var useBlock *ir.Node
		if u.Op == op.Phi {
			useBlock = phiPredBlockFor(u, n)
		} else {
			useBlock = u.Block()
		}
		if useBlock == nil {
			continue
		}
		if lca == nil {
			lca = useBlock
		} else {
			lca = lcaOf(lca, useBlock, dt, depth)
		}
	}
	if lca == nil {
		return earlyBlock // dead or never-consumed: leave at its earliest legal spot
	}

	best := lca
	for cur := lca; cur != nil; cur = dt.IDom(cur) {
		if lt.LoopDepth(cur) < lt.LoopDepth(best) {
			best = cur
		}
		if cur == earlyBlock {
			break
		}
	}
	return best
}

func phiPredBlockFor(phi, value *ir.Node) *ir.Node {
	for i := 1; i < phi.NumIns(); i++ {
		if phi.In(i) == value {
			return phi.Block().In(i - 1).Block()
		}
	}
	return phi.Block()
}

func lcaOf(a, b *ir.Node, dt *domtree.Tree, depth map[*ir.Node]int) *ir.Node {
	for depth[a] > depth[b] {
		a = dt.IDom(a)
	}
	for depth[b] > depth[a] {
		b = dt.IDom(b)
	}
	for a != b {
		a = dt.IDom(a)
		b = dt.IDom(b)
	}
	return a
}

func moveNode(n, target *ir.Node) { n.MoveToBlock(target) }
