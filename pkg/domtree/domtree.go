// Package domtree computes dominance, post-dominance, and the loop
// tree over an ir.Graph's control-flow skeleton. Dominance uses the
// Cooper-Harvey-Kennedy iterative algorithm over a reverse-postorder
// numbering rather than the classical Lengauer-Tarjan data-flow-style
// fixpoint: simpler to implement correctly, and fast enough at the
// graph sizes a single function's IR produces.
package domtree

import "github.com/sogcc/sog/pkg/ir"

// Tree holds the dominance results for one graph.
type Tree struct {
	g       *ir.Graph
	rpo     []*ir.Node
	rpoNum  map[*ir.Node]int
	idom    map[*ir.Node]*ir.Node
	succs   map[*ir.Node][]*ir.Node
	postIdom map[*ir.Node]*ir.Node
}

// Build computes the full dominance and post-dominance trees for g.
func Build(g *ir.Graph) *Tree {
	t := &Tree{g: g, succs: buildSuccessors(g)}
	t.rpo, t.rpoNum = reversePostorder(g.StartBlock, t.succs)
	t.idom = computeIDom(t.rpo, t.rpoNum, preFn(g, t.succs))
	t.postIdom = computePostIDom(g, t.succs)
	return t
}

func buildSuccessors(g *ir.Graph) map[*ir.Node][]*ir.Node {
	succs := map[*ir.Node][]*ir.Node{}
	for _, b := range g.Blocks() {
		for _, pred := range b.Ins {
			if pred == nil {
				continue
			}
			pb := pred.Block()
			succs[pb] = append(succs[pb], b)
		}
	}
	return succs
}

func preFn(g *ir.Graph, succs map[*ir.Node][]*ir.Node) func(*ir.Node) []*ir.Node {
	preds := map[*ir.Node][]*ir.Node{}
	for _, b := range g.Blocks() {
		for _, pred := range b.Ins {
			if pred != nil {
				preds[b] = append(preds[b], pred.Block())
			}
		}
	}
	return func(b *ir.Node) []*ir.Node { return preds[b] }
}

func reversePostorder(start *ir.Node, succs map[*ir.Node][]*ir.Node) ([]*ir.Node, map[*ir.Node]int) {
	visited := map[*ir.Node]bool{}
	var post []*ir.Node
	var visit func(*ir.Node)
	visit = func(b *ir.Node) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range succs[b] {
			visit(s)
		}
		post = append(post, b)
	}
	visit(start)
	rpo := make([]*ir.Node, len(post))
	num := map[*ir.Node]int{}
	for i, b := range post {
		rpo[len(post)-1-i] = b
		num[b] = len(post) - 1 - i
	}
	return rpo, num
}

// computeIDom runs the Cooper-Harvey-Kennedy fixpoint: process blocks
// in RPO order, repeatedly intersecting each block's already-resolved
// predecessors' idoms, until nothing changes.
func computeIDom(rpo []*ir.Node, num map[*ir.Node]int, preds func(*ir.Node) []*ir.Node) map[*ir.Node]*ir.Node {
	idom := map[*ir.Node]*ir.Node{}
	if len(rpo) == 0 {
		return idom
	}
	start := rpo[0]
	idom[start] = start

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom *ir.Node
			for _, p := range preds(b) {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, num)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	delete(idom, start) // the entry block has no idom, per convention
	idom[start] = nil
	return idom
}

func intersect(a, b *ir.Node, idom map[*ir.Node]*ir.Node, num map[*ir.Node]int) *ir.Node {
	for a != b {
		for num[a] > num[b] {
			a = idom[a]
		}
		for num[b] > num[a] {
			b = idom[b]
		}
	}
	return a
}

// computePostIDom mirrors computeIDom over the reversed CFG, rooted
// at EndBlock. Blocks that can never reach End (an infinite loop with
// no side-exit) get an artificial edge straight to End so the
// reverse-reachability walk — and therefore post-dominance — is total
// over every block.
func computePostIDom(g *ir.Graph, succs map[*ir.Node][]*ir.Node) map[*ir.Node]*ir.Node {
	end := g.EndBlock
	reachesEnd := map[*ir.Node]bool{}
	var mark func(*ir.Node)
	revSuccOfEnd := reversePreds(g, succs)
	mark = func(b *ir.Node) {
		if reachesEnd[b] {
			return
		}
		reachesEnd[b] = true
		for _, p := range revSuccOfEnd(b) {
			mark(p)
		}
	}
	mark(end)

	// Blocks that never reach End get a virtual edge to End for the
	// purposes of this computation only.
	extra := map[*ir.Node]bool{}
	for _, b := range g.Blocks() {
		if !reachesEnd[b] {
			extra[b] = true
		}
	}

	revSuccs := func(b *ir.Node) []*ir.Node {
		out := succs[b]
		if extra[b] {
			out = append(append([]*ir.Node{}, out...), end)
		}
		return out
	}
	// Reverse graph: successors become predecessors for the post-dom walk.
	postPreds := func(b *ir.Node) []*ir.Node { return revSuccs(b) }
	rpo, num := reversePostorder(end, invert(g, revSuccs))
	return computeIDom(rpo, num, postPreds)
}

func reversePreds(g *ir.Graph, succs map[*ir.Node][]*ir.Node) func(*ir.Node) []*ir.Node {
	preds := map[*ir.Node][]*ir.Node{}
	for b, ss := range succs {
		for _, s := range ss {
			preds[s] = append(preds[s], b)
		}
	}
	return func(b *ir.Node) []*ir.Node { return preds[b] }
}

// invert builds the "successor" map to walk when computing a
// postorder rooted at end over the reverse graph (i.e. predecessors
// in the forward CFG).
func invert(g *ir.Graph, fwdSuccs func(*ir.Node) []*ir.Node) map[*ir.Node][]*ir.Node {
	preds := map[*ir.Node][]*ir.Node{}
	for _, b := range g.Blocks() {
		for _, s := range fwdSuccs(b) {
			preds[s] = append(preds[s], b)
		}
	}
	return preds
}

// IDom returns b's immediate dominator, or nil for the start block.
func (t *Tree) IDom(b *ir.Node) *ir.Node { return t.idom[b] }

// PostIDom returns b's immediate post-dominator, or nil for the end block.
func (t *Tree) PostIDom(b *ir.Node) *ir.Node { return t.postIdom[b] }

// Dominates reports whether a dominates b (reflexively: a dominates itself).
func (t *Tree) Dominates(a, b *ir.Node) bool {
	for b != nil {
		if b == a {
			return true
		}
		b = t.idom[b]
	}
	return false
}

// StrictlyDominates reports whether a dominates b and a != b.
func (t *Tree) StrictlyDominates(a, b *ir.Node) bool {
	return a != b && t.Dominates(a, b)
}

// RPO returns the reverse-postorder block sequence used internally;
// exposed so pkg/placement and pkg/schedule can walk blocks in the
// same canonical order.
func (t *Tree) RPO() []*ir.Node { return t.rpo }

// Successors returns a block's CFG successors.
func (t *Tree) Successors(b *ir.Node) []*ir.Node { return t.succs[b] }
