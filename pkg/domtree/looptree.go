package domtree

import "github.com/sogcc/sog/pkg/ir"

// Loop is one natural loop: a maximal SCC of the CFG, rooted at its
// dominance-determined header. Children are a heterogeneous mix of
// plain blocks and nested loops rather than forced through a uniform
// Block wrapper.
type Loop struct {
	Header   *ir.Node
	Depth    int
	Parent   *Loop
	Blocks   []*ir.Node // every block belonging directly to this loop (not nested ones)
	Children []LoopChild
}

// LoopChild tags a loop-tree child as either a plain block or a
// nested loop.
type LoopChild struct {
	Block *ir.Node // non-nil when this child is a leaf block
	Loop  *Loop    // non-nil when this child is a nested loop
}

// LoopTree maps every block to the innermost loop containing it (nil
// if the block isn't part of any loop).
type LoopTree struct {
	ByBlock map[*ir.Node]*Loop
	Roots   []*Loop
}

// LoopDepth returns b's loop nesting depth (0 if not in any loop).
func (lt *LoopTree) LoopDepth(b *ir.Node) int {
	if l := lt.ByBlock[b]; l != nil {
		return l.Depth
	}
	return 0
}

// BuildLoopTree finds loops via Tarjan SCC over the CFG: an SCC with
// more than one block (or a single block with a self-loop) is a loop;
// its header is the block inside the SCC that dominates every other
// block in it. The SCCs are maximal and are not searched again for
// inner cycles, so a loop nested inside another is not separated out:
// its blocks belong to the enclosing loop, every loop found has Depth
// 1 and no Parent, and LoopDepth is never more than 1.
func BuildLoopTree(g *ir.Graph, t *Tree) *LoopTree {
	sccs := tarjanSCC(g, t)
	lt := &LoopTree{ByBlock: map[*ir.Node]*Loop{}}

	var loops []*Loop
	for _, scc := range sccs {
		if !isLoop(scc, t) {
			continue
		}
		header := findHeader(scc, t)
		l := &Loop{Header: header, Blocks: scc}
		loops = append(loops, l)
		for _, b := range scc {
			lt.ByBlock[b] = l
		}
	}

	// Nest loops by block-set containment, then compute depths and
	// build the Children tagged-union lists.
	for _, l := range loops {
		var best *Loop
		for _, other := range loops {
			if other == l {
				continue
			}
			if containsAll(other.Blocks, l.Blocks) && (best == nil || len(other.Blocks) < len(best.Blocks)) {
				best = other
			}
		}
		l.Parent = best
	}
	for _, l := range loops {
		d := 0
		for p := l.Parent; p != nil; p = p.Parent {
			d++
		}
		l.Depth = d + 1
	}

	for _, l := range loops {
		for _, b := range l.Blocks {
			if lt.ByBlock[b] == l {
				l.Children = append(l.Children, LoopChild{Block: b})
			}
		}
		if l.Parent != nil {
			l.Parent.Children = append(l.Parent.Children, LoopChild{Loop: l})
		} else {
			lt.Roots = append(lt.Roots, l)
		}
	}
	return lt
}

func isLoop(scc []*ir.Node, t *Tree) bool {
	if len(scc) > 1 {
		return true
	}
	b := scc[0]
	for _, s := range t.Successors(b) {
		if s == b {
			return true
		}
	}
	return false
}

func findHeader(scc []*ir.Node, t *Tree) *ir.Node {
	set := map[*ir.Node]bool{}
	for _, b := range scc {
		set[b] = true
	}
	for _, cand := range scc {
		dominatesAll := true
		for _, b := range scc {
			if !t.Dominates(cand, b) {
				dominatesAll = false
				break
			}
		}
		if dominatesAll {
			return cand
		}
	}
	return scc[0]
}

func containsAll(outer, inner []*ir.Node) bool {
	set := map[*ir.Node]bool{}
	for _, b := range outer {
		set[b] = true
	}
	for _, b := range inner {
		if !set[b] {
			return false
		}
	}
	return len(outer) >= len(inner)
}

// tarjanSCC returns every strongly connected component of the CFG as
// block-sets, covering every block of g (unreachable ones included).
func tarjanSCC(g *ir.Graph, t *Tree) [][]*ir.Node {
	index := map[*ir.Node]int{}
	lowlink := map[*ir.Node]int{}
	onStack := map[*ir.Node]bool{}
	var stack []*ir.Node
	next := 0
	var out [][]*ir.Node

	var strongconnect func(v *ir.Node)
	strongconnect = func(v *ir.Node) {
		index[v] = next
		lowlink[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range t.Successors(v) {
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var comp []*ir.Node
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			out = append(out, comp)
		}
	}

	for _, b := range g.Blocks() {
		if _, seen := index[b]; !seen {
			strongconnect(b)
		}
	}
	return out
}
