// Package lower implements the generic, target-independent lowering
// passes: boolean-mode elimination, 64-bit integer splitting,
// switch-to-branch-tree conversion, and builtin
// (ffs/clz/ctz/popcount/parity/bswap) expansion. Each pass walks the
// graph once, rewriting matching nodes in place via Node.SetIn rather
// than rebuilding the graph, the same mutate-don't-rebuild discipline
// pkg/ir.Builder uses for trivial-Phi elimination.
package lower

import "github.com/sogcc/sog/pkg/ir"

// walkNodes visits every node of every block exactly once, in a
// snapshot taken up front so a pass is free to rewrite the node list
// (e.g. append replacement nodes into a block) without perturbing its
// own iteration.
func walkNodes(g *ir.Graph, visit func(n *ir.Node)) {
	for _, b := range g.Blocks() {
		snapshot := append([]*ir.Node{}, b.BlockNodes()...)
		for _, n := range snapshot {
			visit(n)
		}
	}
}
