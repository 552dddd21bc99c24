// Package dataflow computes the auxiliary analyses pkg/schedule and
// pkg/backend consume: static block execution frequency, value
// liveness, and node "heights" (longest path to a root, used to break
// scheduling ties toward the instructions most likely to gate a delay
// slot).
package dataflow

import (
	"github.com/sogcc/sog/pkg/domtree"
	"github.com/sogcc/sog/pkg/ir"
)

// BlockFrequency estimates each block's relative execution weight
// from loop nesting alone (no profile data): a block inside N nested
// loops is assumed to run roughly 10^N times more often than one
// outside any loop. A single static per-depth multiplier stands in
// for a runtime-updated counter, since sog has no profile-guided
// feedback loop to update one with.
func BlockFrequency(g *ir.Graph, lt *domtree.LoopTree) map[*ir.Node]float64 {
	const perLevelMultiplier = 10.0
	freq := map[*ir.Node]float64{}
	for _, b := range g.Blocks() {
		depth := lt.LoopDepth(b)
		f := 1.0
		for i := 0; i < depth; i++ {
			f *= perLevelMultiplier
		}
		freq[b] = f
	}
	return freq
}
