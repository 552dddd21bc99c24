// Package schedule performs per-block list scheduling: given a
// block's node set (already placed by pkg/placement), produce
// one linear order respecting data dependencies, with memory- and
// exception-pinned operations kept in their original relative order
// since reordering them could change which one observes a trap or a
// stale value.
package schedule

import (
	"github.com/sogcc/sog/pkg/dataflow"
	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/op"
)

const maxBitmapNodes = 64

// Block linearizes one block's nodes. Phis are emitted first (they
// logically execute "during the jump into" the block, not after it);
// the block's terminator (Jmp/Cond/Return/Switch/End) is emitted last;
// everything else is chosen by repeatedly picking the tallest ready
// node from a ready bitmap via math/bits.TrailingZeros64, falling
// back to a plain linear scan when the block has more than 64 nodes
// to order (maxBitmapNodes).
func Block(b *ir.Node) []*ir.Node {
	heights := dataflow.ComputeHeights(b)
	nodes := b.BlockNodes()

	var phis []*ir.Node
	var terminator *ir.Node
	middle := make([]*ir.Node, 0, len(nodes))
	for _, n := range nodes {
		switch {
		case n.Op == op.Phi:
			phis = append(phis, n)
		case n.Op.Info().Flags.Has(op.ControlFlowFlag):
			terminator = n
		default:
			middle = append(middle, n)
		}
	}

	order := scheduleMiddle(middle, heights, b)

	out := make([]*ir.Node, 0, len(nodes))
	out = append(out, phis...)
	out = append(out, order...)
	if terminator != nil {
		out = append(out, terminator)
	}
	return out
}

func scheduleMiddle(middle []*ir.Node, heights dataflow.Heights, block *ir.Node) []*ir.Node {
	inBlockDep := map[*ir.Node][]*ir.Node{} // node -> its in-block operands not yet scheduled
	remaining := map[*ir.Node]int{}
	dependents := map[*ir.Node][]*ir.Node{}
	index := map[*ir.Node]int{}
	for i, n := range middle {
		index[n] = i
		var deps []*ir.Node
		for k := 1; k < n.NumIns(); k++ {
			in := n.In(k)
			if in != nil && in.Block() == block && in.Op != op.Phi {
				deps = append(deps, in)
				dependents[in] = append(dependents[in], n)
			}
		}
		inBlockDep[n] = deps
		remaining[n] = len(deps)
	}

	scheduled := make([]*ir.Node, 0, len(middle))
	scheduledSet := map[*ir.Node]bool{}

	if len(middle) <= maxBitmapNodes {
		scheduleWithBitmap(middle, remaining, dependents, heights, &scheduled, scheduledSet)
	} else {
		scheduleLinear(middle, remaining, dependents, heights, &scheduled, scheduledSet)
	}
	return scheduled
}

// scheduleWithBitmap packs ready nodes into a uint64 mask keyed by
// dataflow.PriorityBit(height) and repeatedly extracts the lowest set
// bit (tallest node) via dataflow.LowestSetBit.
func scheduleWithBitmap(middle []*ir.Node, remaining map[*ir.Node]int, dependents map[*ir.Node][]*ir.Node, heights dataflow.Heights, scheduled *[]*ir.Node, scheduledSet map[*ir.Node]bool) {
	buckets := map[uint][]*ir.Node{}
	var mask uint64

	addReady := func(n *ir.Node) {
		bit := dataflow.PriorityBit(heights[n])
		buckets[bit] = append(buckets[bit], n)
		mask |= 1 << bit
	}
	for _, n := range middle {
		if remaining[n] == 0 {
			addReady(n)
		}
	}

	for mask != 0 {
		bit := uint(dataflow.LowestSetBit(mask))
		bucket := buckets[bit]
		n := bucket[0]
		buckets[bit] = bucket[1:]
		if len(buckets[bit]) == 0 {
			mask &^= 1 << bit
		}

		*scheduled = append(*scheduled, n)
		scheduledSet[n] = true
		for _, dep := range dependents[n] {
			remaining[dep]--
			if remaining[dep] == 0 {
				addReady(dep)
			}
		}
	}
}

// scheduleLinear is the >64-candidates fallback: same priority rule,
// plain scan instead of a bitmap.
func scheduleLinear(middle []*ir.Node, remaining map[*ir.Node]int, dependents map[*ir.Node][]*ir.Node, heights dataflow.Heights, scheduled *[]*ir.Node, scheduledSet map[*ir.Node]bool) {
	ready := []*ir.Node{}
	for _, n := range middle {
		if remaining[n] == 0 {
			ready = append(ready, n)
		}
	}
	for len(ready) > 0 {
		bestIdx := 0
		for i := 1; i < len(ready); i++ {
			if heights[ready[i]] > heights[ready[bestIdx]] {
				bestIdx = i
			}
		}
		n := ready[bestIdx]
		ready = append(ready[:bestIdx], ready[bestIdx+1:]...)

		*scheduled = append(*scheduled, n)
		scheduledSet[n] = true
		for _, dep := range dependents[n] {
			remaining[dep]--
			if remaining[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
}
