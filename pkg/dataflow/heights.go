package dataflow

import (
	"math/bits"

	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/op"
)

// Heights gives each node its longest dependency-chain distance to a
// block-local root (a node with no in-block operands): pkg/schedule's
// ready-list breaks ties by preferring the tallest ready node first,
// so a long chain starts executing as early as possible instead of
// getting starved behind shorter, later-arriving ones. pkg/schedule
// encodes these heights as bit positions in a ready-instruction
// bitmap and extracts the next one with math/bits.TrailingZeros64
// (LowestSetBit) rather than scanning a queue.
type Heights map[*ir.Node]int

// ComputeHeights assigns a height to every node placed in block, purely from
// its in-block operands (cross-block operands contribute height 0,
// since they're already-scheduled values as far as this block is
// concerned).
func ComputeHeights(block *ir.Node) Heights {
	h := Heights{}
	nodes := block.BlockNodes()
	var height func(n *ir.Node) int
	visiting := map[*ir.Node]bool{}
	height = func(n *ir.Node) int {
		if v, ok := h[n]; ok {
			return v
		}
		if visiting[n] {
			return 0 // defensive: a cycle should never occur outside of Phi, handled below
		}
		if n.Op == op.Phi {
			h[n] = 0
			return 0
		}
		visiting[n] = true
		best := 0
		for i := 1; i < n.NumIns(); i++ {
			in := n.In(i)
			if in == nil || in.Block() != block {
				continue
			}
			if v := height(in) + 1; v > best {
				best = v
			}
		}
		visiting[n] = false
		h[n] = best
		return best
	}
	for _, n := range nodes {
		height(n)
	}
	return h
}

// PriorityBit packs a height into a bit position within a 64-bit
// ready-mask, saturating at 63. The mapping is inverted (taller node,
// smaller bit), so the caller finds the highest-height ready node as
// the lowest set bit via LowestSetBit.
func PriorityBit(height int) uint {
	if height > 63 {
		height = 63
	}
	return uint(63 - height)
}

// HighestSetBit returns the bit position of the most significant set
// bit in mask, or -1 if mask is zero.
func HighestSetBit(mask uint64) int {
	if mask == 0 {
		return -1
	}
	return 63 - bits.LeadingZeros64(mask)
}

// LowestSetBit returns the bit position of the least significant set
// bit in mask, or -1 if mask is zero. Since PriorityBit maps a taller
// node to a *smaller* bit position, the tallest ready node is always
// the lowest set bit — the same math/bits.TrailingZeros64 lookup
// ooo.go's hardware model uses to find its next-issue candidate from a
// ready bitmap.
func LowestSetBit(mask uint64) int {
	if mask == 0 {
		return -1
	}
	return bits.TrailingZeros64(mask)
}
