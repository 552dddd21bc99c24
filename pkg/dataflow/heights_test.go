package dataflow

import (
	"testing"

	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

func TestComputeHeightsLongestChainWins(t *testing.T) {
	g := ir.NewGraph("heights")
	jmp := g.NewNode(op.Jmp, mode.X, g.StartBlock)
	block := g.NewBlock(jmp)
	g.SealBlock(block)

	a := g.NewConst(tarval.FromInt64(mode.Is32, 1))
	b := g.NewConst(tarval.FromInt64(mode.Is32, 2))
	add := g.NewNode(op.Add, mode.Is32, block, a, b)
	mul := g.NewNode(op.Mul, mode.Is32, block, add, add)

	h := ComputeHeights(block)
	if h[add] != 1 {
		t.Errorf("add depends on two constants (cross-block height 0), want height 1, got %d", h[add])
	}
	if h[mul] != 2 {
		t.Errorf("mul depends on add (height 1), want height 2, got %d", h[mul])
	}
}

func TestComputeHeightsPhiIsAlwaysZero(t *testing.T) {
	g := ir.NewGraph("heightsphi")
	jmp := g.NewNode(op.Jmp, mode.X, g.StartBlock)
	block := g.NewBlock(jmp)
	g.SealBlock(block)

	a := g.NewConst(tarval.FromInt64(mode.Is32, 1))
	b := g.NewConst(tarval.FromInt64(mode.Is32, 2))
	phi := g.NewNode(op.Phi, mode.Is32, block, a, b)
	add := g.NewNode(op.Add, mode.Is32, block, phi, phi)

	h := ComputeHeights(block)
	if h[phi] != 0 {
		t.Errorf("Phi height should always be 0 to break potential cycles, got %d", h[phi])
	}
	if h[add] != 1 {
		t.Errorf("add depends only on the height-0 Phi, want height 1, got %d", h[add])
	}
}

func TestPriorityBitSaturatesAndInverts(t *testing.T) {
	if PriorityBit(0) != 63 {
		t.Errorf("height 0 should map to the lowest-priority bit 63, got %d", PriorityBit(0))
	}
	if PriorityBit(63) != 0 {
		t.Errorf("height 63 should map to bit 0, got %d", PriorityBit(63))
	}
	if PriorityBit(1000) != 0 {
		t.Errorf("a height above 63 should saturate to bit 0, got %d", PriorityBit(1000))
	}
}

func TestHighestAndLowestSetBit(t *testing.T) {
	if HighestSetBit(0) != -1 {
		t.Errorf("HighestSetBit(0) should be -1")
	}
	if LowestSetBit(0) != -1 {
		t.Errorf("LowestSetBit(0) should be -1")
	}
	mask := uint64(1)<<5 | uint64(1)<<10
	if HighestSetBit(mask) != 10 {
		t.Errorf("HighestSetBit(%b) = %d, want 10", mask, HighestSetBit(mask))
	}
	if LowestSetBit(mask) != 5 {
		t.Errorf("LowestSetBit(%b) = %d, want 5", mask, LowestSetBit(mask))
	}
}

func TestLowestSetBitPicksTallestNode(t *testing.T) {
	// A taller node gets a smaller bit position (PriorityBit), so among
	// several ready nodes the tallest one is always the lowest set bit.
	tall := PriorityBit(5)
	short := PriorityBit(1)
	mask := uint64(1)<<tall | uint64(1)<<short
	if LowestSetBit(mask) != int(tall) {
		t.Errorf("expected the taller node's bit (%d) to win via LowestSetBit, got %d", tall, LowestSetBit(mask))
	}
}
