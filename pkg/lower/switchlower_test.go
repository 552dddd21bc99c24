package lower

import (
	"testing"

	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

// buildSwitchGraph builds a switch whose cases are single values
// (Min == Max), one per entry in values.
func buildSwitchGraph(t *testing.T, values []int64) (*ir.Graph, *ir.Node) {
	t.Helper()
	ranges := make([][2]int64, len(values))
	for i, v := range values {
		ranges[i] = [2]int64{v, v}
	}
	return buildSwitchGraphRanges(t, ranges)
}

// buildSwitchGraphRanges builds a switch with one case per [min,max]
// entry in ranges, plus a floating default Proj (Num 0, unconsumed:
// these unit tests only exercise LowerSwitch's node construction, not
// a full function body). The selector is the function's first
// parameter (a Proj of Start, as pkg/frontend builds parameters), so
// the comparisons LowerSwitch builds against it are not folded away at
// construction time.
func buildSwitchGraphRanges(t *testing.T, ranges [][2]int64) (*ir.Graph, *ir.Node) {
	t.Helper()
	g := ir.NewGraph("switchtest")
	entryJmp := g.NewNode(op.Jmp, mode.X, g.StartBlock)
	entry := g.NewBlock(entryJmp)
	g.SealBlock(entry)

	selector := g.NewProj(g.Start, mode.Is32, 1)
	sw := g.NewDynamicNode(op.Switch, mode.T, entry)
	sw.AppendIn(selector)

	var cases []ir.SwitchCase
	for i, r := range ranges {
		proj := g.NewProj(sw, mode.X, i+1)
		_ = proj
		cases = append(cases, ir.SwitchCase{
			Min:  tarval.FromInt64(mode.Is32, r[0]),
			Max:  tarval.FromInt64(mode.Is32, r[1]),
			Proj: i + 1,
		})
	}
	g.NewProj(sw, mode.X, 0) // default
	sw.Attr = &ir.SwitchAttr{Cases: cases, DefaultProj: 0}
	return g, sw
}

func countCondNodes(g *ir.Graph) int {
	n := 0
	for _, b := range g.Blocks() {
		for _, node := range b.BlockNodes() {
			if node.Op == op.Cond {
				n++
			}
		}
	}
	return n
}

func switchNodePresent(g *ir.Graph, sw *ir.Node) bool {
	for _, b := range g.Blocks() {
		for _, n := range b.BlockNodes() {
			if n == sw {
				return true
			}
		}
	}
	return false
}

func TestLowerSwitchLeavesDenseTableAlone(t *testing.T) {
	// 0,1,2,3: span 4, 4 cases, spare 0 -> well under any reasonable
	// SpareThreshold, so this should stay a native Switch.
	g, sw := buildSwitchGraph(t, []int64{0, 1, 2, 3})
	LowerSwitch(g, SwitchLowering{SpareThreshold: 4, AllowUnguardedOutOfBounds: true})

	if countCondNodes(g) != 0 {
		t.Errorf("a dense switch should be left as a native Switch, not expanded into a Cond cascade")
	}
	if !switchNodePresent(g, sw) {
		t.Errorf("the original Switch node should still be in the graph when density is high")
	}
}

func TestLowerSwitchExpandsSparseSet(t *testing.T) {
	// 0 and 100: span 101, 2 cases, spare 99 -> well over any
	// reasonable SpareThreshold, so this must expand into a Cmp/Cond
	// cascade.
	g, _ := buildSwitchGraph(t, []int64{0, 100})
	LowerSwitch(g, SwitchLowering{SpareThreshold: 4, AllowUnguardedOutOfBounds: true})

	if countCondNodes(g) == 0 {
		t.Errorf("a sparse switch should be expanded into a Cmp/Cond cascade")
	}
}

func TestLowerSwitchCascadeUsesDistinctRelations(t *testing.T) {
	// Regression check for the Cmp-relation GVN fix: the single-case
	// leaf branch uses LessEqual (range membership), the bisecting
	// branch uses Less, both potentially over the same selector/pivot
	// pair in a two-case switch. If Cmp nodes ever collapsed together
	// by operands alone, one of these two relations would silently
	// vanish.
	g, _ := buildSwitchGraph(t, []int64{0, 100})
	LowerSwitch(g, SwitchLowering{SpareThreshold: 4, AllowUnguardedOutOfBounds: true})

	var relations []tarval.Relation
	for _, b := range g.Blocks() {
		for _, n := range b.BlockNodes() {
			if n.Op == op.Cmp {
				relations = append(relations, ir.RelationOf(n))
			}
		}
	}
	if len(relations) == 0 {
		t.Fatal("expected at least one Cmp node in the cascade")
	}
	seen := map[tarval.Relation]bool{}
	for _, r := range relations {
		seen[r] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected distinguishable relations (Less and LessEqual) among the cascade's Cmp nodes, got %v", relations)
	}
}

func TestLowerSwitchRangeCaseTestsMembership(t *testing.T) {
	// A case covering [1,2] alongside two single-value cases forces
	// the sparse path (comment 3): the cascade leaf for the range
	// entry must compare against its adjusted max (Max-Min == 1), not
	// treat it as a scalar equality test.
	g, _ := buildSwitchGraphRanges(t, [][2]int64{{0, 0}, {1, 2}, {100, 100}})
	LowerSwitch(g, SwitchLowering{SpareThreshold: 4, AllowUnguardedOutOfBounds: true})

	found := false
	for _, b := range g.Blocks() {
		for _, n := range b.BlockNodes() {
			if n.Op != op.Cmp {
				continue
			}
			if ir.RelationOf(n) != tarval.LessEqual {
				continue
			}
			for i := 0; i < n.NumIns(); i++ {
				in := n.In(i)
				if c := ir.ConstOf(in); c != nil && c.Uint64() == 1 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Errorf("expected a LessEqual Cmp against the adjusted max (1) for the [1,2] range case")
	}
}

// TestLowerSwitchScenarioS2 reproduces spec.md's S2 scenario exactly:
// entries {pn=1:min=0,max=0}, {pn=2:min=1,max=2}, {pn=3:min=100,max=100},
// default=pn=0. spare = (100-0+1) - 3 = 98. With SpareThreshold 16,
// 98 isn't below the threshold, so lowering must emit an if-cascade.
// With SpareThreshold 128 and out-of-bounds disallowed, 98 is below
// the threshold, so lowering must emit an out-of-bounds guard and
// leave the Switch node unchanged.
func TestLowerSwitchScenarioS2(t *testing.T) {
	ranges := [][2]int64{{0, 0}, {1, 2}, {100, 100}}

	t.Run("low threshold cascades", func(t *testing.T) {
		g, sw := buildSwitchGraphRanges(t, ranges)
		LowerSwitch(g, SwitchLowering{SpareThreshold: 16})

		if countCondNodes(g) == 0 {
			t.Errorf("spare=98 should fail a threshold of 16 and expand into a cascade")
		}
		if switchNodePresent(g, sw) {
			t.Errorf("a cascaded switch should retire the original Switch node")
		}
	})

	t.Run("high threshold guards out of bounds", func(t *testing.T) {
		g, sw := buildSwitchGraphRanges(t, ranges)
		LowerSwitch(g, SwitchLowering{SpareThreshold: 128, AllowUnguardedOutOfBounds: false})

		if !switchNodePresent(g, sw) {
			t.Errorf("spare=98 should pass a threshold of 128: the Switch node must survive unchanged")
		}
		if len(sw.Attr.(*ir.SwitchAttr).Cases) != 3 {
			t.Errorf("the guarded Switch node's case table must be untouched")
		}

		guard := false
		for _, b := range g.Blocks() {
			for _, n := range b.BlockNodes() {
				if n.Op == op.Cmp && ir.RelationOf(n) == tarval.LessEqual {
					guard = true
				}
			}
		}
		if !guard {
			t.Errorf("expected an out-of-bounds guard (a LessEqual Cmp) ahead of the unchanged Switch node")
		}
	})
}
