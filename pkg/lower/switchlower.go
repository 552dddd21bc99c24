package lower

import (
	"sort"

	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

// SwitchLowering controls LowerSwitch's strategy choice among the
// three realizations spec.md §4.7 / SPEC_FULL §4 C9 name: a dense,
// in-range case set stays a native Switch for pkg/emit/riscy to
// realize as a jump table; a dense but possibly-out-of-range one gets
// a bounds guard in front of that same native Switch; everything else
// expands here into an if-cascade.
type SwitchLowering struct {
	// SpareThreshold: a case set is table-worthy when
	// spare = (max-min+1) - case-count is strictly below this
	// threshold. Zero rejects every case set (always cascades).
	// spec.md's S2 scenario: spare=98 fails a threshold of 16 but
	// passes one of 128.
	SpareThreshold int

	// SmallSwitchThreshold: a table-worthy case set is only realized
	// as a table when its case count exceeds this floor; a handful of
	// cases binary-searches faster than it tables. Zero means no floor.
	SmallSwitchThreshold int

	// AllowUnguardedOutOfBounds: when true, a table-worthy switch is
	// left as a bare Switch node even though the selector's runtime
	// range isn't proven to fit [min,max]. When false, LowerSwitch
	// inserts an out-of-bounds guard (a Cmp+Cond routing any
	// out-of-range selector straight to the default case) in front of
	// the unchanged Switch node instead.
	AllowUnguardedOutOfBounds bool
}

// LowerSwitch walks every Switch node in g and applies the chosen
// realization in place.
func LowerSwitch(g *ir.Graph, cfg SwitchLowering) {
	walkNodes(g, func(n *ir.Node) {
		if n.Op != op.Switch {
			return
		}
		lowerOneSwitch(g, n, cfg)
	})
}

func lowerOneSwitch(g *ir.Graph, sw *ir.Node, cfg SwitchLowering) {
	attrs, ok := sw.Attr.(*ir.SwitchAttr)
	if !ok || len(attrs.Cases) == 0 {
		return
	}

	cases := append([]ir.SwitchCase{}, attrs.Cases...)
	sort.Slice(cases, func(i, j int) bool {
		return tarval.Cmp(cases[i].Min, cases[j].Min) == tarval.Less
	})

	lo := cases[0].Min
	hi := cases[0].Max
	for _, c := range cases[1:] {
		if tarval.Cmp(c.Max, hi) == tarval.Greater {
			hi = c.Max
		}
	}

	span := hi.Int64() - lo.Int64() + 1
	spare := span - int64(len(cases))
	tableWorthy := spare < int64(cfg.SpareThreshold) && len(cases) > cfg.SmallSwitchThreshold

	selector := sw.In(1)
	selMode := selector.Mode

	if tableWorthy {
		if cfg.AllowUnguardedOutOfBounds {
			return // dense, assumed in-range; leave native for pkg/emit/riscy
		}
		guardOutOfBounds(g, sw, attrs, selector, selMode, lo, hi)
		return
	}

	projUsers := map[int]*ir.Node{}
	for _, u := range sw.Users() {
		if pu, ok := u.Attr.(*ir.ProjAttr); ok {
			projUsers[pu.Num] = u
		}
	}

	defaultMerge := g.NewBlock()
	block := sw.Block()
	caseEdges := buildCascade(g, block, selector, selMode, cases, defaultMerge)
	g.SealBlock(defaultMerge)
	defaultJmp := g.NewNode(op.Jmp, mode.X, defaultMerge)
	caseEdges[attrs.DefaultProj] = defaultJmp

	for num, proj := range projUsers {
		if edge, ok := caseEdges[num]; ok {
			proj.ReplaceBy(edge)
		}
	}
}

// unsignedOf maps a signed integer mode to its unsigned counterpart,
// the normalization spec.md §4.7 requires before any range-membership
// test ("selector is unsigned with minimum 0 ... converting sign if
// needed"). Modes that are already unsigned (or aren't fixed-width
// integers at all) pass through unchanged.
func unsignedOf(m *mode.Mode) *mode.Mode {
	switch m {
	case mode.Is8:
		return mode.Iu8
	case mode.Is16:
		return mode.Iu16
	case mode.Is32:
		return mode.Iu32
	case mode.Is64:
		return mode.Iu64
	case mode.Is128:
		return mode.Iu128
	default:
		return m
	}
}

// guardOutOfBounds inserts `(selector - lo) <=u (hi - lo)` ahead of an
// otherwise-unchanged Switch node: the true edge re-enters the switch
// in a fresh block, the false edge reaches the same destination the
// Switch's own default Proj already led to. sw keeps every case edge
// it had; only the default edge's source changes.
func guardOutOfBounds(g *ir.Graph, sw *ir.Node, attrs *ir.SwitchAttr, selector *ir.Node, selMode *mode.Mode, lo, hi *tarval.Value) {
	block := sw.Block()
	uMode := unsignedOf(selMode)

	normSelector := selector
	if uMode != selMode {
		normSelector = g.NewNode(op.Conv, uMode, block, selector)
	}
	minConst := g.NewConst(tarval.FromUint64(uMode, lo.Uint64()))
	diff := g.NewNode(op.Sub, uMode, block, normSelector, minConst)
	spanConst := g.NewConst(tarval.FromUint64(uMode, hi.Uint64()-lo.Uint64()))
	cmp := g.NewCmp(block, diff, spanConst, tarval.LessEqual)
	cond := g.NewNode(op.Cond, mode.T, block, cmp)
	inBoundsProj := g.NewProj(cond, mode.X, 1)
	outOfBoundsProj := g.NewProj(cond, mode.X, 0)

	switchBlock := g.NewBlock(inBoundsProj)
	g.SealBlock(switchBlock)
	sw.MoveToBlock(switchBlock)

	defaultMerge := g.NewBlock(outOfBoundsProj)
	g.SealBlock(defaultMerge)
	defaultJmp := g.NewNode(op.Jmp, mode.X, defaultMerge)

	for _, u := range sw.Users() {
		if pu, ok := u.Attr.(*ir.ProjAttr); ok && pu.Num == attrs.DefaultProj {
			u.ReplaceBy(defaultJmp)
		}
	}
}

// buildCascade recursively bisects cases over [lo,hi] within the
// sorted slice (pre-sorted by range minima, per spec.md §4.7's
// "cases are pre-sorted by their range minima"), wiring every
// "no match" exit into defaultMerge as an extra predecessor, and
// returns each matched case's Proj number mapped to the single Jmp
// node that reaches it.
func buildCascade(g *ir.Graph, block *ir.Node, selector *ir.Node, selMode *mode.Mode, cases []ir.SwitchCase, defaultMerge *ir.Node) map[int]*ir.Node {
	out := map[int]*ir.Node{}
	var recurse func(block *ir.Node, lo, hi int)
	recurse = func(block *ir.Node, lo, hi int) {
		if lo > hi {
			defaultMerge.AppendIn(g.NewNode(op.Jmp, mode.X, block))
			return
		}
		if lo == hi {
			c := cases[lo]
			uMode := unsignedOf(selMode)
			normSelector := selector
			if uMode != selMode {
				normSelector = g.NewNode(op.Conv, uMode, block, selector)
			}
			// Range entries yield a two-step test (spec.md §4.7):
			// subtract the range minimum, then compare unsigned-≤
			// with the adjusted maximum.
			minConst := g.NewConst(tarval.FromUint64(uMode, c.Min.Uint64()))
			diff := g.NewNode(op.Sub, uMode, block, normSelector, minConst)
			adjustedMax := g.NewConst(tarval.FromUint64(uMode, c.Max.Uint64()-c.Min.Uint64()))
			cmp := g.NewCmp(block, diff, adjustedMax, tarval.LessEqual)
			cond := g.NewNode(op.Cond, mode.T, block, cmp)
			trueProj := g.NewProj(cond, mode.X, 1)
			falseProj := g.NewProj(cond, mode.X, 0)

			hitBlock := g.NewBlock(trueProj)
			g.SealBlock(hitBlock)
			out[c.Proj] = g.NewNode(op.Jmp, mode.X, hitBlock)

			defaultMerge.AppendIn(falseProj)
			return
		}
		// Ceiling division: the ">=" half must always shrink by at
		// least one index (a floored mid leaves [lo,lo+1] splitting
		// into less=[lo,lo-1] and ge=[lo,lo+1], i.e. no progress at
		// all, looping forever).
		mid := (lo + hi + 1) / 2
		pivot := g.NewConst(cases[mid].Min)
		cmp := g.NewCmp(block, selector, pivot, tarval.Less)
		cond := g.NewNode(op.Cond, mode.T, block, cmp)
		lessProj := g.NewProj(cond, mode.X, 1)
		geProj := g.NewProj(cond, mode.X, 0)

		lessBlock := g.NewBlock(lessProj)
		g.SealBlock(lessBlock)
		geBlock := g.NewBlock(geProj)
		g.SealBlock(geBlock)

		recurse(lessBlock, lo, mid-1)
		recurse(geBlock, mid, hi)
	}
	recurse(block, 0, len(cases)-1)
	return out
}
