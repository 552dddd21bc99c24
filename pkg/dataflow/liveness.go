package dataflow

import "github.com/sogcc/sog/pkg/ir"

// Liveness holds per-block live-in/live-out value sets, standard
// backward dataflow over the Sea-of-Nodes use/def relation instead of
// over a linear instruction stream: a value is "used" in a block if
// any node placed there (per pkg/placement) references it, and
// "defined" there if it's one of the block's own nodes.
type Liveness struct {
	LiveIn  map[*ir.Node]map[*ir.Node]bool
	LiveOut map[*ir.Node]map[*ir.Node]bool
}

// Compute runs the liveness fixpoint. succs/preds give each block's
// CFG neighbors (from domtree.Tree).
func Compute(g *ir.Graph, succs func(*ir.Node) []*ir.Node, preds func(*ir.Node) []*ir.Node) *Liveness {
	lv := &Liveness{LiveIn: map[*ir.Node]map[*ir.Node]bool{}, LiveOut: map[*ir.Node]map[*ir.Node]bool{}}
	blocks := g.Blocks()
	for _, b := range blocks {
		lv.LiveIn[b] = map[*ir.Node]bool{}
		lv.LiveOut[b] = map[*ir.Node]bool{}
	}

	changed := true
	for changed {
		changed = false
		for i := len(blocks) - 1; i >= 0; i-- {
			b := blocks[i]
			out := map[*ir.Node]bool{}
			for _, s := range succs(b) {
				for v := range lv.LiveIn[s] {
					out[v] = true
				}
			}
			in := map[*ir.Node]bool{}
			for v := range out {
				in[v] = true
			}
			for _, n := range b.BlockNodes() {
				delete(in, n)
			}
			for _, n := range b.BlockNodes() {
				for i := 1; i < n.NumIns(); i++ {
					use := n.In(i)
					if use != nil && use.Block() != b {
						in[use] = true
					}
				}
			}
			if !equalSets(in, lv.LiveIn[b]) || !equalSets(out, lv.LiveOut[b]) {
				lv.LiveIn[b] = in
				lv.LiveOut[b] = out
				changed = true
			}
		}
	}
	return lv
}

func equalSets(a, b map[*ir.Node]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// IsLiveOut reports whether v is live out of block b.
func (lv *Liveness) IsLiveOut(b, v *ir.Node) bool { return lv.LiveOut[b][v] }

// IsLiveIn reports whether v is live into block b.
func (lv *Liveness) IsLiveIn(b, v *ir.Node) bool { return lv.LiveIn[b][v] }
