// Package coalesce assigns physical registers to copy-related value
// groups, minimizing the leftover copies/spills a naive allocator
// would emit at block boundaries. The textbook formulation poses this
// as an integer linear program: one boolean variable per (value,
// register) pair, an objective counting cross-boundary copies, and
// constraints encoding interference and target requirements. Solve
// below takes the textbook's fallback path instead: a greedy,
// interference-graph coloring pass seeded by copy affinity, for when
// an ILP solver is unavailable or too slow.
package coalesce

import (
	"sort"

	"github.com/sogcc/sog/pkg/backend"
)

// Value is one allocatable unit: an SSA value needing a register.
type Value struct {
	ID    int
	Req   backend.Requirement
	// Affinity lists other Values this one is copy-related to
	// (Phi operands, call-argument positions), weighted by how often
	// the affinity is exercised (pkg/dataflow.BlockFrequency feeds this).
	Affinity map[*Value]float64
	// Interferes lists Values simultaneously live with this one (from
	// pkg/dataflow liveness); two interfering Values can never share a
	// register.
	Interferes map[*Value]bool
}

// Assignment maps each Value to its chosen register.
type Assignment map[*Value]*backend.Reg

// Solve greedily colors the interference graph, processing values in
// decreasing total affinity weight so the pairs most worth coalescing
// get first pick of a shared register. This is the baseline an ILP
// formulation (see package doc) would need to beat to justify its
// extra machinery; sog wires the baseline since that's the only
// solver actually available.
func Solve(values []*Value, class *backend.RegClass) Assignment {
	ordered := append([]*Value{}, values...)
	sort.Slice(ordered, func(i, j int) bool {
		return totalAffinity(ordered[i]) > totalAffinity(ordered[j])
	})

	assign := Assignment{}
	for _, v := range ordered {
		reg := pickRegister(v, assign, class)
		assign[v] = reg
	}
	return assign
}

func totalAffinity(v *Value) float64 {
	total := 0.0
	for _, w := range v.Affinity {
		total += w
	}
	return total
}

// pickRegister prefers, in order: a register shared with the
// highest-affinity already-assigned neighbor (a genuine coalesce), a
// register honoring req.Kind's exact/class constraint, then the first
// register in the class not used by an interfering neighbor.
func pickRegister(v *Value, assign Assignment, class *backend.RegClass) *backend.Reg {
	type cand struct {
		r *backend.Reg
		w float64
	}
	var byAffinity []cand
	for neighbor, w := range v.Affinity {
		if r, ok := assign[neighbor]; ok && !v.Interferes[neighbor] {
			byAffinity = append(byAffinity, cand{r, w})
		}
	}
	sort.Slice(byAffinity, func(i, j int) bool { return byAffinity[i].w > byAffinity[j].w })
	for _, c := range byAffinity {
		if v.Req.Satisfies(c.r, nil) && !conflicts(v, c.r, assign) {
			return c.r
		}
	}

	if v.Req.Kind == backend.ReqExact {
		return v.Req.Exact
	}

	pool := class.Registers
	if v.Req.Kind == backend.ReqClass {
		pool = v.Req.Class.Registers
	}
	for _, r := range pool {
		if !conflicts(v, r, assign) {
			return r
		}
	}
	return nil // out of registers; caller must spill
}

func conflicts(v *Value, r *backend.Reg, assign Assignment) bool {
	for neighbor := range v.Interferes {
		if assign[neighbor] == r {
			return true
		}
	}
	return false
}
