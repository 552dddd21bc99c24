package coalesce

import "github.com/sogcc/sog/pkg/backend"

// Perm is a permutation of register assignments required at a control
// flow merge (e.g. reconciling two predecessors' register layouts
// into the one the successor block expects). Entries are expressed
// as From -> To register moves to realize.
type Perm struct {
	From, To *backend.Reg
}

// Step is one concrete move the emitter realizes: either a
// register-to-register move, or a spill/reload through one of the two
// scratch stack slots MemPerm is allowed to use.
type Step struct {
	FromReg, ToReg     *backend.Reg
	SpillSlot          int // -1 unless this step spills to or reloads from a scratch slot
	IsSpill, IsReload bool
}

// MemPerm sequences a register permutation into moves a target can
// actually execute: chains (a -> b -> c, ..., -> unused) resolve
// directly in reverse order; cycles (a -> b -> a) need one value
// parked somewhere else first. sog follows the classic two-scratch-slot
// scheme: spill one element of each cycle found, break the cycle into
// a chain, emit the chain's moves, then reload the parked value from
// whichever of the two slots it was given. Cycles are resolved one at
// a time and each releases its slot before the next cycle claims one,
// so every cycle in practice parks its value in slot 0.
func MemPerm(perm []Perm) []Step {
	dest := map[*backend.Reg]*backend.Reg{} // to -> from
	for _, p := range perm {
		dest[p.To] = p.From
	}

	var steps []Step
	done := map[*backend.Reg]bool{}
	slotInUse := [2]bool{}

	resolveChain := func(start *backend.Reg) {
		var order []*backend.Reg
		cur := start
		for {
			order = append(order, cur)
			next, ok := dest[cur]
			if !ok || done[cur] {
				break
			}
			if next == start {
				break // cycle; handled separately
			}
			cur = next
		}
		// order runs from the chain's sink back to its untouched
		// source. Moves must realize in the opposite direction
		// (source-adjacent link first): order[1]->order[0] has to land
		// before order[2]->order[1] overwrites order[1]'s old value, or
		// the value order[1] was supposed to hand down to order[0] is
		// lost.
		for i := 1; i < len(order); i++ {
			steps = append(steps, Step{FromReg: order[i], ToReg: order[i-1], SpillSlot: -1})
			done[order[i]] = true
		}
	}

	isInCycle := func(start *backend.Reg) bool {
		cur := start
		for {
			next, ok := dest[cur]
			if !ok {
				return false
			}
			if next == start {
				return true
			}
			cur = next
			if cur == start {
				return true
			}
		}
	}

	consumedFurther := map[*backend.Reg]bool{}
	for _, p := range perm {
		consumedFurther[p.From] = true
	}

	for _, p := range perm {
		if done[p.To] {
			continue
		}
		if isInCycle(p.To) {
			continue // handled in the cycle pass below
		}
		if consumedFurther[p.To] {
			continue // not the chain's sink; reached when its sink resolves
		}
		resolveChain(p.To)
	}

	for _, p := range perm {
		if done[p.To] || !isInCycle(p.To) {
			continue
		}
		slot := 0
		if slotInUse[0] {
			slot = 1
		}
		slotInUse[slot] = true

		start := p.To
		steps = append(steps, Step{FromReg: start, SpillSlot: slot, IsSpill: true})
		done[start] = true

		cur := dest[start]
		prev := start
		for cur != start {
			steps = append(steps, Step{FromReg: cur, ToReg: prev, SpillSlot: -1})
			done[cur] = true
			prev = cur
			cur = dest[cur]
		}
		steps = append(steps, Step{ToReg: prev, SpillSlot: slot, IsReload: true})
		slotInUse[slot] = false
	}

	return steps
}
