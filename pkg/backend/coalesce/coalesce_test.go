package coalesce

import (
	"testing"

	"github.com/sogcc/sog/pkg/backend"
)

func TestSolveAssignsEveryValue(t *testing.T) {
	gpr := backend.NewRegClass("gpr", []string{"r0", "r1", "r2"})
	a := &Value{ID: 1, Affinity: map[*Value]float64{}, Interferes: map[*Value]bool{}}
	b := &Value{ID: 2, Affinity: map[*Value]float64{}, Interferes: map[*Value]bool{}}
	values := []*Value{a, b}

	assign := Solve(values, gpr)
	for _, v := range values {
		if assign[v] == nil {
			t.Errorf("value %d got no register assignment", v.ID)
		}
	}
}

func TestSolveHonorsInterference(t *testing.T) {
	gpr := backend.NewRegClass("gpr", []string{"r0", "r1"})
	a := &Value{ID: 1, Affinity: map[*Value]float64{}, Interferes: map[*Value]bool{}}
	b := &Value{ID: 2, Affinity: map[*Value]float64{}, Interferes: map[*Value]bool{}}
	a.Interferes[b] = true
	b.Interferes[a] = true

	assign := Solve([]*Value{a, b}, gpr)
	if assign[a] == assign[b] {
		t.Errorf("interfering values must not share a register, both got %v", assign[a])
	}
}

func TestSolvePrefersAffinityCoalesce(t *testing.T) {
	gpr := backend.NewRegClass("gpr", []string{"r0", "r1", "r2"})
	a := &Value{ID: 1, Affinity: map[*Value]float64{}, Interferes: map[*Value]bool{}}
	b := &Value{ID: 2, Affinity: map[*Value]float64{}, Interferes: map[*Value]bool{}}
	a.Affinity[b] = 10
	b.Affinity[a] = 10

	assign := Solve([]*Value{a, b}, gpr)
	if assign[a] != assign[b] {
		t.Errorf("non-interfering affinity-linked values should coalesce onto the same register, got %v and %v", assign[a], assign[b])
	}
}

func TestSolveHonorsExactRequirement(t *testing.T) {
	gpr := backend.NewRegClass("gpr", []string{"r0", "r1", "r2"})
	a := &Value{
		ID:         1,
		Req:        backend.Requirement{Kind: backend.ReqExact, Exact: gpr.Registers[2]},
		Affinity:   map[*Value]float64{},
		Interferes: map[*Value]bool{},
	}
	assign := Solve([]*Value{a}, gpr)
	if assign[a] != gpr.Registers[2] {
		t.Errorf("ReqExact value should be pinned to its exact register, got %v", assign[a])
	}
}

func TestSolveReturnsNilWhenOutOfRegisters(t *testing.T) {
	gpr := backend.NewRegClass("gpr", []string{"r0"})
	a := &Value{ID: 1, Affinity: map[*Value]float64{}, Interferes: map[*Value]bool{}}
	b := &Value{ID: 2, Affinity: map[*Value]float64{}, Interferes: map[*Value]bool{}}
	a.Interferes[b] = true
	b.Interferes[a] = true

	assign := Solve([]*Value{a, b}, gpr)
	if assign[a] != nil && assign[b] != nil {
		t.Error("with one register and two interfering values, one must fail to be assigned (spill candidate)")
	}
}
