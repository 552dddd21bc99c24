package backend

import "testing"

func TestNewRegClassBackLinksRegisters(t *testing.T) {
	rc := NewRegClass("gpr", []string{"r0", "r1", "r2"})
	if len(rc.Registers) != 3 {
		t.Fatalf("expected 3 registers, got %d", len(rc.Registers))
	}
	for i, r := range rc.Registers {
		if r.Class != rc {
			t.Errorf("register %s.Class should back-link to rc", r.Name)
		}
		if r.Index != i {
			t.Errorf("register %s.Index = %d, want %d", r.Name, r.Index, i)
		}
	}
}

func TestRequirementSatisfiesNone(t *testing.T) {
	req := Requirement{Kind: ReqNone}
	if !req.Satisfies(nil, nil) {
		t.Error("ReqNone must accept any register, including nil")
	}
}

func TestRequirementSatisfiesClass(t *testing.T) {
	gpr := NewRegClass("gpr", []string{"r0", "r1"})
	fpr := NewRegClass("fpr", []string{"f0", "f1"})
	req := Requirement{Kind: ReqClass, Class: gpr}
	if !req.Satisfies(gpr.Registers[0], nil) {
		t.Error("ReqClass should accept a register from the matching class")
	}
	if req.Satisfies(fpr.Registers[0], nil) {
		t.Error("ReqClass should reject a register from a different class")
	}
	if req.Satisfies(nil, nil) {
		t.Error("ReqClass should reject a nil register")
	}
}

func TestRequirementSatisfiesExact(t *testing.T) {
	gpr := NewRegClass("gpr", []string{"r0", "r1"})
	req := Requirement{Kind: ReqExact, Exact: gpr.Registers[1]}
	if req.Satisfies(gpr.Registers[0], nil) {
		t.Error("ReqExact should reject any register other than the exact one")
	}
	if !req.Satisfies(gpr.Registers[1], nil) {
		t.Error("ReqExact should accept the exact register")
	}
}

func TestRequirementSatisfiesSameAndDifferent(t *testing.T) {
	gpr := NewRegClass("gpr", []string{"r0", "r1"})
	same := Requirement{Kind: ReqSame}
	diff := Requirement{Kind: ReqDifferent}

	if !same.Satisfies(gpr.Registers[0], nil) {
		t.Error("ReqSame with no other-operand assignment yet should be unconstrained")
	}
	if !same.Satisfies(gpr.Registers[0], gpr.Registers[0]) {
		t.Error("ReqSame should accept a register matching the other operand")
	}
	if same.Satisfies(gpr.Registers[0], gpr.Registers[1]) {
		t.Error("ReqSame should reject a register differing from the other operand")
	}

	if !diff.Satisfies(gpr.Registers[0], nil) {
		t.Error("ReqDifferent with no other-operand assignment yet should be unconstrained")
	}
	if diff.Satisfies(gpr.Registers[0], gpr.Registers[0]) {
		t.Error("ReqDifferent should reject a register matching the other operand")
	}
	if !diff.Satisfies(gpr.Registers[0], gpr.Registers[1]) {
		t.Error("ReqDifferent should accept a register differing from the other operand")
	}
}
