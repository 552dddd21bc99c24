package peephole

import "testing"

func TestTableRunAppliesFixedPointRewrite(t *testing.T) {
	table := NewTable()
	// incA rewrites "a" once into "b"; registered so a second pass
	// finds nothing further to do.
	table.Register("a", func(instrs []Instr, at int) ([]Instr, bool) {
		return []Instr{{Opcode: "b"}}, true
	})
	out := table.Run([]Instr{{Opcode: "a"}, {Opcode: "c"}})
	if len(out) != 2 || out[0].Opcode != "b" || out[1].Opcode != "c" {
		t.Errorf("expected [b c], got %+v", out)
	}
}

func TestTableRunFirstMatchingRuleWins(t *testing.T) {
	table := NewTable()
	table.Register("a", func(instrs []Instr, at int) ([]Instr, bool) {
		return []Instr{{Opcode: "first"}}, true
	})
	table.Register("a", func(instrs []Instr, at int) ([]Instr, bool) {
		return []Instr{{Opcode: "second"}}, true
	})
	out := table.Run([]Instr{{Opcode: "a"}})
	if len(out) != 1 || out[0].Opcode != "first" {
		t.Errorf("expected the first registered rule to win, got %+v", out)
	}
}

func TestTableRunLeavesUnmatchedOpcodesAlone(t *testing.T) {
	table := NewTable()
	table.Register("a", func(instrs []Instr, at int) ([]Instr, bool) { return nil, false })
	in := []Instr{{Opcode: "a"}, {Opcode: "z"}}
	out := table.Run(in)
	if len(out) != 2 || out[0].Opcode != "a" || out[1].Opcode != "z" {
		t.Errorf("unmatched opcodes should pass through unchanged, got %+v", out)
	}
}

func TestExchangeInPlaceSameLength(t *testing.T) {
	instrs := []Instr{{Opcode: "a"}, {Opcode: "b"}, {Opcode: "c"}}
	out := ExchangeInPlace(instrs, 1, []Instr{{Opcode: "x"}})
	if len(out) != 3 || out[1].Opcode != "x" {
		t.Errorf("expected 1-for-1 exchange, got %+v", out)
	}
}

func TestExchangeInPlaceCollapsesTwoIntoOne(t *testing.T) {
	instrs := []Instr{{Opcode: "a"}, {Opcode: "b"}, {Opcode: "c"}}
	out := ExchangeInPlace(instrs, 1, []Instr{})
	if len(out) != 2 || out[0].Opcode != "a" || out[1].Opcode != "c" {
		t.Errorf("expected [a c] after removing b, got %+v", out)
	}
}

func TestExchangeInPlaceExpandsOneIntoMany(t *testing.T) {
	instrs := []Instr{{Opcode: "a"}, {Opcode: "b"}}
	out := ExchangeInPlace(instrs, 0, []Instr{{Opcode: "x"}, {Opcode: "y"}})
	if len(out) != 3 || out[0].Opcode != "x" || out[1].Opcode != "y" || out[2].Opcode != "b" {
		t.Errorf("expected [x y b], got %+v", out)
	}
}

func TestUsedAfterFindsLaterReference(t *testing.T) {
	instrs := []Instr{{Opcode: "a", Payload: "r1"}, {Opcode: "b", Payload: "r2"}}
	usesReg := func(in Instr, reg string) bool { return in.Payload == reg }
	if !UsedAfter(instrs, 0, "r2", usesReg) {
		t.Error("r2 is referenced at index 1, UsedAfter should find it")
	}
	if UsedAfter(instrs, 0, "r3", usesReg) {
		t.Error("r3 is never referenced, UsedAfter should report false")
	}
}

func TestUsedAfterRespectsStartIndex(t *testing.T) {
	instrs := []Instr{{Opcode: "a", Payload: "r1"}, {Opcode: "b", Payload: "r2"}}
	usesReg := func(in Instr, reg string) bool { return in.Payload == reg }
	if UsedAfter(instrs, 1, "r1", usesReg) {
		t.Error("r1 only appears before the start index; UsedAfter should not find it")
	}
}
