package riscy

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sogcc/sog/pkg/backend"
	"github.com/sogcc/sog/pkg/backend/coalesce"
	"github.com/sogcc/sog/pkg/backend/peephole"
	"github.com/sogcc/sog/pkg/emit"
	"github.com/sogcc/sog/pkg/op"
)

func TestHasNativeBuiltinOnlyBswap(t *testing.T) {
	if !HasNativeBuiltin(op.Bswap) {
		t.Error("riscy should have a native bswap instruction")
	}
	for _, code := range []op.Code{op.Ffs, op.Clz, op.Ctz, op.Popcount, op.Parity, op.Prefetch} {
		if HasNativeBuiltin(code) {
			t.Errorf("riscy should not claim a native instruction for %s", code)
		}
	}
}

func TestRuntimeSymbolNames(t *testing.T) {
	cases := map[op.Code]string{
		op.Ffs:      "__ffssi2",
		op.Clz:      "__clzsi2",
		op.Ctz:      "__ctzsi2",
		op.Popcount: "__popcountsi2",
		op.Parity:   "__paritysi2",
	}
	for code, want := range cases {
		if got := RuntimeSymbol(code); got != want {
			t.Errorf("RuntimeSymbol(%s) = %q, want %q", code, got, want)
		}
	}
}

func TestRuntimeSymbolPanicsOnNativeBuiltin(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected RuntimeSymbol(op.Bswap) to panic: bswap has no runtime helper")
		}
	}()
	RuntimeSymbol(op.Bswap)
}

func TestTargetImplementsEmitTarget(t *testing.T) {
	var _ emit.Target = Target{}
}

func TestFormatStringKnowsCoreOpcodes(t *testing.T) {
	for _, mnemonic := range []string{"add", "cmp", "bcond", "jmp", "ret", "nop", "push", "pop"} {
		if _, ok := (Target{}).FormatString(mnemonic); !ok {
			t.Errorf("FormatString(%q) should be known", mnemonic)
		}
	}
	if _, ok := (Target{}).FormatString("frobnicate"); ok {
		t.Error("FormatString should reject an opcode riscy never registered")
	}
}

func TestDelaySlotsIsOne(t *testing.T) {
	if (Target{}).DelaySlots() != 1 {
		t.Error("riscy is a single-delay-slot machine")
	}
}

func TestPrologueEpilogueBalanceFrame(t *testing.T) {
	var buf bytes.Buffer
	Target{}.Prologue(&buf, 16)
	Target{}.Epilogue(&buf, 16)
	out := buf.String()
	if !strings.Contains(out, "push r15") || !strings.Contains(out, "pop r15") {
		t.Errorf("expected r15 pushed and popped, got %q", out)
	}
	if strings.Count(out, "sp, sp") != 2 {
		t.Errorf("expected frame adjustment in both prologue and epilogue, got %q", out)
	}
}

func TestPrologueEpilogueSkipFrameAdjustWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	Target{}.Prologue(&buf, 0)
	Target{}.Epilogue(&buf, 0)
	if strings.Contains(buf.String(), "sp") {
		t.Errorf("a zero-size frame should not touch sp, got %q", buf.String())
	}
}

func TestAdjustPICLeavesBlockRefsAlone(t *testing.T) {
	in := emit.Instruction{
		Opcode: "jmp", Operands: []string{"L3"}, IsBlockRef: true,
	}
	out := Target{}.AdjustPIC(in)
	if out.Operands[0] != "L3" {
		t.Errorf("block-label operand should pass through unchanged, got %q", out.Operands[0])
	}
}

func TestAdjustPICTagsCallTarget(t *testing.T) {
	in := emit.Instruction{
		Opcode: "call", Operands: []string{"memcpy"}, IsCall: true, PICRefOperand: 0,
	}
	out := Target{}.AdjustPIC(in)
	if out.Operands[0] != "memcpy@PCREL" {
		t.Errorf("expected a PC-relative call target, got %q", out.Operands[0])
	}
	// AdjustPIC must not mutate the instruction it was handed.
	if in.Operands[0] != "memcpy" {
		t.Errorf("AdjustPIC mutated its input in place: %q", in.Operands[0])
	}
}

func TestAdjustPICIgnoresPlainOperands(t *testing.T) {
	in := emit.Instruction{Opcode: "add", Operands: []string{"r1", "r2", "r3"}}
	out := Target{}.AdjustPIC(in)
	for i, o := range out.Operands {
		if o != in.Operands[i] {
			t.Errorf("non-PIC-eligible operand %d changed: %q -> %q", i, in.Operands[i], o)
		}
	}
}

func TestCmpZeroToTestCollapsesWhenDead(t *testing.T) {
	instrs := []peephole.Instr{
		{Opcode: "cmp", Payload: [2]string{"r1", "0"}},
		{Opcode: "bcond", Payload: [2]string{"eq", "L1"}},
		{Opcode: "ret"},
	}
	out := PeepholeTable.Run(instrs)
	if len(out) != 3 || out[0].Opcode != "test" {
		t.Fatalf("expected cmp collapsed into test, got %+v", out)
	}
	payload := out[0].Payload.([2]string)
	if payload[0] != "r1" || payload[1] != "r1" {
		t.Errorf("expected test r1, r1, got %v", payload)
	}
}

func TestCmpZeroToTestLeavesLiveRegisterAlone(t *testing.T) {
	instrs := []peephole.Instr{
		{Opcode: "cmp", Payload: [2]string{"r1", "0"}},
		{Opcode: "bcond", Payload: [2]string{"eq", "L1"}},
		{Opcode: "add", Payload: [2]string{"r2", "r1"}}, // r1 still read here
		{Opcode: "ret"},
	}
	out := PeepholeTable.Run(instrs)
	if out[0].Opcode != "cmp" {
		t.Errorf("r1 is used after the branch; cmp should not collapse to test, got %+v", out)
	}
}

func TestCmpZeroToTestIgnoresNonZeroComparisons(t *testing.T) {
	instrs := []peephole.Instr{
		{Opcode: "cmp", Payload: [2]string{"r1", "r2"}},
		{Opcode: "bcond", Payload: [2]string{"eq", "L1"}},
	}
	out := PeepholeTable.Run(instrs)
	if out[0].Opcode != "cmp" {
		t.Errorf("cmp against a register (not literal 0) must not collapse, got %+v", out)
	}
}

func TestCmpZeroToTestRequiresImmediatelyFollowingBcond(t *testing.T) {
	instrs := []peephole.Instr{
		{Opcode: "cmp", Payload: [2]string{"r1", "0"}},
		{Opcode: "nop"},
		{Opcode: "bcond", Payload: [2]string{"eq", "L1"}},
	}
	out := PeepholeTable.Run(instrs)
	if out[0].Opcode != "cmp" {
		t.Errorf("a cmp not immediately followed by bcond must not collapse, got %+v", out)
	}
}

func TestPermuteTranslatesPlainMove(t *testing.T) {
	gpr := backend.NewRegClass("gpr", []string{"r0", "r1"})
	steps := []coalesce.Step{
		{FromReg: gpr.Registers[0], ToReg: gpr.Registers[1], SpillSlot: -1},
	}
	out := Permute(steps)
	if len(out) != 1 || out[0].Opcode != "mov" {
		t.Fatalf("expected a single mov, got %+v", out)
	}
	if out[0].Operands[0] != "r1" || out[0].Operands[1] != "r0" {
		t.Errorf("expected mov r1, r0, got %v", out[0].Operands)
	}
}

func TestPermuteTranslatesSpillAndReload(t *testing.T) {
	gpr := backend.NewRegClass("gpr", []string{"r0", "r1"})
	steps := []coalesce.Step{
		{FromReg: gpr.Registers[0], SpillSlot: 0, IsSpill: true},
		{ToReg: gpr.Registers[1], SpillSlot: 0, IsReload: true},
	}
	out := Permute(steps)
	if len(out) != 2 || out[0].Opcode != "push" || out[1].Opcode != "pop" {
		t.Fatalf("expected [push pop], got %+v", out)
	}
	if out[0].Operands[0] != "r0" || out[1].Operands[0] != "r1" {
		t.Errorf("unexpected operands: %+v", out)
	}
}

func TestPermuteResolvesACycleEndToEnd(t *testing.T) {
	// Three registers rotating a -> b -> c -> a: MemPerm breaks the
	// cycle with one spill/reload pair, and Permute must turn every
	// Step it returns into a runnable instruction (scenario akin to
	// spec.md S5's register-rotation check, but through riscy's
	// mov/push/pop encoding rather than a permi instruction).
	gpr := backend.NewRegClass("gpr", []string{"a", "b", "c"})
	a, b, c := gpr.Registers[0], gpr.Registers[1], gpr.Registers[2]
	perm := []coalesce.Perm{
		{From: a, To: b},
		{From: b, To: c},
		{From: c, To: a},
	}
	steps := coalesce.MemPerm(perm)
	instrs := Permute(steps)
	if len(instrs) != len(steps) {
		t.Fatalf("Permute should emit exactly one instruction per Step, got %d for %d", len(instrs), len(steps))
	}
	for _, in := range instrs {
		switch in.Opcode {
		case "mov", "push", "pop":
		default:
			t.Errorf("unexpected opcode %q in permutation sequence", in.Opcode)
		}
	}
}
