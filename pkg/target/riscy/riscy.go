// Package riscy is sog's one shipped backend target: a 16-GPR,
// one-delay-slot, PC-relative-addressing RISC-class machine, chosen
// to exercise every knob pkg/emit, pkg/backend, and
// pkg/backend/peephole expose rather than to model any particular
// real ISA. Register naming (r0..r15, a flat general-purpose class
// with no reserved-by-convention split) follows the teacher's
// pkg/cpu flat register-file style, generalized from Z80's eight
// 8-bit registers to sixteen generic slots.
package riscy

import (
	"fmt"
	"io"

	"github.com/sogcc/sog/pkg/backend"
	"github.com/sogcc/sog/pkg/backend/coalesce"
	"github.com/sogcc/sog/pkg/backend/peephole"
	"github.com/sogcc/sog/pkg/emit"
	"github.com/sogcc/sog/pkg/op"
)

// GPR is riscy's sole register class: 16 general-purpose registers,
// any of which may hold an integer or pointer value. r15 is reserved
// by convention (not enforced here) as the link register Prologue/
// Epilogue push and pop.
var GPR = backend.NewRegClass("gpr", []string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
})

// HasNativeBuiltin reports whether riscy has a single instruction for
// the given bit-manipulation builtin. riscy has a byte-swap
// instruction (endian conversion is common enough on a load/store
// machine to deserve one); ffs/clz/ctz/popcount/parity and prefetch
// all lower to runtime calls or, for prefetch, to a dropped no-op
// (riscy has no cache-hint instruction at all).
func HasNativeBuiltin(code op.Code) bool {
	return code == op.Bswap
}

// RuntimeSymbol names the runtime helper riscy calls for a builtin it
// has no instruction for, following the "__<builtin>si2" convention
// used by library-call lowering schemes for a 32-bit argument.
func RuntimeSymbol(code op.Code) string {
	switch code {
	case op.Ffs:
		return "__ffssi2"
	case op.Clz:
		return "__clzsi2"
	case op.Ctz:
		return "__ctzsi2"
	case op.Popcount:
		return "__popcountsi2"
	case op.Parity:
		return "__paritysi2"
	default:
		panic(fmt.Sprintf("riscy: RuntimeSymbol: no runtime helper registered for builtin %s", code))
	}
}

// formatTable is riscy's opcode -> directive-template map (spec.md
// §4.14's "format-string emitter"). Directives are the closed set
// pkg/emit.render understands; riscy never invents its own.
var formatTable = map[string]string{
	"add":   "add %D1, %S1, %S2",
	"sub":   "sub %D1, %S1, %S2",
	"mul":   "mul %D1, %S1, %S2",
	"and":   "and %D1, %S1, %S2",
	"or":    "or %D1, %S1, %S2",
	"xor":   "xor %D1, %S1, %S2",
	"not":   "not %D1, %S1",
	"neg":   "neg %D1, %S1",
	"shl":   "shl %D1, %S1, %S2",
	"shr":   "shr %D1, %S1, %S2",
	"sar":   "sar %D1, %S1, %S2",
	"mov":   "mov %D1, %S1",
	"movi":  "mov %D1, %S1",
	"load":  "ld%M %D1, [%S1]",
	"store": "st%M [%D1], %S1",
	"cmp":   "cmp %S1, %S2",
	"test":  "test %S1, %S2",
	"bcond": "b%C %t",
	"jmp":   "jmp %t",
	"call":  "call %t",
	"ret":   "ret",
	"nop":   "nop",
	"push":  "push %S1",
	"pop":   "pop %D1",
}

// Target implements emit.Target for the riscy machine.
type Target struct{}

// FormatString looks opcode up in formatTable.
func (Target) FormatString(opcode string) (string, bool) {
	s, ok := formatTable[opcode]
	return s, ok
}

// DelaySlots is 1: riscy is a classic single-delay-slot RISC, like
// the SPARC target spec.md illustrates.
func (Target) DelaySlots() int { return 1 }

// Prologue pushes the link register and reserves frameSize bytes of
// stack for locals/spills.
func (Target) Prologue(w io.Writer, frameSize int) {
	fmt.Fprintf(w, "\tpush r15\n")
	if frameSize > 0 {
		fmt.Fprintf(w, "\tsub sp, sp, %d\n", frameSize)
	}
}

// Epilogue undoes Prologue in reverse.
func (Target) Epilogue(w io.Writer, frameSize int) {
	if frameSize > 0 {
		fmt.Fprintf(w, "\tadd sp, sp, %d\n", frameSize)
	}
	fmt.Fprintf(w, "\tpop r15\n")
	fmt.Fprintf(w, "\tret\n")
}

// AdjustPIC rewrites a call/data/block-label operand into riscy's one
// position-independent addressing form. Unlike spec.md's x86/ELF/Mach-O
// illustration (trampoline entities for calls, GOT/non-lazy-pointer
// symbols for data, a pic-base + symbol Add for everything else),
// riscy has no absolute-addressing instruction form at all: every
// branch and call target is already PC-relative in its native
// encoding, so there is no "none" style to switch on and no second
// convention to pick between. AdjustPIC's only job is to mark the
// referenced operand so the assembler emits a PC-relative relocation
// instead of treating the symbol as a bare label; block-label operands
// bypass this entirely, matching spec.md's rule that block addresses
// never go through the data/call PIC path.
func (Target) AdjustPIC(in emit.Instruction) emit.Instruction {
	if in.IsBlockRef {
		return in
	}
	if !in.IsCall && !in.IsDataRef {
		return in
	}
	if in.PICRefOperand < 0 || in.PICRefOperand >= len(in.Operands) {
		return in
	}
	out := in
	out.Operands = append([]string{}, in.Operands...)
	out.Operands[in.PICRefOperand] = out.Operands[in.PICRefOperand] + "@PCREL"
	return out
}

// PeepholeTable is riscy's post-register-allocation rewrite table.
var PeepholeTable = buildPeepholeTable()

func buildPeepholeTable() *peephole.Table {
	t := peephole.NewTable()
	t.Register("cmp", cmpZeroToTest)
	return t
}

// cmpZeroToTest collapses `cmp reg, 0` immediately guarding a `bcond`
// into `test reg, reg`: both set riscy's zero/sign flags identically
// for a comparison against zero, so the bcond reads the same
// condition either way. The rewrite only fires when reg has no use
// left after the branch — test's flag semantics for riscy's unsigned
// condition codes haven't been proven equivalent to cmp's across every
// register class (double-word pairs in particular), so the collapse
// stays conservative rather than risk one of those classes.
func cmpZeroToTest(instrs []peephole.Instr, at int) ([]peephole.Instr, bool) {
	cur := instrs[at]
	operands, ok := cur.Payload.([2]string)
	if !ok || operands[1] != "0" {
		return nil, false
	}
	if at+1 >= len(instrs) || instrs[at+1].Opcode != "bcond" {
		return nil, false
	}
	reg := operands[0]
	if peephole.UsedAfter(instrs, at+1, reg, usesReg) {
		return nil, false
	}
	return []peephole.Instr{{Opcode: "test", Payload: [2]string{reg, reg}}}, true
}

// usesReg reports whether in reads reg among its (at most two, riscy
// peephole-level) operands.
func usesReg(in peephole.Instr, reg string) bool {
	operands, ok := in.Payload.([2]string)
	if !ok {
		return false
	}
	return operands[0] == reg || operands[1] == reg
}

// Permute turns coalesce.MemPerm's Steps into the mov/push/pop
// instructions that actually realize a register permutation at a
// control-flow merge. A plain register-to-register step becomes a
// mov; a spill/reload through one of MemPerm's two scratch slots
// becomes a push/pop (riscy has no indexed stack-slot addressing, so
// push/pop is the only way to park a value without a third register).
func Permute(steps []coalesce.Step) []emit.Instruction {
	var out []emit.Instruction
	for _, s := range steps {
		switch {
		case s.IsSpill:
			out = append(out, emit.Instruction{
				Opcode:   "push",
				Operands: []string{s.FromReg.Name},
				Kinds:    []emit.OperandKind{emit.OperandSrc},
			})
		case s.IsReload:
			out = append(out, emit.Instruction{
				Opcode:   "pop",
				Operands: []string{s.ToReg.Name},
				Kinds:    []emit.OperandKind{emit.OperandDst},
			})
		default:
			out = append(out, emit.Instruction{
				Opcode:   "mov",
				Operands: []string{s.ToReg.Name, s.FromReg.Name},
				Kinds:    []emit.OperandKind{emit.OperandDst, emit.OperandSrc},
			})
		}
	}
	return out
}
