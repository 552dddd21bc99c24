// Package peephole is the post-register-allocation rewrite framework:
// a target registers a rewrite function per machine opcode, and Run
// walks the already-scheduled, already-colored
// instruction stream offering each instruction (plus a small window of
// context) to its registered rewriter, exchanging it in place when the
// rewriter finds a cheaper equivalent (e.g. Cmp-against-zero followed
// by a conditional branch collapsing to a flags-setting Test).
package peephole

// Instr is the minimal shape peephole needs from a scheduled, register-
// allocated instruction: an opcode key into the rewrite table, and
// opaque payload the target's own rewrite functions know how to read.
type Instr struct {
	Opcode  string
	Payload any
}

// Rewrite inspects instrs[at] (and may look at neighbors) and returns
// a replacement sequence plus true if it rewrote anything; returns
// (nil, false) to leave the instruction alone.
type Rewrite func(instrs []Instr, at int) ([]Instr, bool)

// Table is a target's opcode -> rewrite-function registry.
type Table struct {
	rules map[string][]Rewrite
}

// NewTable creates an empty rewrite table for one target.
func NewTable() *Table { return &Table{rules: map[string][]Rewrite{}} }

// Register adds a rewrite rule for opcode. Multiple rules may target
// the same opcode; they run in registration order and the first to
// match wins.
func (t *Table) Register(opcode string, r Rewrite) {
	t.rules[opcode] = append(t.rules[opcode], r)
}

// Run applies the table to an instruction stream until a full pass
// makes no further changes, exchanging matched instructions in place
// (ExchangeInPlace) rather than doing a full rebuild so register-usage
// tracking (UsedAfter) stays valid across the rewrite.
func (t *Table) Run(instrs []Instr) []Instr {
	changed := true
	for changed {
		changed = false
		for i := 0; i < len(instrs); i++ {
			rules := t.rules[instrs[i].Opcode]
			for _, rule := range rules {
				if repl, ok := rule(instrs, i); ok {
					instrs = ExchangeInPlace(instrs, i, repl)
					changed = true
					break
				}
			}
		}
	}
	return instrs
}

// ExchangeInPlace splices repl in place of instrs[at], handling the
// common 1-for-1 case without an allocation and falling back to a
// full splice when repl's length differs (a rule collapsing two
// instructions into one, or expanding one into several).
func ExchangeInPlace(instrs []Instr, at int, repl []Instr) []Instr {
	if len(repl) == 1 {
		instrs[at] = repl[0]
		return instrs
	}
	out := make([]Instr, 0, len(instrs)-1+len(repl))
	out = append(out, instrs[:at]...)
	out = append(out, repl...)
	out = append(out, instrs[at+1:]...)
	return out
}

// UsedAfter reports whether payload register name reg is referenced
// by any instruction from index after onward, via the caller-supplied
// usesReg predicate. Rewrite rules use this to confirm a value they
// want to drop (e.g. a Cmp result folded into a flags-setting op) has
// no other live consumer before deleting the producing instruction.
func UsedAfter(instrs []Instr, after int, reg string, usesReg func(Instr, string) bool) bool {
	for i := after; i < len(instrs); i++ {
		if usesReg(instrs[i], reg) {
			return true
		}
	}
	return false
}
