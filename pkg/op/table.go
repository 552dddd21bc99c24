package op

// The built-in opcode table: for each opcode, its arity, pin-state,
// flags, memory-input index, and how many Proj outputs a
// tuple-producing opcode exposes.

const noMemInput = -1

var (
	// Structural.
	Start = Register("Start", PinPinned, ControlFlowFlag|ConstLike, Arity{Kind: ArityFixed, Fixed: 0}, noMemInput, 3) // Proj: mem, args-tuple, ctrl
	End   = Register("End", PinPinned, ControlFlowFlag, Arity{Kind: ArityVariable}, noMemInput, 0)
	Block = Register("Block", PinPinned, ControlFlowFlag, Arity{Kind: ArityDynamic}, noMemInput, 0)
	Bad   = Register("Bad", PinFloats, ConstLike, Arity{Kind: ArityFixed, Fixed: 0}, noMemInput, 0)
	NoMem = Register("NoMem", PinFloats, ConstLike, Arity{Kind: ArityFixed, Fixed: 0}, noMemInput, 0)
	Dummy = Register("Dummy", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 0}, noMemInput, 0)

	// Constants.
	Const    = Register("Const", PinFloats, ConstLike, Arity{Kind: ArityFixed, Fixed: 0}, noMemInput, 0)
	SymConst = Register("SymConst", PinFloats, ConstLike, Arity{Kind: ArityFixed, Fixed: 0}, noMemInput, 0)

	// Arithmetic / logic (pure, floatable).
	Add   = Register("Add", PinFloats, Commutative, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 0)
	Sub   = Register("Sub", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 0)
	Mul   = Register("Mul", PinFloats, Commutative, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 0)
	And   = Register("And", PinFloats, Commutative, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 0)
	Or    = Register("Or", PinFloats, Commutative, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 0)
	Xor   = Register("Xor", PinFloats, Commutative, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 0)
	Not   = Register("Not", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, 0)
	Minus = Register("Minus", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, 0)
	Shl   = Register("Shl", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 0)
	Shr   = Register("Shr", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 0)  // logical
	Shrs  = Register("Shrs", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 0) // arithmetic
	Conv  = Register("Conv", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, 0)

	// Trapping arithmetic: memory input models the possibility of a
	// divide-by-zero exception edge.
	Div = Register("Div", PinExcPinned, Fragile|UsesMemory, Arity{Kind: ArityFixed, Fixed: 3}, 1, 3) // M, ptr-less dividend, divisor
	Mod = Register("Mod", PinExcPinned, Fragile|UsesMemory, Arity{Kind: ArityFixed, Fixed: 3}, 1, 3)

	// Comparison / control.
	Cmp    = Register("Cmp", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 0)
	Cond   = Register("Cond", PinPinned, ControlFlowFlag, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, 2) // Proj: false, true
	Jmp    = Register("Jmp", PinPinned, ControlFlowFlag, Arity{Kind: ArityFixed, Fixed: 0}, noMemInput, 0)
	Switch = Register("Switch", PinPinned, ControlFlowFlag, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, -1) // NumProj: dynamic, see node attribute
	Return = Register("Return", PinPinned, ControlFlowFlag|UsesMemory, Arity{Kind: ArityVariable}, 1, 0)
	Mux    = Register("Mux", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 3}, noMemInput, 0) // sel, true-val, false-val

	// SSA plumbing.
	Phi  = Register("Phi", PinPinned, 0, Arity{Kind: ArityDynamic}, noMemInput, 0)
	Proj = Register("Proj", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, 0)

	// Memory.
	Load  = Register("Load", PinExcPinned, Fragile|UsesMemory, Arity{Kind: ArityFixed, Fixed: 2}, 1, 3)  // M, ptr -> M', res, X_except
	Store = Register("Store", PinExcPinned, Fragile|UsesMemory, Arity{Kind: ArityFixed, Fixed: 3}, 1, 2) // M, ptr, val -> M', X_except
	Sync  = Register("Sync", PinPinned, UsesMemory, Arity{Kind: ArityVariable}, noMemInput, 0)
	Call  = Register("Call", PinMemPinned, Fragile|UsesMemory, Arity{Kind: ArityVariable}, 1, 3)
	Tuple = Register("Tuple", PinFloats, 0, Arity{Kind: ArityVariable}, noMemInput, 0)

	// Inline assembly / target-specific escape hatch: Template plus an
	// operand constraints list, carried on the node's ASMAttr.
	ASM = Register("ASM", PinMemPinned, UsesMemory, Arity{Kind: ArityVariable}, 0, 0)

	// Builtins lowered by pkg/lower.LowerBuiltin.
	Ffs      = Register("Ffs", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, 0)
	Clz      = Register("Clz", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, 0)
	Ctz      = Register("Ctz", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, 0)
	Popcount = Register("Popcount", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, 0)
	Parity   = Register("Parity", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, 0)
	Bswap    = Register("Bswap", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 1}, noMemInput, 0)
	Prefetch = Register("Prefetch", PinPinned, UsesMemory, Arity{Kind: ArityFixed, Fixed: 2}, 1, 0)

	// Carry-aware double-word primitives used by pkg/lower.Lower64
	// when the target offers them.
	AddCC = Register("AddCC", PinFloats, Commutative, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 2) // Proj: result, carry-out
	AddX  = Register("AddX", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 3}, noMemInput, 2)            // a, b, carry-in -> result, carry-out
	SubCC = Register("SubCC", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 2}, noMemInput, 2)
	SubX  = Register("SubX", PinFloats, 0, Arity{Kind: ArityFixed, Fixed: 3}, noMemInput, 2)
)

// NumOpcodes returns the number of registered opcodes (built-ins plus
// anything a target registered afterward).
func NumOpcodes() int { return len(Registry) }
