// Package op is the opcode registry: a small dense numbering of IR
// operations plus per-opcode static metadata (arity, pin-state,
// flags), populated into an init()-time table indexed by the enum.
package op

// Code is a compact identifier for an IR opcode.
type Code uint16

// PinState controls whether a node may float across blocks.
type PinState uint8

const (
	PinFloats PinState = iota
	PinPinned
	PinExcPinned // pinned only when it can raise an exception
	PinMemPinned // pinned only because it touches memory
)

// Flag is a bitset of opcode properties.
type Flag uint32

const (
	Commutative Flag = 1 << iota
	ConstLike
	ControlFlowFlag
	UsesMemory
	Fragile // may raise an exception; produces regular + exception projections
	StartBlockPlaced
	CSENeutral // bypasses GVN even though otherwise pure
	KeepAllowed
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// ArityKind distinguishes fixed, variable (client supplies a count at
// construction), and dynamic (append-only, e.g. Block/Phi) arities.
type ArityKind uint8

const (
	ArityFixed ArityKind = iota
	ArityVariable
	ArityDynamic
)

// Arity describes how many non-block predecessors an opcode takes.
type Arity struct {
	Kind  ArityKind
	Fixed int // meaningful when Kind == ArityFixed
}

// Info is the static metadata registered for one opcode.
type Info struct {
	Code      Code
	Name      string
	Pin       PinState
	Flags     Flag
	Arity     Arity
	MemInput  int // index of the memory input, or -1 if none
	NumProj   int // number of distinguished Proj outputs a fragile/tuple op exposes
}

// Registry holds every registered opcode, indexed by Code.
var Registry []Info

// Register adds a new opcode to the registry and returns its Code.
// Called only from init() in table.go; never during pass execution.
func Register(name string, pin PinState, flags Flag, arity Arity, memInput, numProj int) Code {
	c := Code(len(Registry))
	Registry = append(Registry, Info{
		Code: c, Name: name, Pin: pin, Flags: flags, Arity: arity,
		MemInput: memInput, NumProj: numProj,
	})
	return c
}

func (c Code) Info() *Info { return &Registry[c] }
func (c Code) String() string {
	if int(c) < len(Registry) {
		return Registry[c].Name
	}
	return "<invalid-opcode>"
}

func (c Code) IsCommutative() bool     { return Registry[c].Flags.Has(Commutative) }
func (c Code) IsConstLike() bool       { return Registry[c].Flags.Has(ConstLike) }
func (c Code) IsFragile() bool         { return Registry[c].Flags.Has(Fragile) }
func (c Code) IsControlFlow() bool     { return Registry[c].Flags.Has(ControlFlowFlag) }
func (c Code) UsesMemoryInput() bool   { return Registry[c].Flags.Has(UsesMemory) }
func (c Code) PinState() PinState      { return Registry[c].Pin }
func (c Code) MemInputIndex() int      { return Registry[c].MemInput }
