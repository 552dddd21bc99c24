// Package backend is the register-allocation protocol: register
// classes, concrete registers, and the per-operand requirements a
// target instruction imposes on whatever allocator runs against it.
// sog ships one allocator-facing solver (pkg/backend/coalesce) rather
// than treating allocation as a pluggable interface with no
// implementation, since a protocol with no concrete consumer can't be
// exercised by tests.
package backend

// RegClass is a named set of interchangeable physical registers (e.g.
// "gpr", "fpr").
type RegClass struct {
	Name      string
	Registers []*Reg
}

// Reg is one physical register.
type Reg struct {
	Name  string
	Class *RegClass
	Index int // position within Class.Registers
}

// ReqKind enumerates the shapes a Requirement can take.
type ReqKind int

const (
	ReqNone      ReqKind = iota // no constraint; any register, any class
	ReqClass                    // must come from a specific RegClass
	ReqExact                    // must be exactly one physical register
	ReqSame                     // must match another operand's assigned register
	ReqDifferent                // must differ from another operand's assigned register
)

// Requirement is the constraint a target instruction places on one
// operand or result slot.
type Requirement struct {
	Kind         ReqKind
	Class        *RegClass
	Exact        *Reg
	OtherOperand int // meaningful for ReqSame/ReqDifferent: index into the same instruction's operand list
}

// Satisfies reports whether assigning r to this slot honors the
// requirement, given the register already picked for OtherOperand
// (ignored unless Kind is ReqSame/ReqDifferent).
func (req Requirement) Satisfies(r *Reg, other *Reg) bool {
	switch req.Kind {
	case ReqNone:
		return true
	case ReqClass:
		return r != nil && r.Class == req.Class
	case ReqExact:
		return r == req.Exact
	case ReqSame:
		return other == nil || r == other
	case ReqDifferent:
		return other == nil || r != other
	}
	return false
}

// NewRegClass builds a register class and back-links every register
// to it.
func NewRegClass(name string, names []string) *RegClass {
	rc := &RegClass{Name: name}
	for i, n := range names {
		rc.Registers = append(rc.Registers, &Reg{Name: n, Class: rc, Index: i})
	}
	return rc
}
