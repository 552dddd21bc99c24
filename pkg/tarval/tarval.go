// Package tarval is the target-value arithmetic engine: interned
// constants in a specific mode, with bit-exact two's-complement or
// IEEE-754 semantics and a relation lattice for comparisons. A compact
// value struct plus precomputed lookup tables stands in for a generic
// bignum library.
package tarval

import (
	"fmt"
	"math"
	"sync"

	"github.com/sogcc/sog/pkg/mode"
)

// Relation is a bitset lattice: {false, equal, less, greater,
// unordered} and their unions.
type Relation uint8

const (
	False     Relation = 0
	Equal     Relation = 1 << 0
	Less      Relation = 1 << 1
	Greater   Relation = 1 << 2
	Unordered Relation = 1 << 3

	LessEqual     = Less | Equal
	GreaterEqual  = Greater | Equal
	LessGreater   = Less | Greater
	NotEqual      = Less | Greater | Unordered
	LessEqualUO   = LessEqual | Unordered
	GreaterEqUO   = GreaterEqual | Unordered
	True          = Equal | Less | Greater | Unordered
)

func (r Relation) String() string {
	if r == False {
		return "false"
	}
	if r == True {
		return "true"
	}
	s := ""
	if r&Less != 0 {
		s += "<"
	}
	if r&Equal != 0 {
		s += "="
	}
	if r&Greater != 0 {
		s += ">"
	}
	if r&Unordered != 0 {
		s += "?"
	}
	return s
}

// Value is an interned target value in a specific mode.
type Value struct {
	m      *mode.Mode
	lo, hi uint64  // two's-complement payload for Int/Reference/Boolean sorts
	f      float64 // payload for Float sorts (F128 approximated as float64; see DESIGN.md)
}

func (v *Value) Mode() *mode.Mode { return v.m }

// Uint64 returns the low 64 bits of the integer payload.
func (v *Value) Uint64() uint64 { return v.lo }

// Int64 returns the payload sign-extended from the mode's bit width.
func (v *Value) Int64() int64 {
	bits := v.m.SizeBits()
	if bits >= 64 {
		return int64(v.lo)
	}
	shift := 64 - uint(bits)
	return int64(v.lo<<shift) >> shift
}

func (v *Value) Float64() float64 { return v.f }

func (v *Value) String() string {
	switch v.m.Sort() {
	case mode.Float:
		return fmt.Sprintf("%g:%s", v.f, v.m)
	case mode.Boolean:
		if v.lo != 0 {
			return "true"
		}
		return "false"
	default:
		if v.m.Signed() {
			return fmt.Sprintf("%d:%s", v.Int64(), v.m)
		}
		return fmt.Sprintf("%d:%s", v.lo, v.m)
	}
}

type key struct {
	m      *mode.Mode
	lo, hi uint64
	f      float64
}

var (
	internMu sync.Mutex
	interned = map[key]*Value{}
)

func intern(k key) *Value {
	internMu.Lock()
	defer internMu.Unlock()
	if v, ok := interned[k]; ok {
		return v
	}
	v := &Value{m: k.m, lo: k.lo, hi: k.hi, f: k.f}
	interned[k] = v
	return v
}

func maskBits(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}

// FromInt64 builds an interned value, truncating/wrapping v to the
// mode's bit width (two's-complement "wrap-around" semantics).
func FromInt64(m *mode.Mode, v int64) *Value {
	if m.Sort() == mode.Float {
		return FromFloat64(m, float64(v))
	}
	lo := uint64(v) & maskBits(m.SizeBits())
	return intern(key{m: m, lo: lo})
}

// FromUint64 is FromInt64's unsigned counterpart.
func FromUint64(m *mode.Mode, v uint64) *Value {
	if m.Sort() == mode.Float {
		return FromFloat64(m, float64(v))
	}
	return intern(key{m: m, lo: v & maskBits(m.SizeBits())})
}

// FromFloat64 builds an interned float value. F32 values are rounded
// to float32 precision first so two FromFloat64 calls with visually
// distinct but F32-indistinguishable inputs intern to the same Value.
func FromFloat64(m *mode.Mode, v float64) *Value {
	if m == mode.F32 {
		v = float64(float32(v))
	}
	return intern(key{m: m, f: v})
}

// FromBool builds the canonical boolean tarval.
func FromBool(b bool) *Value {
	if b {
		return intern(key{m: mode.B, lo: 1})
	}
	return intern(key{m: mode.B, lo: 0})
}

// Null, One, AllOnes, Min, Max: the canonical per-mode constants.
// They live here (not on *mode.Mode) to avoid a mode<->tarval import
// cycle; each is computed once and interned.

func Null(m *mode.Mode) *Value {
	if m.Sort() == mode.Float {
		return FromFloat64(m, 0)
	}
	return FromUint64(m, 0)
}

func One(m *mode.Mode) *Value {
	if m.Sort() == mode.Float {
		return FromFloat64(m, 1)
	}
	return FromUint64(m, 1)
}

func AllOnes(m *mode.Mode) *Value {
	if m.Sort() == mode.Float {
		panic("tarval: AllOnes undefined for float modes")
	}
	return FromUint64(m, maskBits(m.SizeBits()))
}

func Min(m *mode.Mode) *Value {
	switch m.Sort() {
	case mode.Float:
		return FromFloat64(m, -math.MaxFloat64)
	case mode.Int:
		if m.Signed() {
			return FromUint64(m, uint64(1)<<uint(m.SizeBits()-1))
		}
		return FromUint64(m, 0)
	default:
		return FromUint64(m, 0)
	}
}

func Max(m *mode.Mode) *Value {
	switch m.Sort() {
	case mode.Float:
		return FromFloat64(m, math.MaxFloat64)
	case mode.Int:
		if m.Signed() {
			return FromUint64(m, maskBits(m.SizeBits())>>1)
		}
		return FromUint64(m, maskBits(m.SizeBits()))
	default:
		return FromUint64(m, maskBits(m.SizeBits()))
	}
}

func IsNull(v *Value) bool { return v == Null(v.m) }
func IsOne(v *Value) bool  { return v == One(v.m) }

// Cmp computes the relation of a to b. Both must share a mode.
func Cmp(a, b *Value) Relation {
	if a.m != b.m {
		panic("tarval: Cmp across modes")
	}
	if a.m.Sort() == mode.Float {
		if math.IsNaN(a.f) || math.IsNaN(b.f) {
			return Unordered
		}
		switch {
		case a.f < b.f:
			return Less
		case a.f > b.f:
			return Greater
		default:
			return Equal
		}
	}
	if a.m.Signed() {
		ai, bi := a.Int64(), b.Int64()
		switch {
		case ai < bi:
			return Less
		case ai > bi:
			return Greater
		default:
			return Equal
		}
	}
	switch {
	case a.lo < b.lo:
		return Less
	case a.lo > b.lo:
		return Greater
	default:
		return Equal
	}
}

// Sub computes a - b with wrap-around in the shared mode.
func Sub(a, b *Value) *Value {
	if a.m != b.m {
		panic("tarval: Sub across modes")
	}
	if a.m.Sort() == mode.Float {
		return FromFloat64(a.m, a.f-b.f)
	}
	return FromUint64(a.m, a.lo-b.lo)
}

// Add computes a + b with wrap-around in the shared mode.
func Add(a, b *Value) *Value {
	if a.m != b.m {
		panic("tarval: Add across modes")
	}
	if a.m.Sort() == mode.Float {
		return FromFloat64(a.m, a.f+b.f)
	}
	return FromUint64(a.m, a.lo+b.lo)
}

// Mul computes a * b with wrap-around in the shared mode.
func Mul(a, b *Value) *Value {
	if a.m != b.m {
		panic("tarval: Mul across modes")
	}
	if a.m.Sort() == mode.Float {
		return FromFloat64(a.m, a.f*b.f)
	}
	return FromUint64(a.m, a.lo*b.lo)
}

// Neg computes the two's-complement/IEEE negation of v.
func Neg(v *Value) *Value {
	if v.m.Sort() == mode.Float {
		return FromFloat64(v.m, -v.f)
	}
	return FromUint64(v.m, (^v.lo)+1)
}

// Convert reinterprets/rounds v into mode m (truncation for narrowing
// integer conversions, sign/zero extension for widening, float<->int
// via Go's native conversion).
func Convert(v *Value, m *mode.Mode) *Value {
	switch {
	case v.m.Sort() == mode.Float && m.Sort() == mode.Float:
		return FromFloat64(m, v.f)
	case v.m.Sort() == mode.Float && m.Sort() == mode.Int:
		if m.Signed() {
			return FromInt64(m, int64(v.f))
		}
		return FromUint64(m, uint64(v.f))
	case v.m.Sort() == mode.Int && m.Sort() == mode.Float:
		if v.m.Signed() {
			return FromFloat64(m, float64(v.Int64()))
		}
		return FromFloat64(m, float64(v.lo))
	default: // int/reference <-> int/reference
		if v.m.Signed() {
			return FromInt64(m, v.Int64())
		}
		return FromUint64(m, v.lo)
	}
}

// Hi64 exposes the (currently unused beyond storage) high half of a
// 128-bit payload; arithmetic on >64-bit modes does not carry into it.
// Present so callers constructing 128-bit constants round-trip their
// high word, documented as a known limitation in DESIGN.md.
func (v *Value) Hi64() uint64 { return v.hi }

// From128 builds a 128-bit value from explicit halves without the
// carry-propagating arithmetic Add/Sub/Mul provide for narrower modes.
func From128(m *mode.Mode, lo, hi uint64) *Value {
	return intern(key{m: m, lo: lo, hi: hi})
}
