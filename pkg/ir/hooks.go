package ir

import "github.com/sogcc/sog/pkg/op"

// Hooks bundles the per-opcode behavior that varies by opcode: how it
// hashes and compares for GVN, and how it folds or rewrites itself at
// construction time. It cannot live on op.Info (pkg/op knows nothing
// about *Node), so it lives here,
// keyed by op.Code, and is populated by init() functions in
// transform_*.go files adjacent to the opcodes they cover.
type Hooks struct {
	// Hash contributes to the GVN bucket key; must agree with AttrEq
	// (equal nodes hash equal). Nil means "structural only" (op, mode,
	// operand identities) — fine for nodes with no extra attribute.
	Hash func(n *Node) uint64
	// AttrEq reports whether two nodes of the same opcode, mode, and
	// operand list carry equal attributes (e.g. Const's tarval).
	AttrEq func(a, b *Node) bool
	// Identity runs before GVN lookup; returning something other than
	// n folds the node away entirely (x+0 -> x, x*1 -> x, Mux with a
	// constant selector -> the selected arm). Returning n is a no-op.
	Identity func(n *Node) *Node
	// Transform runs after GVN insertion and may still rewrite a
	// genuinely-new node into a cheaper equivalent form (strength
	// reduction, e.g. x*2 -> x+x) that Identity's single-pass check
	// wouldn't catch because it depends on what GVN resolved operands to.
	Transform func(n *Node) *Node
}

// OpHooks is the global opcode -> behavior table.
var OpHooks = map[op.Code]*Hooks{}

// RegisterHooks installs (or replaces) the hook set for an opcode.
// Called only from init(); never while a graph is under construction.
func RegisterHooks(code op.Code, h *Hooks) { OpHooks[code] = h }

// fnv1a64 is the structural hash base every default Hash falls back
// to: fold in the opcode, the mode, and each operand's identity
// (pointer-derived ID).
func fnv1a64(seed uint64, v uint64) uint64 {
	const prime = 1099511628211
	seed ^= v
	seed *= prime
	return seed
}

func structuralHash(n *Node) uint64 {
	h := uint64(1469598103934665603)
	h = fnv1a64(h, uint64(n.Op))
	if n.Mode != nil {
		h = fnv1a64(h, uint64(len(n.Mode.Name())))
	}
	for _, in := range n.Ins {
		if in != nil {
			h = fnv1a64(h, uint64(in.ID)+1)
		}
	}
	return h
}

func structuralEq(a, b *Node) bool {
	if a.Op != b.Op || a.Mode != b.Mode || len(a.Ins) != len(b.Ins) {
		return false
	}
	for i := range a.Ins {
		if a.Ins[i] != b.Ins[i] {
			return false
		}
	}
	if h := OpHooks[a.Op]; h != nil && h.AttrEq != nil {
		return h.AttrEq(a, b)
	}
	return true
}
