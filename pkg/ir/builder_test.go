package ir

import (
	"testing"

	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

// TestBuilderDefaultUndefinedLocalIsBad confirms the documented
// default: a local read with no reaching definition becomes a Bad
// constant when no UndefinedLocal hook is installed.
func TestBuilderDefaultUndefinedLocalIsBad(t *testing.T) {
	g := NewGraph("f")
	b := NewBuilder(g)
	b.SealBlock(g.StartBlock)

	entryJmp := g.NewNode(op.Jmp, mode.X, g.StartBlock)
	entry := g.NewBlock(entryJmp)

	val := b.ReadVariable(entry, 3, mode.Is32)
	ret := g.NewDynamicNode(op.Return, mode.X, entry)
	ret.AppendIn(val)
	b.SealBlock(entry)

	if got := ret.In(1); got.Op != op.Bad {
		t.Fatalf("Return's value operand is op %v, want Bad", got.Op)
	}
}

// TestBuilderUndefinedLocalHook confirms a client-installed
// UndefinedLocal callback overrides the default Bad fallback and sees
// the exact varID that triggered it.
func TestBuilderUndefinedLocalHook(t *testing.T) {
	g := NewGraph("f")
	b := NewBuilder(g)
	b.SealBlock(g.StartBlock)

	entryJmp := g.NewNode(op.Jmp, mode.X, g.StartBlock)
	entry := g.NewBlock(entryJmp)

	sentinel := g.NewConst(tarval.FromInt64(mode.Is32, -1))
	var gotVarID int
	var calls int
	b.UndefinedLocal = func(varID int, m *mode.Mode) *Node {
		gotVarID = varID
		calls++
		return sentinel
	}

	val := b.ReadVariable(entry, 9, mode.Is32)
	ret := g.NewDynamicNode(op.Return, mode.X, entry)
	ret.AppendIn(val)
	b.SealBlock(entry)

	if calls != 1 {
		t.Fatalf("UndefinedLocal called %d times, want 1", calls)
	}
	if gotVarID != 9 {
		t.Fatalf("UndefinedLocal called with varID %d, want 9", gotVarID)
	}
	if got := ret.In(1); got != sentinel {
		t.Fatalf("Return's value operand is %v, want the UndefinedLocal sentinel", got)
	}
}
