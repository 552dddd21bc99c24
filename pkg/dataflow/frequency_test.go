package dataflow

import (
	"testing"

	"github.com/sogcc/sog/pkg/domtree"
	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/tarval"
)

// buildLoop constructs entry -> header -> body -> header (back edge) ->
// after -> End, the same shape pkg/domtree's loop regression test uses.
func buildLoop(g *ir.Graph) (entry, header, body, after *ir.Node) {
	entryJmp := g.NewNode(op.Jmp, mode.X, g.StartBlock)
	entry = g.NewBlock(entryJmp)
	g.SealBlock(entry)

	preheaderJmp := g.NewNode(op.Jmp, mode.X, entry)
	header = g.NewBlock(preheaderJmp)

	cmp := g.NewCmp(header, g.NewConst(tarval.FromInt64(mode.Is32, 1)), g.NewConst(tarval.FromInt64(mode.Is32, 0)), tarval.Equal)
	cond := g.NewNode(op.Cond, mode.T, header, cmp)
	backProj := g.NewProj(cond, mode.X, 1)
	exitProj := g.NewProj(cond, mode.X, 0)

	body = g.NewBlock(backProj)
	g.SealBlock(body)
	bodyJmp := g.NewNode(op.Jmp, mode.X, body)
	header.AppendIn(bodyJmp)
	g.SealBlock(header)

	after = g.NewBlock(exitProj)
	g.SealBlock(after)
	afterJmp := g.NewNode(op.Jmp, mode.X, after)
	g.EndBlock.AppendIn(afterJmp)
	g.SealBlock(g.EndBlock)
	return
}

func TestBlockFrequencyScalesWithLoopDepth(t *testing.T) {
	g := ir.NewGraph("loop")
	entry, header, body, after := buildLoop(g)
	tree := domtree.Build(g)
	lt := domtree.BuildLoopTree(g, tree)

	freq := BlockFrequency(g, lt)

	if freq[entry] != 1.0 {
		t.Errorf("entry is outside any loop, want frequency 1.0, got %v", freq[entry])
	}
	if freq[after] != 1.0 {
		t.Errorf("after is outside the loop, want frequency 1.0, got %v", freq[after])
	}
	if freq[header] <= freq[entry] {
		t.Errorf("header is inside the loop, want frequency > entry's, got header=%v entry=%v", freq[header], freq[entry])
	}
	if freq[body] != freq[header] {
		t.Errorf("header and body share the same loop depth, want equal frequency, got %v vs %v", freq[header], freq[body])
	}
}
