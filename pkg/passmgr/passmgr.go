// Package passmgr orchestrates the optimization/lowering pipeline
// over a single *ir.Graph: it runs generic lowering, recomputes the
// analyses code placement and scheduling need, then runs placement
// and per-block scheduling as a fixed sequence of stages rather than
// leaving pass ordering to the caller.
package passmgr

import (
	"fmt"

	"github.com/sogcc/sog/pkg/backend"
	"github.com/sogcc/sog/pkg/dataflow"
	"github.com/sogcc/sog/pkg/diag"
	"github.com/sogcc/sog/pkg/domtree"
	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/lower"
	"github.com/sogcc/sog/pkg/mode"
	"github.com/sogcc/sog/pkg/op"
	"github.com/sogcc/sog/pkg/placement"
	"github.com/sogcc/sog/pkg/schedule"
)

// State tracks which analyses are currently valid for a Graph:
// downstream stages check State before trusting a cached analysis
// rather than silently reusing stale data. Every mutating pass that
// invalidates an analysis clears the matching bit.
type State uint8

const (
	StateNone State = 0
	StateDom  State = 1 << iota
	StateLoop
	StateFrequency
	StateLiveness
	StateScheduled
)

func (s State) Has(bit State) bool { return s&bit != 0 }

// Config bundles every target-specific knob the pipeline needs:
// the lowering targets for 64-bit arithmetic and builtins, the switch
// density threshold, and the machine int mode boolean values lower to.
type Config struct {
	IntMode        *mode.Mode
	Int64          lower.Target
	Builtin        lower.BuiltinRuntime
	SwitchLowering lower.SwitchLowering
	RegClass       *backend.RegClass
}

// Manager runs the pipeline over one Graph, caching the analyses
// later stages depend on and invalidating them when an earlier stage
// mutates the graph shape.
type Manager struct {
	Graph *ir.Graph
	Cfg   Config

	state State
	dt    *domtree.Tree
	lt    *domtree.LoopTree
	freq  map[*ir.Node]float64
}

func New(g *ir.Graph, cfg Config) *Manager {
	return &Manager{Graph: g, Cfg: cfg}
}

// Lower runs every generic lowering pass: boolean-mode elimination,
// 64-bit splitting, switch-cascade/jump-table selection, and
// builtin-to-runtime-call rewriting. Each pass can introduce new
// blocks and nodes, so it invalidates every cached analysis.
func (m *Manager) Lower() {
	diag.Infof("passmgr: lowering %s", m.Graph.Name)
	lower.LowerModeB(m.Graph, m.Cfg.IntMode)
	lower.Lower64(m.Graph, m.Cfg.Int64)
	lower.LowerSwitch(m.Graph, m.Cfg.SwitchLowering)
	lower.LowerBuiltin(m.Graph, m.Cfg.Builtin)
	m.state = StateNone
}

// Analyze (re)computes dominance, the loop tree, and static block
// frequencies, the three analyses code placement depends on.
func (m *Manager) Analyze() {
	m.dt = domtree.Build(m.Graph)
	m.state |= StateDom
	m.lt = domtree.BuildLoopTree(m.Graph, m.dt)
	m.state |= StateLoop
	m.freq = dataflow.BlockFrequency(m.Graph, m.lt)
	m.state |= StateFrequency
}

// Place runs global code motion: every floating node moves to the
// early/late-scheduling block placement computes,
// re-pinning nodes that were constructed in one block into whichever
// block minimizes loop nesting without violating dominance.
func (m *Manager) Place() error {
	if !m.state.Has(StateDom) || !m.state.Has(StateLoop) {
		return fmt.Errorf("passmgr: Place needs Analyze to have run first")
	}
	placement.Place(m.Graph, m.dt, m.lt)
	// Placement relocates nodes between blocks but doesn't change the
	// CFG itself, so dominance/loop/frequency stay valid; only the
	// per-block schedule is now stale.
	m.state &^= StateScheduled
	return nil
}

// Schedule runs the local (within-block) list scheduler over every
// block, using per-block height analysis.
func (m *Manager) Schedule() map[*ir.Node][]*ir.Node {
	diag.Infof("passmgr: scheduling %s", m.Graph.Name)
	order := make(map[*ir.Node][]*ir.Node, len(m.Graph.Blocks()))
	for _, b := range m.Graph.Blocks() {
		order[b] = schedule.Block(b)
	}
	m.state |= StateScheduled
	return order
}

// Frequency returns the cached static block-frequency map, recomputing
// it via Analyze if it hasn't been computed yet.
func (m *Manager) Frequency() map[*ir.Node]float64 {
	if !m.state.Has(StateFrequency) {
		m.Analyze()
	}
	return m.freq
}

// DomTree returns the cached dominator tree, recomputing it via
// Analyze if needed.
func (m *Manager) DomTree() *domtree.Tree {
	if !m.state.Has(StateDom) {
		m.Analyze()
	}
	return m.dt
}

// LoopTree returns the cached loop tree, recomputing it via Analyze
// if needed.
func (m *Manager) LoopTree() *domtree.LoopTree {
	if !m.state.Has(StateLoop) {
		m.Analyze()
	}
	return m.lt
}

// Liveness computes block-level liveness over the dominator tree's
// successor/predecessor relation, used by register allocation.
func (m *Manager) Liveness() *dataflow.Liveness {
	dt := m.DomTree()
	preds := func(b *ir.Node) []*ir.Node {
		var out []*ir.Node
		for _, in := range b.Ins {
			if in == nil {
				continue
			}
			out = append(out, in.Block())
		}
		return out
	}
	lv := dataflow.Compute(m.Graph, dt.Successors, preds)
	m.state |= StateLiveness
	return lv
}

// Run executes the full pipeline in order: lower, then analyze, then
// place, then schedule. Returns the per-block instruction order
// Schedule produced.
func (m *Manager) Run() (map[*ir.Node][]*ir.Node, error) {
	m.Lower()
	m.Analyze()
	if err := m.Place(); err != nil {
		return nil, err
	}
	return m.Schedule(), nil
}

// CountOpcodes is a small diagnostic helper: it reports how many nodes
// of each opcode the graph currently holds, useful for -v output in
// cmd/sogc.
func CountOpcodes(g *ir.Graph) map[op.Code]int {
	counts := map[op.Code]int{}
	for _, b := range g.Blocks() {
		counts[op.Block]++
		for _, n := range b.BlockNodes() {
			counts[n.Op]++
		}
	}
	return counts
}
