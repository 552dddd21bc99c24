// Package compiler drives the pipeline (pkg/frontend -> pkg/passmgr
// -> pkg/emit) across every function in a Program concurrently. Pool
// is a channel of tasks drained by a fixed goroutine pool, with
// sync/atomic counters instead of a mutex-protected running total and
// a ticker-driven progress line for long batches.
package compiler

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sogcc/sog/pkg/diag"
	"github.com/sogcc/sog/pkg/emit"
	"github.com/sogcc/sog/pkg/ir"
	"github.com/sogcc/sog/pkg/passmgr"
)

// Task is one function's graph to push through the pipeline.
type Task struct {
	Name  string
	Graph *ir.Graph
}

// Result is what one Task produced: the per-block schedule passmgr
// computed, or an error if the pipeline failed partway through.
type Result struct {
	Name     string
	Schedule map[*ir.Node][]*ir.Node
	Err      error
}

// Pool runs Tasks concurrently, one passmgr.Manager per graph (graphs
// share no mutable state, so this parallelizes cleanly across an
// entire Program).
type Pool struct {
	NumWorkers int
	Cfg        passmgr.Config

	processed atomic.Int64
	failed    atomic.Int64
}

// NewPool creates a pool with numWorkers goroutines (0 => NumCPU,
// matching NewWorkerPool's convention).
func NewPool(numWorkers int, cfg passmgr.Config) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{NumWorkers: numWorkers, Cfg: cfg}
}

// Stats reports how many tasks have completed and how many of those
// failed.
func (p *Pool) Stats() (processed, failed int64) {
	return p.processed.Load(), p.failed.Load()
}

// Run pushes every task through passmgr.Manager.Run, fanning out
// across the pool's workers and returning one Result per task (order
// matches the input order, not completion order).
func (p *Pool) Run(tasks []Task, verbose bool) []Result {
	results := make([]Result, len(tasks))
	type indexed struct {
		idx int
		t   Task
	}
	ch := make(chan indexed, len(tasks))
	for i, t := range tasks {
		ch <- indexed{i, t}
	}
	close(ch)

	done := make(chan struct{})
	start := time.Now()
	total := int64(len(tasks))
	if verbose {
		go p.reportProgress(done, start, total)
	}

	var wg sync.WaitGroup
	for i := 0; i < p.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range ch {
				results[item.idx] = p.runOne(item.t)
				p.processed.Add(1)
				if results[item.idx].Err != nil {
					p.failed.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	close(done)
	return results
}

func (p *Pool) runOne(t Task) Result {
	mgr := passmgr.New(t.Graph, p.Cfg)
	sched, err := mgr.Run()
	if err != nil {
		diag.Warningf("compiler: %s: %v", t.Name, err)
		return Result{Name: t.Name, Err: err}
	}
	return Result{Name: t.Name, Schedule: sched}
}

func (p *Pool) reportProgress(done chan struct{}, start time.Time, total int64) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			processed := p.processed.Load()
			elapsed := time.Since(start).Round(time.Second)
			fmt.Printf("  [%s] %d/%d functions compiled (%d failed)\n",
				elapsed, processed, total, p.failed.Load())
		}
	}
}

// EmitAll runs the emitter driver over each function in fns, writing
// assembly for each in turn and stopping at the first error.
func EmitAll(d *emit.Driver, w io.Writer, fns []emit.Function) error {
	for _, fn := range fns {
		if err := d.Emit(w, fn); err != nil {
			return err
		}
	}
	return nil
}
