// Package stat is sog's counter facility: named, thread-safe counters
// (cmd/sogc's stat subcommand fills them with opcode counts per
// compiled function and a functions.compiled total after the pipeline
// runs; the passes themselves bump none) that can be checkpointed to
// resume a long batch job or dumped for offline analysis.
package stat

import (
	"encoding/csv"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// Counters is a thread-safe named-counter table: one per opcode, pass,
// or scheduler decision a caller wants tallied.
type Counters struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewCounters creates an empty counter table.
func NewCounters() *Counters {
	return &Counters{values: map[string]int64{}}
}

// Add increments name by delta (delta may be negative).
func (c *Counters) Add(name string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] += delta
}

// Inc increments name by one.
func (c *Counters) Inc(name string) { c.Add(name, 1) }

// Get returns the current value of name.
func (c *Counters) Get(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name]
}

// Snapshot returns a sorted copy of every counter name/value pair:
// copied under lock, then sorted for a stable iteration order.
func (c *Counters) Snapshot() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, 0, len(c.values))
	for name, v := range c.values {
		out = append(out, Entry{Name: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Entry is one exported (name, value) counter pair.
type Entry struct {
	Name  string
	Value int64
}

// WriteJSON dumps the counter snapshot as a JSON array of entries.
func WriteJSON(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// WriteCSV dumps the counter snapshot as CSV: one "name,value" row
// per counter, header first.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "value"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Name, fmt.Sprintf("%d", e.Value)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Checkpoint is a resumable snapshot of a long-running batch: the
// counters accumulated so far plus how many inputs have been fully
// processed.
type Checkpoint struct {
	Counters  map[string]int64
	Completed int
	Total     int
}

// SaveCheckpoint writes a Checkpoint to path via gob.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(ckpt)
}

// LoadCheckpoint reads a Checkpoint back from path.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ckpt Checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, err
	}
	return &ckpt, nil
}

// ToCheckpoint captures c's current values into a Checkpoint ready
// for SaveCheckpoint.
func (c *Counters) ToCheckpoint(completed, total int) *Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	values := make(map[string]int64, len(c.values))
	for k, v := range c.values {
		values[k] = v
	}
	return &Checkpoint{Counters: values, Completed: completed, Total: total}
}

// RestoreFrom replaces c's counters with those from a loaded
// Checkpoint.
func (c *Counters) RestoreFrom(ckpt *Checkpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[string]int64, len(ckpt.Counters))
	for k, v := range ckpt.Counters {
		c.values[k] = v
	}
}
