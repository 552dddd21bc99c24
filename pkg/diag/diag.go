// Package diag is the compiler's diagnostics channel: warnings from
// lowering and peephole passes, verbose pass-progress tracing, and
// fatal configuration errors all flow through here instead of ad hoc
// fmt.Fprintln(os.Stderr, ...) calls, so -v/-logtostderr and friends
// control every package uniformly.
package diag

import (
	"fmt"

	"github.com/golang/glog"
)

// Level is a glog verbosity level, re-exported so callers never need
// to import glog directly.
type Level = glog.Level

// Warningf reports a recoverable anomaly a pass wants surfaced (a
// peephole rule that couldn't apply, an unreachable block pruned
// away) without aborting compilation.
func Warningf(format string, args ...any) {
	glog.WarningDepth(1, fmt.Sprintf(format, args...))
}

// Infof reports routine progress, gated by glog's own -v flag.
func Infof(format string, args ...any) {
	glog.InfoDepth(1, fmt.Sprintf(format, args...))
}

// V reports whether verbose logging at the given level is enabled,
// for call sites that want to skip building an expensive message.
func V(level Level) bool { return bool(glog.V(level)) }

// Fatalf reports a non-recoverable internal error (a broken
// invariant, not a user-input problem) and terminates the process.
func Fatalf(format string, args ...any) {
	glog.FatalDepth(1, fmt.Sprintf(format, args...))
}

// Flush flushes glog's log buffers; call before process exit.
func Flush() { glog.Flush() }
