package diag

import "testing"

// glog writes to its own configured sinks rather than a capturable
// writer, so these are smoke tests confirming the wrappers don't panic
// and V's gate behaves sanely, not output-content assertions.

func TestWarningfAndInfofDoNotPanic(t *testing.T) {
	Warningf("dropped unreachable block %d", 3)
	Infof("ran pass %s", "lower")
}

func TestVReturnsBool(t *testing.T) {
	// At verbosity 0 (the default, unset by flags in a test binary),
	// a very high level should not be enabled.
	if V(100) {
		t.Error("V(100) should be false at default verbosity")
	}
}

func TestFlushDoesNotPanic(t *testing.T) {
	Flush()
}
