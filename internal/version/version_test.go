package version

import "testing"

func TestString(t *testing.T) {
	if got := String(); got != "readnext dev (commit unknown, built unknown)" {
		t.Errorf("unexpected version string %q", got)
	}
}
