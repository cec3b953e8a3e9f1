package harness

import (
	"io"
	"testing"
)

// SetLogOutput redirects the logs of servers created during t.
func SetLogOutput(t *testing.T, w io.Writer) {
	old := logOutput
	logOutput = w
	t.Cleanup(func() { logOutput = old })
}
