// Package iostreams provides access to standard input/output/error
// streams, following the GitHub CLI pattern for testable I/O.
package iostreams

import (
	"bytes"
	"io"
	"os"

	"golang.org/x/term"
)

// IOStreams holds the streams a command reads from and writes to.
// Progress text goes to ErrOut so Out stays clean for captured
// container output.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	// isOutputTTY caches whether stdout is a terminal.
	// -1 = unchecked, 0 = false, 1 = true
	isOutputTTY int
}

// NewIOStreams creates an IOStreams connected to standard streams.
func NewIOStreams() *IOStreams {
	return &IOStreams{
		In:          os.Stdin,
		Out:         os.Stdout,
		ErrOut:      os.Stderr,
		isOutputTTY: -1,
	}
}

// IsOutputTTY returns true if stdout is a terminal.
func (s *IOStreams) IsOutputTTY() bool {
	if s.isOutputTTY == -1 {
		if f, ok := s.Out.(*os.File); ok {
			s.isOutputTTY = boolToInt(term.IsTerminal(int(f.Fd())))
		} else {
			s.isOutputTTY = 0
		}
	}
	return s.isOutputTTY == 1
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// TestIOStreams wraps IOStreams with buffers for testing.
type TestIOStreams struct {
	IOStreams *IOStreams
	InBuf     *bytes.Buffer
	OutBuf    *bytes.Buffer
	ErrBuf    *bytes.Buffer
}

// SetInteractive allows tests to simulate a terminal on stdout.
func (t *TestIOStreams) SetInteractive(interactive bool) {
	t.IOStreams.isOutputTTY = boolToInt(interactive)
}

// NewTestIOStreams creates an IOStreams backed by in-memory buffers.
func NewTestIOStreams() *TestIOStreams {
	in := &bytes.Buffer{}
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	return &TestIOStreams{
		IOStreams: &IOStreams{
			In:          in,
			Out:         out,
			ErrOut:      errOut,
			isOutputTTY: 0,
		},
		InBuf:  in,
		OutBuf: out,
		ErrBuf: errOut,
	}
}
