package transfer

import (
	"fmt"
	"io"
)

// stdioHost adapts a reader/writer pair to the Host boundary so a unit can run
// as a plain command line filter.
type stdioHost struct {
	input  []byte
	out    io.Writer
	errOut io.Writer
	failed bool
}

func (s *stdioHost) RequestBytes(length int) []byte {
	buf := make([]byte, length)
	copy(buf, s.input)
	return buf
}

func (s *stdioHost) DeliverOutput(data []byte) bool {
	_, err := s.out.Write(data)
	return err == nil
}

func (s *stdioHost) ReportError(msg string) {
	s.failed = true
	fmt.Fprintln(s.errOut, msg)
}

// RunStdio reads one complete buffer from in, invokes fn once and writes the
// result to out. Errors go to errOut. The return value is a process exit code.
func RunStdio(fn TransformFunc, in io.Reader, out, errOut io.Writer) int {
	data, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(errOut, "reading input: %v\n", err)
		return 1
	}

	h := &stdioHost{input: data, out: out, errOut: errOut}
	res := Serve(h, len(data), fn)
	switch {
	case h.failed:
		return 1
	case res.Rejected:
		fmt.Fprintln(errOut, "output rejected")
		return 2
	}
	return 0
}
