package shell

import (
	"bytes"
	"strings"

	"github.com/bmharper/ringbuffer"
)

// TailLines is the number of output lines that a failed Command reports
const TailLines = 32

// tailWriter keeps the last TailLines lines written to it
type tailWriter struct {
	lines   ringbuffer.RingP[string]
	partial []byte
}

func newTailWriter() *tailWriter {
	return &tailWriter{
		// The ring holds one less than its size, which must be a power of 2
		lines: ringbuffer.NewRingP[string](TailLines * 2),
	}
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.partial = append(t.partial, p...)
	for {
		nl := bytes.IndexByte(t.partial, '\n')
		if nl < 0 {
			break
		}
		t.add(string(t.partial[:nl]))
		t.partial = t.partial[nl+1:]
	}
	return len(p), nil
}

func (t *tailWriter) add(line string) {
	// Progress bars redraw themselves with carriage returns. Only the final state is interesting.
	if cr := strings.LastIndexByte(strings.TrimRight(line, "\r"), '\r'); cr >= 0 {
		line = line[cr+1:]
	}
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	t.lines.Add(line)
}

// Tail returns the last lines, oldest first
func (t *tailWriter) Tail() []string {
	if len(bytes.TrimSpace(t.partial)) != 0 {
		t.add(string(t.partial))
		t.partial = nil
	}
	start := max(t.lines.Len()-TailLines, 0)
	out := make([]string, 0, t.lines.Len()-start)
	for i := start; i < t.lines.Len(); i++ {
		out = append(out, t.lines.Peek(i))
	}
	return out
}
