package shell

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
	"strings"
)

// We prefer to return the tail of the output over the bare process exit code
type ExitErrorVerbose struct {
	E      exec.ExitError
	Output []byte   // Everything the process wrote to stdout and stderr
	Tail   []string // The last TailLines lines of Output
}

func (e ExitErrorVerbose) Error() string {
	if len(e.Tail) != 0 {
		return strings.Join(e.Tail, "\n") + " (" + e.E.Error() + ")"
	}
	return e.E.Error()
}

func (e ExitErrorVerbose) ExitCode() int {
	return e.E.ExitCode()
}

// Command is a process whose combined stdout and stderr are captured,
// and optionally echoed to Echo while the process runs.
type Command struct {
	Name string
	Args []string
	Dir  string    // Working directory. Empty means the current directory.
	Echo io.Writer // If not nil, output is copied here as it arrives
}

// Run the command, and return everything it wrote to stdout and stderr
func (c *Command) Run() (string, error) {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	var captured bytes.Buffer
	lastLines := newTailWriter()
	var w io.Writer = io.MultiWriter(&captured, lastLines)
	if c.Echo != nil {
		w = io.MultiWriter(&captured, lastLines, c.Echo)
	}
	cmd.Stdout = w
	cmd.Stderr = w
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return captured.String(), ExitErrorVerbose{E: *exitErr, Output: captured.Bytes(), Tail: lastLines.Tail()}
		}
		return captured.String(), err
	}
	return captured.String(), nil
}
