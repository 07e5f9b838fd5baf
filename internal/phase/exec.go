package phase

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Command describes one external process invocation.
type Command struct {
	Program string
	Args    []string
	Dir     string
	Env     []string // nil inherits nothing beyond what the executor adds
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	return strings.TrimSpace(c.Program + " " + strings.Join(c.Args, " "))
}

// Executor runs a Command to completion. Implementations must return a
// non-nil error when the process exits nonzero.
type Executor interface {
	Execute(ctx context.Context, cmd Command, stdout, stderr io.Writer) error
}

// ExecExecutor runs commands as real child processes.
type ExecExecutor struct {
	// WaitDelay bounds how long a cancelled child may keep its output
	// pipes open after being killed.
	WaitDelay time.Duration
}

// Execute implements Executor. Cancelling ctx interrupts the child, then
// kills it if it has not exited by WaitDelay.
func (e ExecExecutor) Execute(ctx context.Context, c Command, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, c.Program, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = e.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", c.Program, ctx.Err())
		}
		return fmt.Errorf("%s: %w", c.Program, err)
	}
	return nil
}
