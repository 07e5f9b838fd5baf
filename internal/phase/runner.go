// Package phase executes build phases as external processes. Every phase
// writes its combined output to its own log file, which is truncated at the
// start of each run.
package phase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	units "github.com/docker/go-units"
	"github.com/worldforge/hammer/internal/ctxlog"
	"github.com/worldforge/hammer/internal/planner"
)

// PhaseError reports a phase that exited unsuccessfully.
type PhaseError struct {
	Component string
	Phase     planner.Phase
	LogPath   string
	Err       error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s of %s failed (see %s): %v", e.Phase, e.Component, e.LogPath, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Runner runs phase commands with a shared base environment.
type Runner struct {
	executor Executor
	logRoot  string
	env      []string
}

// NewRunner creates a Runner. env is prepended to every command's own Env.
func NewRunner(executor Executor, logRoot string, env []string) *Runner {
	return &Runner{executor: executor, logRoot: logRoot, env: env}
}

// LogPath is where the output of step for the named component is written.
func (r *Runner) LogPath(logName, step string) string {
	return filepath.Join(r.logRoot, logName, step+".log")
}

// Run executes cmd as phase p of the component logged under logName.
func (r *Runner) Run(ctx context.Context, logName string, p planner.Phase, cmd Command) error {
	logger := ctxlog.FromContext(ctx).With("component", logName, "phase", string(p))
	logPath := r.LogPath(logName, string(p))

	fail := func(err error) error {
		return &PhaseError{Component: logName, Phase: p, LogPath: logPath, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fail(err)
	}
	if cmd.Dir != "" {
		if err := os.MkdirAll(cmd.Dir, 0o755); err != nil {
			return fail(err)
		}
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return fail(err)
	}
	defer logFile.Close()

	cmd.Env = append(slices.Clone(r.env), cmd.Env...)
	fmt.Fprintf(logFile, "# %s\n# in %s\n", cmd, cmd.Dir)

	logger.Info("Running phase.", "command", cmd.String(), "log", logPath)
	start := time.Now()
	if err := r.executor.Execute(ctx, cmd, logFile, logFile); err != nil {
		logger.Error("Phase failed.", "log", logPath, "error", err)
		return fail(err)
	}
	logger.Info("Phase finished.", "duration", units.HumanDuration(time.Since(start)))
	return nil
}
