package phase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worldforge/hammer/internal/phase"
	"github.com/worldforge/hammer/internal/planner"
	"github.com/worldforge/hammer/internal/testutil"
)

func TestRun_WritesTruncatedLog(t *testing.T) {
	// --- Arrange ---
	logRoot := t.TempDir()
	buildDir := filepath.Join(t.TempDir(), "build")
	run := 0
	exec := &testutil.FakeExecutor{Handler: func(cmd phase.Command, stdout io.Writer) error {
		run++
		fmt.Fprintf(stdout, "output of run %d\n", run)
		return nil
	}}
	r := phase.NewRunner(exec, logRoot, []string{"PATH=/work/local/bin"})
	cmd := phase.Command{Program: "make", Args: []string{"-j4"}, Dir: buildDir, Env: []string{"CFLAGS=-O2"}}

	// --- Act ---
	require.NoError(t, r.Run(context.Background(), "varconf", planner.Build, cmd))
	require.NoError(t, r.Run(context.Background(), "varconf", planner.Build, cmd))

	// --- Assert ---
	logPath := filepath.Join(logRoot, "varconf", "build.log")
	assert.Equal(t, logPath, r.LogPath("varconf", "build"))
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# make -j4")
	assert.Contains(t, string(data), "output of run 2")
	assert.NotContains(t, string(data), "output of run 1", "log must be overwritten, not appended")

	assert.DirExists(t, buildDir)
	calls := exec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"PATH=/work/local/bin", "CFLAGS=-O2"}, calls[0].Env)
}

func TestRun_FailureReportsLogPath(t *testing.T) {
	logRoot := t.TempDir()
	exitErr := errors.New("exit status 2")
	exec := &testutil.FakeExecutor{Handler: func(phase.Command, io.Writer) error { return exitErr }}
	r := phase.NewRunner(exec, logRoot, nil)

	err := r.Run(context.Background(), "eris", planner.Configure, phase.Command{Program: "configure"})
	require.Error(t, err)

	var pe *phase.PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "eris", pe.Component)
	assert.Equal(t, planner.Configure, pe.Phase)
	assert.Equal(t, filepath.Join(logRoot, "eris", "configure.log"), pe.LogPath)
	assert.ErrorIs(t, err, exitErr)
	assert.Contains(t, err.Error(), pe.LogPath)
	assert.Len(t, exec.Calls(), 1, "no retry")
}

func TestExecExecutor(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	var out testutil.SafeBuffer
	err := phase.ExecExecutor{}.Execute(context.Background(),
		phase.Command{Program: "/bin/sh", Args: []string{"-c", "echo hello"}}, &out, &out)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.String())

	err = phase.ExecExecutor{}.Execute(context.Background(),
		phase.Command{Program: "/bin/sh", Args: []string{"-c", "exit 3"}}, io.Discard, io.Discard)
	assert.ErrorContains(t, err, "exit status 3")
}
