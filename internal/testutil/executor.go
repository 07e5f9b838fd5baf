// Package testutil holds fakes shared by the package tests.
package testutil

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/worldforge/hammer/internal/phase"
)

// FakeExecutor records every command instead of starting processes.
type FakeExecutor struct {
	mu    sync.Mutex
	calls []phase.Command

	// Handler, when set, decides the outcome of each command. It may write
	// to stdout or create files to simulate the command's side effects.
	Handler func(cmd phase.Command, stdout io.Writer) error
}

// Execute implements phase.Executor.
func (f *FakeExecutor) Execute(ctx context.Context, cmd phase.Command, stdout, stderr io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	handler := f.Handler
	f.mu.Unlock()

	if handler == nil {
		return nil
	}
	return handler(cmd, stdout)
}

// Calls returns the recorded commands in order.
func (f *FakeExecutor) Calls() []phase.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]phase.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// Lines returns each recorded command rendered as "program arg...".
func (f *FakeExecutor) Lines() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.String())
	}
	return out
}

// LinesWithPrefix keeps the rendered commands starting with prefix.
func (f *FakeExecutor) LinesWithPrefix(prefix string) []string {
	var out []string
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}

// Reset forgets the recorded commands.
func (f *FakeExecutor) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}
