package phase

import (
	"context"
	"fmt"

	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/ctxlog"
	"github.com/worldforge/hammer/internal/planner"
)

// BuildOptions are the per-invocation settings shared by every component
// build.
type BuildOptions struct {
	Variant planner.Variant
	Force   planner.Force
	Flags   Flags
	// LibDir holds the installed libtool archives fixed up after each
	// autotools install. Empty disables the fixup.
	LibDir string
}

// Builder plans and runs the phases of a component.
type Builder struct {
	planner *planner.Planner
	runner  *Runner
	locator planner.Locator
	opts    BuildOptions
}

// NewBuilder creates a Builder.
func NewBuilder(p *planner.Planner, r *Runner, locator planner.Locator, opts BuildOptions) *Builder {
	return &Builder{planner: p, runner: r, locator: locator, opts: opts}
}

// Build runs every stale phase of c in order and stops at the first failure.
// extraMake is appended to the make arguments of the build phase.
func (b *Builder) Build(ctx context.Context, c component.Component, extraMake []string) error {
	logger := ctxlog.FromContext(ctx).With("component", c.Name)

	checks, err := b.planner.Inspect(c, b.opts.Variant, b.opts.Force)
	if err != nil {
		return err
	}
	recipe := Recipe{
		Component: c,
		SourceDir: b.locator.SourceDir(c),
		BuildDir:  b.locator.BuildDir(c, b.opts.Variant),
		Flags:     b.opts.Flags,
		ExtraMake: extraMake,
	}

	for _, check := range checks {
		if check.Status == planner.Fresh {
			logger.Info("Skipping phase; already done.", "phase", string(check.Phase), "artifact", check.Artifact)
			continue
		}
		cmd, err := recipe.Command(check.Phase)
		if err != nil {
			return err
		}
		if err := b.runner.Run(ctx, c.DisplayName(), check.Phase, cmd); err != nil {
			return err
		}
	}

	if c.BuildSystem == component.Autotools && b.opts.LibDir != "" {
		fixed, err := planner.FixLibtoolArchives(b.opts.LibDir)
		if err != nil {
			return fmt.Errorf("fixing libtool archives after installing %s: %w", c.Name, err)
		}
		if len(fixed) > 0 {
			logger.Debug("Rewrote libtool archives.", "files", fixed)
		}
	}
	return nil
}
