// Package planner decides which build phases of a component must run.
//
// Build state is never stored. It is read back from the filesystem every
// time a component is planned: a generated configure script means autogen
// has run, a generated Makefile in the variant's build directory means
// configure has run. Interrupted builds resume correctly because nothing
// else is remembered.
package planner

import (
	"fmt"
	"path/filepath"

	"github.com/worldforge/hammer/internal/component"
)

// Phase is one step of building a component.
type Phase string

const (
	Autogen   Phase = "autogen"
	Configure Phase = "configure"
	Build     Phase = "build"
	Install   Phase = "install"
)

// Phases lists every phase in execution order.
var Phases = []Phase{Autogen, Configure, Build, Install}

// Status is the inferred state of a phase's output.
type Status int

const (
	Stale Status = iota
	Fresh
)

func (s Status) String() string {
	if s == Fresh {
		return "fresh"
	}
	return "stale"
}

// Force invalidates on-disk evidence for the phases it names.
type Force struct {
	Autogen   bool
	Configure bool
}

// Variant identifies a build configuration. Each variant of a component
// gets its own build directory.
type Variant struct {
	OS    string
	Arch  string
	Debug bool
}

// Name is the directory name of the variant, e.g. "linux-amd64-release".
func (v Variant) Name() string {
	mode := "release"
	if v.Debug {
		mode = "debug"
	}
	return fmt.Sprintf("%s-%s-%s", v.OS, v.Arch, mode)
}

// Locator maps components to their directories on disk.
type Locator interface {
	SourceDir(c component.Component) string
	BuildDir(c component.Component, v Variant) string
}

// Check is the status of a single phase together with the evidence used.
type Check struct {
	Phase    Phase
	Status   Status
	Artifact string // empty for phases that always run
	Forced   bool
}

const (
	configureScript = "configure"
	buildControl    = "Makefile"
)

// Planner derives phase plans from the filesystem.
type Planner struct {
	probe   Probe
	locator Locator
}

// New creates a Planner reading state through probe.
func New(probe Probe, locator Locator) *Planner {
	return &Planner{probe: probe, locator: locator}
}

// Inspect reports the status of every phase that applies to c.
func (p *Planner) Inspect(c component.Component, v Variant, force Force) ([]Check, error) {
	switch c.BuildSystem {
	case component.Prebuilt:
		return nil, nil
	case component.Autotools, component.CMake:
	default:
		return nil, fmt.Errorf("component %s: unsupported build system %q", c.Name, c.BuildSystem)
	}

	var checks []Check
	if c.BuildSystem == component.Autotools {
		check, err := p.check(Autogen, filepath.Join(p.locator.SourceDir(c), configureScript), force.Autogen)
		if err != nil {
			return nil, err
		}
		checks = append(checks, check)
	}

	check, err := p.check(Configure, filepath.Join(p.locator.BuildDir(c, v), buildControl), force.Configure)
	if err != nil {
		return nil, err
	}
	checks = append(checks, check)

	// Build and install defer to make's own incrementality.
	checks = append(checks,
		Check{Phase: Build, Status: Stale},
		Check{Phase: Install, Status: Stale},
	)
	return checks, nil
}

func (p *Planner) check(phase Phase, artifact string, forced bool) (Check, error) {
	c := Check{Phase: phase, Artifact: artifact, Forced: forced}
	if forced {
		return c, nil
	}
	ok, err := p.probe.Exists(artifact)
	if err != nil {
		return Check{}, fmt.Errorf("checking %s state: %w", phase, err)
	}
	if ok {
		c.Status = Fresh
	}
	return c, nil
}

// Plan returns the phases that must run for c, in execution order.
func (p *Planner) Plan(c component.Component, v Variant, force Force) ([]Phase, error) {
	checks, err := p.Inspect(c, v, force)
	if err != nil {
		return nil, err
	}
	var phases []Phase
	for _, check := range checks {
		if check.Status == Stale {
			phases = append(phases, check.Phase)
		}
	}
	return phases, nil
}
