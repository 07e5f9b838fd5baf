// Package dispatch maps a user command and target name to the ordered list
// of component operations that carry it out.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/config"
)

// Command is a per-component operation kind.
type Command string

const (
	Checkout Command = "checkout"
	Build    Command = "build"
	Clean    Command = "clean"
)

var (
	// ErrUnknownTarget aliases config.ErrUnknownTarget so callers need not
	// import config to test for it.
	ErrUnknownTarget  = config.ErrUnknownTarget
	ErrUnknownCommand = errors.New("unknown command")
)

// Operation is one step of a dispatched command.
type Operation struct {
	Command   Command
	Component component.Component
	// Hooks run after a successful build of Component.
	Hooks []string
}

// Dispatcher resolves targets against a loaded manifest.
type Dispatcher struct {
	model *config.Model
	set   *component.Set
}

// New creates a Dispatcher for model.
func New(model *config.Model) (*Dispatcher, error) {
	set, err := model.ComponentSet()
	if err != nil {
		return nil, err
	}
	return &Dispatcher{model: model, set: set}, nil
}

// Dispatch returns the operations for cmd on target, in execution order.
// Nothing is returned for unknown commands or targets, so callers fail
// before touching the disk.
func (d *Dispatcher) Dispatch(cmd Command, target string) ([]Operation, error) {
	switch cmd {
	case Checkout:
		return d.checkout(target)
	case Build:
		return d.build(target)
	case Clean:
		return d.clean(target)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownCommand, cmd)
}

func (d *Dispatcher) components(target string) ([]component.Component, error) {
	names, err := d.model.ExpandTarget(target)
	if err != nil {
		return nil, err
	}
	out := make([]component.Component, 0, len(names))
	for _, name := range names {
		c, ok := d.set.Get(name)
		if !ok {
			return nil, fmt.Errorf("target %s: unknown component %q", target, name)
		}
		out = append(out, c)
	}
	return out, nil
}

// checkout syncs each working copy once. A component that borrows another
// one's working copy is replaced by its source.
func (d *Dispatcher) checkout(target string) ([]Operation, error) {
	comps, err := d.components(target)
	if err != nil {
		return nil, err
	}
	var ops []Operation
	seen := make(map[string]bool)
	for _, c := range comps {
		if c.SharesSource() {
			src, ok := d.set.Get(c.Source)
			if !ok {
				return nil, fmt.Errorf("component %s: unknown source component %q", c.Name, c.Source)
			}
			c = src
		}
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		ops = append(ops, Operation{Command: Checkout, Component: c})
	}
	return ops, nil
}

func (d *Dispatcher) build(target string) ([]Operation, error) {
	comps, err := d.components(target)
	if err != nil {
		return nil, err
	}
	ops := make([]Operation, 0, len(comps))
	for _, c := range comps {
		ops = append(ops, Operation{Command: Build, Component: c, Hooks: c.Hooks})
	}
	return ops, nil
}

// clean accepts a component name, or a target made of a single component.
func (d *Dispatcher) clean(name string) ([]Operation, error) {
	if c, ok := d.set.Get(name); ok {
		return []Operation{{Command: Clean, Component: c}}, nil
	}
	comps, err := d.components(name)
	if err != nil {
		return nil, err
	}
	if len(comps) != 1 {
		return nil, fmt.Errorf("clean takes a single component; target %s has %d", name, len(comps))
	}
	return []Operation{{Command: Clean, Component: comps[0]}}, nil
}
