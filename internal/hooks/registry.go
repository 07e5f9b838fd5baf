// Package hooks runs named post-install steps that some components need
// after their own phases complete.
package hooks

import (
	"context"
	"fmt"
	"sort"

	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/ctxlog"
)

// Subject is what a hook operates on.
type Subject struct {
	Component component.Component
	// Prefix is the install prefix the component was installed into.
	Prefix string
}

// Hook is a registered post-install step.
type Hook struct {
	Fn func(ctx context.Context, s Subject) error
	// Optional hooks log their failure as a warning instead of failing the
	// operation.
	Optional bool
}

// Registry maps hook names, as referenced by manifest components, to hooks.
type Registry struct {
	hooks map[string]*Hook
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{hooks: make(map[string]*Hook)}
}

// Register adds a hook. Registering a name twice is a programming error.
func (r *Registry) Register(name string, h *Hook) {
	if _, exists := r.hooks[name]; exists {
		panic(fmt.Sprintf("hook with name '%s' already registered", name))
	}
	r.hooks[name] = h
}

// Names returns the registered hook names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every hook named by comps is registered.
func (r *Registry) Validate(comps []component.Component) error {
	for _, c := range comps {
		for _, name := range c.Hooks {
			if _, ok := r.hooks[name]; !ok {
				return fmt.Errorf("component %s: unknown hook %q", c.Name, name)
			}
		}
	}
	return nil
}

// Run executes the named hooks for s in order. A failing optional hook is
// logged and skipped; any other failure stops the run.
func (r *Registry) Run(ctx context.Context, names []string, s Subject) error {
	logger := ctxlog.FromContext(ctx).With("component", s.Component.Name)
	for _, name := range names {
		h, ok := r.hooks[name]
		if !ok {
			return fmt.Errorf("component %s: unknown hook %q", s.Component.Name, name)
		}
		logger.Info("Running hook.", "hook", name)
		if err := h.Fn(ctx, s); err != nil {
			if h.Optional {
				logger.Warn("Optional hook failed; continuing.", "hook", name, "error", err)
				continue
			}
			return fmt.Errorf("hook %s for %s: %w", name, s.Component.Name, err)
		}
	}
	return nil
}
