package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/dag"
)

// ReleaseLibs names the pinned table used by --use-release-libs.
const ReleaseLibs = "libs"

// ErrUnknownTarget is returned for target names the manifest does not define.
var ErrUnknownTarget = errors.New("unknown target")

// Model is the unified representation of all loaded manifests.
type Model struct {
	Components   []component.Component
	Releases     map[string]map[string]string
	Targets      map[string]*Target
	Dependencies []*Dependency
	Assets       map[string]*Asset
}

// NewModel returns an empty model ready to be merged into.
func NewModel() *Model {
	return &Model{
		Releases: make(map[string]map[string]string),
		Targets:  make(map[string]*Target),
		Assets:   make(map[string]*Asset),
	}
}

// Target is a named, ordered group of components.
type Target struct {
	Name        string
	Description string
	// Include lists other targets expanded, in order, before Components.
	Include    []string
	Components []string
}

// Dependency is a third-party package built from a release tarball.
type Dependency struct {
	Name            string
	Version         string
	URL             string
	BuildSystem     component.BuildSystem
	StripComponents int
	ConfigureFlags  []string
	CMakeFlags      []string
	// Patches are URLs or local paths applied with patch -p1 after unpacking.
	Patches []string
}

// Component returns the dependency as a buildable component living under
// "deps/<name>".
func (d *Dependency) Component() component.Component {
	return component.Component{
		Name:           d.Name,
		Path:           "deps/" + d.Name,
		LogName:        "deps-" + d.Name,
		BuildSystem:    d.BuildSystem,
		ConfigureFlags: d.ConfigureFlags,
		CMakeFlags:     d.CMakeFlags,
	}
}

// Asset is a downloadable archive unpacked into the install prefix.
type Asset struct {
	Name            string
	URL             string
	Dest            string // relative to the install prefix
	StripComponents int
}

// MergeComponent adds c, replacing an earlier component of the same name
// in place so declaration order is preserved.
func (m *Model) MergeComponent(c component.Component) {
	for i := range m.Components {
		if m.Components[i].Name == c.Name {
			m.Components[i] = c
			return
		}
	}
	m.Components = append(m.Components, c)
}

// MergeDependency adds d, replacing an earlier dependency of the same name.
func (m *Model) MergeDependency(d *Dependency) {
	for i := range m.Dependencies {
		if m.Dependencies[i].Name == d.Name {
			m.Dependencies[i] = d
			return
		}
	}
	m.Dependencies = append(m.Dependencies, d)
}

// ComponentSet indexes the model's components.
func (m *Model) ComponentSet() (*component.Set, error) {
	return component.NewSet(m.Components...)
}

// Dependency looks up a third-party dependency by name.
func (m *Model) Dependency(name string) (*Dependency, bool) {
	for _, d := range m.Dependencies {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// TargetNames returns the defined target names, sorted.
func (m *Model) TargetNames() []string {
	names := make([]string, 0, len(m.Targets))
	for name := range m.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExpandTarget returns the ordered component names of a target with all
// includes resolved. A component reached twice keeps its first position.
func (m *Model) ExpandTarget(name string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	var expand func(name string, stack []string) error
	expand = func(name string, stack []string) error {
		for _, s := range stack {
			if s == name {
				return fmt.Errorf("target include cycle: %s -> %s", strings.Join(stack, " -> "), name)
			}
		}
		t, ok := m.Targets[name]
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownTarget, name)
		}
		stack = append(stack, name)
		for _, inc := range t.Include {
			if err := expand(inc, stack); err != nil {
				return err
			}
		}
		for _, c := range t.Components {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
		return nil
	}
	if err := expand(name, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks every cross reference in the model and that each
// target builds components after the components they link against.
func (m *Model) Validate() error {
	set, err := m.ComponentSet()
	if err != nil {
		return err
	}

	graph := dag.New()
	for _, c := range m.Components {
		if !c.BuildSystem.Valid() {
			return fmt.Errorf("component %s: unknown build system %q", c.Name, c.BuildSystem)
		}
		if c.SharesSource() {
			src, ok := set.Get(c.Source)
			if !ok {
				return fmt.Errorf("component %s: source component %q not defined", c.Name, c.Source)
			}
			if src.SharesSource() {
				return fmt.Errorf("component %s: source component %q itself borrows a source", c.Name, c.Source)
			}
		}
		if c.Path == "" {
			return fmt.Errorf("component %s: path is required", c.Name)
		}
		graph.AddNode(c.Name)
	}
	for _, c := range m.Components {
		for _, dep := range c.DependsOn {
			if _, ok := set.Get(dep); !ok {
				return fmt.Errorf("component %s: depends on unknown component %q", c.Name, dep)
			}
			if err := graph.AddEdge(dep, c.Name); err != nil {
				return fmt.Errorf("component %s: %w", c.Name, err)
			}
		}
	}
	if err := graph.DetectCycles(); err != nil {
		return fmt.Errorf("component dependencies: %w", err)
	}

	for _, release := range sortedKeys(m.Releases) {
		for name := range m.Releases[release] {
			if _, ok := set.Lookup(name); !ok {
				return fmt.Errorf("release %q pins unknown component %q", release, name)
			}
		}
	}

	for _, name := range m.TargetNames() {
		order, err := m.ExpandTarget(name)
		if err != nil {
			return fmt.Errorf("target %s: %w", name, err)
		}
		for _, c := range order {
			if _, ok := set.Get(c); !ok {
				return fmt.Errorf("target %s: unknown component %q", name, c)
			}
		}
		if err := graph.CheckOrder(order); err != nil {
			return fmt.Errorf("target %s: %w", name, err)
		}
	}

	for _, d := range m.Dependencies {
		if d.URL == "" {
			return fmt.Errorf("dependency %s: url is required", d.Name)
		}
		if !d.BuildSystem.Valid() {
			return fmt.Errorf("dependency %s: unknown build system %q", d.Name, d.BuildSystem)
		}
		if d.StripComponents < 0 {
			return fmt.Errorf("dependency %s: strip_components must not be negative", d.Name)
		}
	}
	for _, name := range sortedKeys(m.Assets) {
		if a := m.Assets[name]; a.URL == "" {
			return fmt.Errorf("asset %s: url is required", name)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
