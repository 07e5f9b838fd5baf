// Package component defines the buildable units hammer knows about: the
// Worldforge libraries, clients, servers and world data, together with the
// name transform used to match override strings against them.
package component

import (
	"fmt"
	"path"
	"strings"
)

// DefaultOwner is the GitHub owner used when a component does not name one.
const DefaultOwner = "worldforge"

// DefaultBranch is the revision a component tracks unless told otherwise.
const DefaultBranch = "master"

// BuildSystem selects the phase commands used to build a component.
type BuildSystem string

const (
	Autotools BuildSystem = "autotools"
	CMake     BuildSystem = "cmake"
	// Prebuilt components ship binaries; they are unpacked, never compiled.
	Prebuilt BuildSystem = "prebuilt"
)

// Valid reports whether b is one of the known build systems.
func (b BuildSystem) Valid() bool {
	switch b {
	case Autotools, CMake, Prebuilt:
		return true
	}
	return false
}

// Component is a named buildable unit.
type Component struct {
	Name        string
	Path        string // e.g. "libs/atlas-cpp"
	LogName     string
	Owner       string
	Repo        string
	Branch      string
	BuildSystem BuildSystem

	// Source names another component whose working copy this one builds
	// from. The WebEmber client is ember's source built with other flags.
	Source string

	ConfigureFlags []string
	CMakeFlags     []string
	DependsOn      []string
	Hooks          []string
}

// DisplayName is the name used for log directories and messages.
func (c Component) DisplayName() string {
	if c.LogName != "" {
		return c.LogName
	}
	return c.Name
}

// RepoName is the repository name under the owner on GitHub.
func (c Component) RepoName() string {
	if c.Repo != "" {
		return c.Repo
	}
	return path.Base(c.Path)
}

// OwnerName returns the configured owner or DefaultOwner.
func (c Component) OwnerName() string {
	if c.Owner != "" {
		return c.Owner
	}
	return DefaultOwner
}

// DefaultRevision is the built-in revision for the component.
func (c Component) DefaultRevision() string {
	if c.Branch != "" {
		return c.Branch
	}
	return DefaultBranch
}

// SharesSource reports whether the component builds from another
// component's working copy.
func (c Component) SharesSource() bool {
	return c.Source != "" && c.Source != c.Name
}

// LookupKey maps a component name to its override key: upper case with
// hyphens replaced by underscores ("atlas-cpp" becomes "ATLAS_CPP").
func LookupKey(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// Set is an ordered, name-indexed collection of components.
type Set struct {
	order  []string
	byName map[string]Component
	byKey  map[string]string
}

// NewSet builds a Set, rejecting duplicate names and names whose lookup
// keys collide.
func NewSet(comps ...Component) (*Set, error) {
	s := &Set{
		byName: make(map[string]Component, len(comps)),
		byKey:  make(map[string]string, len(comps)),
	}
	for _, c := range comps {
		if c.Name == "" {
			return nil, fmt.Errorf("component with path %q has no name", c.Path)
		}
		if _, dup := s.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate component %q", c.Name)
		}
		key := LookupKey(c.Name)
		if other, dup := s.byKey[key]; dup {
			return nil, fmt.Errorf("components %q and %q share override key %s", other, c.Name, key)
		}
		s.order = append(s.order, c.Name)
		s.byName[c.Name] = c
		s.byKey[key] = c.Name
	}
	return s, nil
}

// Get returns the component with the exact canonical name.
func (s *Set) Get(name string) (Component, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// Lookup accepts either a canonical name or its override key.
func (s *Set) Lookup(nameOrKey string) (Component, bool) {
	if c, ok := s.byName[nameOrKey]; ok {
		return c, true
	}
	if name, ok := s.byKey[nameOrKey]; ok {
		return s.byName[name], true
	}
	return Component{}, false
}

// Names returns the component names in declaration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len is the number of components in the set.
func (s *Set) Len() int {
	return len(s.order)
}
