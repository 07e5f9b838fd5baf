// Package version resolves the source revision each component is fetched at.
//
// Three tiers apply, lowest first: the component's built-in default
// revision, the pinned release table when pinned mode is on, and explicit
// per-component overrides from the command line.
package version

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/worldforge/hammer/internal/component"
)

// ErrUnknownComponent is returned for names that match no component.
var ErrUnknownComponent = errors.New("unknown component")

// Source tells which tier produced a resolved revision.
type Source int

const (
	FromDefault Source = iota
	FromPinned
	FromExplicit
)

func (s Source) String() string {
	switch s {
	case FromPinned:
		return "pinned"
	case FromExplicit:
		return "explicit"
	default:
		return "default"
	}
}

// Table is the immutable name-to-revision mapping for one invocation.
type Table struct {
	components *component.Set
	pinned     map[string]string
	usePinned  bool
	explicit   map[string]string
}

// New builds a Table. Keys of pinned and explicit may be canonical names or
// override keys; both are normalised to canonical names here so an unknown
// name fails before anything is fetched.
func New(components *component.Set, pinned map[string]string, usePinned bool, explicit map[string]string) (*Table, error) {
	t := &Table{
		components: components,
		usePinned:  usePinned,
	}
	var err error
	if t.pinned, err = normalise(components, pinned); err != nil {
		return nil, fmt.Errorf("pinned release table: %w", err)
	}
	if t.explicit, err = normalise(components, explicit); err != nil {
		return nil, fmt.Errorf("version override: %w", err)
	}
	return t, nil
}

func normalise(components *component.Set, in map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for _, key := range sortedKeys(in) {
		c, ok := components.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, key)
		}
		if in[key] == "" {
			return nil, fmt.Errorf("empty revision for %q", c.Name)
		}
		out[c.Name] = in[key]
	}
	return out, nil
}

// Resolve returns the revision for the named component.
func (t *Table) Resolve(name string) (string, error) {
	rev, _, err := t.ResolveWithSource(name)
	return rev, err
}

// ResolveWithSource is Resolve plus the tier the revision came from.
func (t *Table) ResolveWithSource(name string) (string, Source, error) {
	c, ok := t.components.Get(name)
	if !ok {
		return "", FromDefault, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	if rev, ok := t.explicit[c.Name]; ok {
		return rev, FromExplicit, nil
	}
	if t.usePinned {
		if rev, ok := t.pinned[c.Name]; ok {
			return rev, FromPinned, nil
		}
	}
	return c.DefaultRevision(), FromDefault, nil
}

// ParseOverride splits "name=revision". The name may be given as the
// canonical component name or as its override key ("ATLAS_CPP=0.6.4").
func ParseOverride(s string) (name, revision string, err error) {
	name, revision, ok := strings.Cut(s, "=")
	name, revision = strings.TrimSpace(name), strings.TrimSpace(revision)
	if !ok || name == "" || revision == "" {
		return "", "", fmt.Errorf("malformed override %q, want name=revision", s)
	}
	return name, revision, nil
}

// ParseOverrides turns repeated "name=revision" strings into a map. A later
// entry for the same name replaces an earlier one.
func ParseOverrides(entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		name, rev, err := ParseOverride(e)
		if err != nil {
			return nil, err
		}
		out[name] = rev
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
