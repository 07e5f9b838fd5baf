package hcl

import (
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// translateComponent converts a component block into the model type.
func translateComponent(b *componentBlock) component.Component {
	return component.Component{
		Name:           b.Name,
		Path:           b.Path,
		LogName:        b.LogName,
		Owner:          b.Owner,
		Repo:           b.Repo,
		Branch:         b.Branch,
		BuildSystem:    buildSystemOrDefault(b.BuildSystem),
		Source:         b.Source,
		ConfigureFlags: b.ConfigureFlags,
		CMakeFlags:     b.CMakeFlags,
		DependsOn:      b.DependsOn,
		Hooks:          b.Hooks,
	}
}

func translateTarget(b *targetBlock) *config.Target {
	return &config.Target{
		Name:        b.Name,
		Description: b.Description,
		Include:     b.Include,
		Components:  b.Components,
	}
}

func translateDependency(b *dependencyBlock, baseDir string) *config.Dependency {
	d := &config.Dependency{
		Name:            b.Name,
		Version:         b.Version,
		URL:             b.URL,
		BuildSystem:     buildSystemOrDefault(b.BuildSystem),
		StripComponents: b.StripComponents,
		ConfigureFlags:  b.ConfigureFlags,
		CMakeFlags:      b.CMakeFlags,
	}
	for _, p := range b.Patches {
		d.Patches = append(d.Patches, resolvePatch(p, baseDir))
	}
	return d
}

func translateAsset(b *assetBlock) *config.Asset {
	return &config.Asset{
		Name:            b.Name,
		URL:             b.URL,
		Dest:            b.Dest,
		StripComponents: b.StripComponents,
	}
}

func buildSystemOrDefault(s string) component.BuildSystem {
	if s == "" {
		return component.Autotools
	}
	return component.BuildSystem(s)
}

// resolvePatch makes local patch paths relative to the manifest that named
// them. URLs and absolute paths pass through.
func resolvePatch(p, baseDir string) string {
	if u, err := url.Parse(p); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return p
	}
	if filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}

// inheritSourcePaths gives components that borrow a working copy the path
// of the component they borrow from, unless they set one explicitly.
func inheritSourcePaths(model *config.Model) {
	paths := make(map[string]string, len(model.Components))
	for _, c := range model.Components {
		paths[c.Name] = c.Path
	}
	for i, c := range model.Components {
		if c.SharesSource() && c.Path == "" {
			model.Components[i].Path = paths[c.Source]
		}
	}
}

// stringMap converts an object or map value into a Go map of strings.
func stringMap(v cty.Value) (map[string]string, error) {
	if v.IsNull() || !v.IsWhollyKnown() {
		return nil, fmt.Errorf("must be a known, non-null map")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("must be a map, got %s", ty.FriendlyName())
	}

	out := make(map[string]string, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		// Numbers are rejected rather than converted: 1.0 would become "1".
		if !ev.Type().Equals(cty.String) {
			return nil, fmt.Errorf("%s: must be a quoted string, got %s", k.AsString(), ev.Type().FriendlyName())
		}
		if ev.IsNull() {
			return nil, fmt.Errorf("%s: must not be null", k.AsString())
		}
		out[k.AsString()] = ev.AsString()
	}
	return out, nil
}
