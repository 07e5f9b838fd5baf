package hcl

import "github.com/zclconf/go-cty/cty"

// fileRoot decodes every top-level block a manifest file may contain.
type fileRoot struct {
	Components   []*componentBlock  `hcl:"component,block"`
	Releases     []*releaseBlock    `hcl:"release,block"`
	Targets      []*targetBlock     `hcl:"target,block"`
	Dependencies []*dependencyBlock `hcl:"dependency,block"`
	Assets       []*assetBlock      `hcl:"asset,block"`
}

type componentBlock struct {
	Name           string   `hcl:"name,label"`
	Path           string   `hcl:"path,optional"`
	LogName        string   `hcl:"log_name,optional"`
	Owner          string   `hcl:"owner,optional"`
	Repo           string   `hcl:"repo,optional"`
	Branch         string   `hcl:"branch,optional"`
	BuildSystem    string   `hcl:"build_system,optional"`
	Source         string   `hcl:"source,optional"`
	ConfigureFlags []string `hcl:"configure_flags,optional"`
	CMakeFlags     []string `hcl:"cmake_flags,optional"`
	DependsOn      []string `hcl:"depends_on,optional"`
	Hooks          []string `hcl:"hooks,optional"`
}

type releaseBlock struct {
	Name string `hcl:"name,label"`
	// Versions maps component names to tags. Tags must be quoted strings;
	// stringMap rejects anything else.
	Versions cty.Value `hcl:"versions"`
}

type targetBlock struct {
	Name        string   `hcl:"name,label"`
	Description string   `hcl:"description,optional"`
	Include     []string `hcl:"include,optional"`
	Components  []string `hcl:"components,optional"`
}

type dependencyBlock struct {
	Name            string   `hcl:"name,label"`
	Version         string   `hcl:"version,optional"`
	URL             string   `hcl:"url"`
	BuildSystem     string   `hcl:"build_system,optional"`
	StripComponents int      `hcl:"strip_components,optional"`
	ConfigureFlags  []string `hcl:"configure_flags,optional"`
	CMakeFlags      []string `hcl:"cmake_flags,optional"`
	Patches         []string `hcl:"patches,optional"`
}

type assetBlock struct {
	Name            string `hcl:"name,label"`
	URL             string `hcl:"url"`
	Dest            string `hcl:"dest,optional"`
	StripComponents int    `hcl:"strip_components,optional"`
}
