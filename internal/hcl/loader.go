package hcl

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/worldforge/hammer/internal/config"
	"github.com/worldforge/hammer/internal/ctxlog"
	"github.com/worldforge/hammer/internal/fsutil"
)

//go:embed default.hcl
var defaultManifest []byte

const builtinName = "builtin:default.hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	builtin []byte
}

// NewLoader creates a loader seeded with the manifest compiled into hammer.
func NewLoader() *Loader {
	return &Loader{builtin: defaultManifest}
}

// NewLoaderWithBuiltin creates a loader with a custom base manifest.
func NewLoaderWithBuiltin(src []byte) *Loader {
	return &Loader{builtin: src}
}

// Load parses the built-in manifest, then every path in order. Directories
// contribute all .hcl files beneath them.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL manifest loader started.", "path_count", len(paths))

	model := config.NewModel()
	parser := hclparse.NewParser()

	if len(l.builtin) > 0 {
		file, diags := parser.ParseHCL(l.builtin, builtinName)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse built-in manifest: %w", diags)
		}
		if err := l.merge(model, file, ""); err != nil {
			return nil, fmt.Errorf("built-in manifest: %w", err)
		}
	}

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered manifest files.", "count", len(files))

	for _, path := range files {
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
		}
		if err := l.merge(model, file, filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	inheritSourcePaths(model)
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	logger.Debug("Manifest loading complete.",
		"components", len(model.Components),
		"targets", len(model.Targets),
		"dependencies", len(model.Dependencies),
		"assets", len(model.Assets))
	return model, nil
}

// merge decodes one parsed file into the model. baseDir resolves relative
// patch paths; it is empty for the built-in manifest.
func (l *Loader) merge(model *config.Model, file *hcl.File, baseDir string) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode: %w", diags)
	}

	for _, c := range root.Components {
		model.MergeComponent(translateComponent(c))
	}
	for _, r := range root.Releases {
		versions, err := stringMap(r.Versions)
		if err != nil {
			return fmt.Errorf("release %q: versions: %w", r.Name, err)
		}
		model.Releases[r.Name] = versions
	}
	for _, t := range root.Targets {
		model.Targets[t.Name] = translateTarget(t)
	}
	for _, d := range root.Dependencies {
		model.MergeDependency(translateDependency(d, baseDir))
	}
	for _, a := range root.Assets {
		model.Assets[a.Name] = translateAsset(a)
	}
	return nil
}

// findAllHCLFiles expands directories and removes duplicates while keeping
// the order the user gave.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			allFiles = append(allFiles, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("manifest path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return allFiles, nil
}
