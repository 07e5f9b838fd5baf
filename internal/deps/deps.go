// Package deps installs the third-party libraries hammer builds from
// release tarballs rather than git.
package deps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/config"
	"github.com/worldforge/hammer/internal/ctxlog"
	"github.com/worldforge/hammer/internal/fetch"
	"github.com/worldforge/hammer/internal/phase"
	"github.com/worldforge/hammer/internal/planner"
)

// patchedMarker records, inside an unpacked source tree, that its patches
// were applied.
const patchedMarker = ".hammer-patched"

// Builder runs the phases of an unpacked dependency.
type Builder interface {
	Build(ctx context.Context, c component.Component, extraMake []string) error
}

// Locator returns the unpacked source tree of a dependency.
type Locator interface {
	SourceDir(c component.Component) string
}

// Options configure an Installer.
type Options struct {
	Client   *http.Client
	CacheDir string
	// Prefix receives prebuilt dependencies.
	Prefix string
}

// Installer downloads, unpacks, patches and builds dependencies.
type Installer struct {
	builder Builder
	runner  *phase.Runner
	locator Locator
	opts    Options
}

// NewInstaller creates an Installer. runner executes the patch steps.
func NewInstaller(builder Builder, runner *phase.Runner, locator Locator, opts Options) *Installer {
	if opts.Client == nil {
		opts.Client = fetch.NewClient(0)
	}
	return &Installer{builder: builder, runner: runner, locator: locator, opts: opts}
}

// Select returns the named dependency, or every dependency in manifest
// order for "all".
func Select(model *config.Model, name string) ([]*config.Dependency, error) {
	if name == "all" {
		return model.Dependencies, nil
	}
	d, ok := model.Dependency(name)
	if !ok {
		return nil, fmt.Errorf("unknown dependency %q", name)
	}
	return []*config.Dependency{d}, nil
}

// InstallAll installs deps in order, stopping at the first failure.
func (i *Installer) InstallAll(ctx context.Context, deps []*config.Dependency) error {
	for _, d := range deps {
		if err := i.Install(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// Install brings one dependency into the prefix. Every step is skipped when
// its result is already on disk, so repeated runs only rebuild.
func (i *Installer) Install(ctx context.Context, d *config.Dependency) error {
	ctx = ctxlog.With(ctx, "dependency", d.Name)
	logger := ctxlog.FromContext(ctx)
	logger.Info("Installing dependency.", "version", d.Version)

	archive, err := fetch.Download(ctx, i.opts.Client, d.URL, i.opts.CacheDir)
	if err != nil {
		return fmt.Errorf("dependency %s: %w", d.Name, err)
	}

	c := d.Component()
	if c.BuildSystem == component.Prebuilt {
		if err := fetch.Extract(archive, i.opts.Prefix, d.StripComponents); err != nil {
			return fmt.Errorf("dependency %s: %w", d.Name, err)
		}
		logger.Info("Unpacked prebuilt dependency.", "prefix", i.opts.Prefix)
		return nil
	}

	src := i.locator.SourceDir(c)
	if err := unpack(archive, src, d.StripComponents); err != nil {
		return fmt.Errorf("dependency %s: %w", d.Name, err)
	}
	if err := i.applyPatches(ctx, c, d.Patches, src); err != nil {
		return fmt.Errorf("dependency %s: %w", d.Name, err)
	}
	return i.builder.Build(ctx, c, nil)
}

// unpack extracts archive into src unless src already exists. Extraction
// goes through a sibling directory so an interrupted run leaves nothing
// behind under src.
func unpack(archive, src string, strip int) error {
	if _, err := os.Stat(src); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(filepath.Dir(src), filepath.Base(src)+".unpack-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	if err := fetch.Extract(archive, tmp, strip); err != nil {
		return err
	}
	return os.Rename(tmp, src)
}

func (i *Installer) applyPatches(ctx context.Context, c component.Component, patches []string, src string) error {
	if len(patches) == 0 {
		return nil
	}
	marker := filepath.Join(src, patchedMarker)
	if _, err := os.Stat(marker); err == nil {
		ctxlog.FromContext(ctx).Debug("Patches already applied.")
		return nil
	}

	for n, p := range patches {
		file, err := i.patchFile(ctx, p)
		if err != nil {
			return err
		}
		cmd := phase.Command{Program: "patch", Args: []string{"-p1", "-i", file}, Dir: src}
		if err := i.runner.Run(ctx, c.DisplayName(), planner.Phase(fmt.Sprintf("patch-%d", n+1)), cmd); err != nil {
			return err
		}
	}
	return os.WriteFile(marker, []byte(strings.Join(patches, "\n")+"\n"), 0o644)
}

// patchFile returns a local path for p, downloading it when p is a URL.
func (i *Installer) patchFile(ctx context.Context, p string) (string, error) {
	if u, err := url.Parse(p); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return fetch.Download(ctx, i.opts.Client, p, filepath.Join(i.opts.CacheDir, "patches"))
	}
	return p, nil
}
