package app

import (
	"context"
	"fmt"
	"maps"
	"os"

	"github.com/worldforge/hammer/internal/config"
	"github.com/worldforge/hammer/internal/ctxlog"
	"github.com/worldforge/hammer/internal/deps"
	"github.com/worldforge/hammer/internal/dispatch"
	"github.com/worldforge/hammer/internal/hooks"
	"github.com/worldforge/hammer/internal/release"
	"github.com/worldforge/hammer/internal/version"
)

// EmberComponent is the client packaged by ReleaseEmber.
const EmberComponent = "ember"

// InstallDeps installs the named third-party dependency, or all of them.
func (a *App) InstallDeps(ctx context.Context, name string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	list, err := deps.Select(a.model, name)
	if err != nil {
		return err
	}
	if err := a.layout.Ensure(); err != nil {
		return err
	}
	return a.installer.InstallAll(ctx, list)
}

// Checkout syncs every working copy of target.
func (a *App) Checkout(ctx context.Context, target string) error {
	return a.checkout(ctxlog.WithLogger(ctx, a.logger), target, a.versions)
}

func (a *App) checkout(ctx context.Context, target string, versions *version.Table) error {
	ops, err := a.dispatcher.Dispatch(dispatch.Checkout, target)
	if err != nil {
		return err
	}
	if err := a.layout.Ensure(); err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx)
	for _, op := range ops {
		c := op.Component
		rev, src, err := versions.ResolveWithSource(c.Name)
		if err != nil {
			return err
		}
		owner, ok := a.owners[c.Name]
		if !ok {
			owner = c.OwnerName()
		}
		logger.Info("Checking out component.", "component", c.Name, "revision", rev, "revision_source", src.String(), "owner", owner)
		res, err := a.syncer.Sync(ctx, c, owner, rev)
		if err != nil {
			return err
		}
		logger.Info("Component checked out.", "component", c.Name, "result", res.String())
	}
	return nil
}

// Build runs the stale phases of every component of target, in order, then
// the component's hooks. The first failure stops the build.
func (a *App) Build(ctx context.Context, target string, extraMake []string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ops, err := a.dispatcher.Dispatch(dispatch.Build, target)
	if err != nil {
		return err
	}
	if err := a.layout.Ensure(); err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx)
	for _, op := range ops {
		c := op.Component
		logger.Info("Building component.", "component", c.Name, "variant", a.variant.Name())
		if err := a.builder.Build(ctx, c, extraMake); err != nil {
			return err
		}
		if err := a.hooks.Run(ctx, op.Hooks, hooks.Subject{Component: c, Prefix: a.layout.Prefix}); err != nil {
			return err
		}
	}
	logger.Info("Build finished.", "target", target, "components", len(ops))
	return nil
}

// Clean removes the build directory of one component for the current
// variant. The working copy and installed files are kept.
func (a *App) Clean(ctx context.Context, name string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ops, err := a.dispatcher.Dispatch(dispatch.Clean, name)
	if err != nil {
		return err
	}
	for _, op := range ops {
		dir := a.layout.BuildDir(op.Component, a.variant)
		ctxlog.FromContext(ctx).Info("Removing build directory.", "component", op.Component.Name, "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("cleaning %s: %w", op.Component.Name, err)
		}
	}
	return nil
}

// ReleaseEmber installs the dependencies, checks out the pinned libraries
// and the client at emberVersion, builds them and packages the result.
// It returns the path of the release artifact.
func (a *App) ReleaseEmber(ctx context.Context, emberVersion, mode string) (string, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	m, err := release.ParseMode(mode)
	if err != nil {
		return "", &ConfigError{Field: "release mode", Msg: err.Error()}
	}
	if emberVersion == "" {
		return "", &ConfigError{Field: "release version", Msg: "must not be empty"}
	}

	explicit := maps.Clone(a.explicit)
	if explicit == nil {
		explicit = make(map[string]string)
	}
	explicit[EmberComponent] = emberVersion
	versions, err := version.New(a.components, a.model.Releases[config.ReleaseLibs], true, explicit)
	if err != nil {
		return "", err
	}

	if err := a.InstallDeps(ctx, "all"); err != nil {
		return "", err
	}
	for _, target := range []string{"libs", EmberComponent} {
		if err := a.checkout(ctx, target, versions); err != nil {
			return "", err
		}
	}
	for _, target := range []string{"libs", EmberComponent} {
		if err := a.Build(ctx, target, nil); err != nil {
			return "", err
		}
	}
	return a.packager.Package(ctx, a.layout.Prefix, emberVersion, m)
}
