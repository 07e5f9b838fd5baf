package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/worldforge/hammer/internal/component"
	"github.com/worldforge/hammer/internal/config"
	"github.com/worldforge/hammer/internal/ctxlog"
	"github.com/worldforge/hammer/internal/deps"
	"github.com/worldforge/hammer/internal/dispatch"
	"github.com/worldforge/hammer/internal/fetch"
	"github.com/worldforge/hammer/internal/hcl"
	"github.com/worldforge/hammer/internal/hooks"
	"github.com/worldforge/hammer/internal/phase"
	"github.com/worldforge/hammer/internal/planner"
	"github.com/worldforge/hammer/internal/release"
	"github.com/worldforge/hammer/internal/sourcesync"
	"github.com/worldforge/hammer/internal/version"
	"github.com/worldforge/hammer/internal/workspace"
)

// Options replace the collaborators an App talks to the outside world
// through. Zero fields select the real implementations.
type Options struct {
	Loader     config.Loader
	Executor   phase.Executor
	Probe      planner.Probe
	HTTPClient *http.Client
	// Environ is the base environment of child processes.
	Environ []string
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	model      *config.Model
	components *component.Set
	target     Target
	variant    planner.Variant
	layout     workspace.Layout

	explicit map[string]string
	owners   map[string]string
	versions *version.Table

	dispatcher *dispatch.Dispatcher
	hooks      *hooks.Registry
	runner     *phase.Runner
	builder    *phase.Builder
	syncer     *sourcesync.Syncer
	installer  *deps.Installer
	packager   *release.Packager
}

// NewApp is the constructor for the main application. Everything that can
// be rejected without touching the work dir (manifest, target, overrides,
// hooks) is checked here.
func NewApp(outW io.Writer, cfg *Config, opts Options) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if opts.Loader == nil {
		opts.Loader = hcl.NewLoader()
	}
	if opts.Executor == nil {
		opts.Executor = phase.ExecExecutor{}
	}
	if opts.Probe == nil {
		opts.Probe = planner.OSProbe{}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = fetch.NewClient(0)
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ()
	}

	model, err := opts.Loader.Load(ctx, cfg.Manifests...)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	comps, err := model.ComponentSet()
	if err != nil {
		return nil, err
	}
	logger.Debug("Manifest loaded.", "components", comps.Len(), "targets", model.TargetNames())

	target, err := LookupTarget(cfg.Target)
	if err != nil {
		return nil, &ConfigError{Field: "target", Msg: err.Error()}
	}
	variant := target.Variant(cfg.Debug)
	layout, err := workspace.Setup(cfg.WorkDir, variant)
	if err != nil {
		return nil, err
	}

	explicit, err := version.ParseOverrides(cfg.UseRelease)
	if err != nil {
		return nil, &ConfigError{Field: "use-release", Msg: err.Error()}
	}
	versions, err := version.New(comps, model.Releases[config.ReleaseLibs], cfg.UseReleaseLibs, explicit)
	if err != nil {
		return nil, err
	}
	owners, err := normaliseOwners(comps, cfg.Owners)
	if err != nil {
		return nil, err
	}

	dispatcher, err := dispatch.New(model)
	if err != nil {
		return nil, err
	}
	hookRegistry := hooks.New()
	hooks.RegisterBuiltins(hookRegistry, hooks.MediaOptions{
		Client:   opts.HTTPClient,
		CacheDir: layout.CacheRoot,
		Assets:   model.Assets,
	})
	if err := hookRegistry.Validate(model.Components); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	logger.Debug("Hooks registered.", "hooks", hookRegistry.Names())

	env := layout.Env(opts.Environ, workspace.EnvOptions{
		CompileFlags: cfg.CompileFlags,
		LinkFlags:    cfg.LinkFlags,
		Cross:        target.Cross(),
	})
	runner := phase.NewRunner(opts.Executor, layout.LogRoot, env)
	builder := phase.NewBuilder(planner.New(opts.Probe, layout), runner, layout, phase.BuildOptions{
		Variant: variant,
		Force:   planner.Force{Autogen: cfg.ForceAutogen, Configure: cfg.ForceConfigure},
		Flags: phase.Flags{
			Prefix:    layout.Prefix,
			Host:      target.Host,
			Debug:     cfg.Debug,
			Jobs:      cfg.Jobs,
			Make:      fields(cfg.MakeFlags),
			Configure: fields(cfg.ConfigureFlags),
			CMake:     fields(cfg.CMakeFlags),
		},
		LibDir: layout.LibDir(),
	})

	a := &App{
		outW:       outW,
		logger:     logger,
		config:     cfg,
		model:      model,
		components: comps,
		target:     target,
		variant:    variant,
		layout:     layout,
		explicit:   explicit,
		owners:     owners,
		versions:   versions,
		dispatcher: dispatcher,
		hooks:      hookRegistry,
		runner:     runner,
		builder:    builder,
		syncer: sourcesync.New(opts.Executor, opts.Probe, layout, layout.LogRoot, sourcesync.Options{
			AlwaysStash: cfg.AlwaysStash,
			Env:         env,
		}),
		installer: deps.NewInstaller(builder, runner, layout, deps.Options{
			Client:   opts.HTTPClient,
			CacheDir: layout.CacheRoot,
			Prefix:   layout.Prefix,
		}),
		packager: release.NewPackager(runner, layout.ReleaseRoot, variant.Arch),
	}
	logger.Debug("App initialised.", "workdir", layout.Root, "variant", variant.Name())
	return a, nil
}

func normaliseOwners(comps *component.Set, entries []string) (map[string]string, error) {
	raw, err := version.ParseOverrides(entries)
	if err != nil {
		return nil, &ConfigError{Field: "owner", Msg: err.Error()}
	}
	owners := make(map[string]string, len(raw))
	for name, owner := range raw {
		c, ok := comps.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("owner override: %w %q", version.ErrUnknownComponent, name)
		}
		owners[c.Name] = owner
	}
	return owners, nil
}
