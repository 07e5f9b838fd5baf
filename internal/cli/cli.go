package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/worldforge/hammer/internal/app"
	"github.com/worldforge/hammer/internal/dispatch"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Runner is the set of user commands the CLI drives. *app.App satisfies it.
type Runner interface {
	InstallDeps(ctx context.Context, name string) error
	Checkout(ctx context.Context, target string) error
	Build(ctx context.Context, target string, extraMake []string) error
	Clean(ctx context.Context, name string) error
	ReleaseEmber(ctx context.Context, version, mode string) (string, error)
}

// Factory builds the Runner for a validated configuration. Logs go to logW.
type Factory func(logW io.Writer, cfg *app.Config) (Runner, error)

// NewApp is the production Factory.
func NewApp(logW io.Writer, cfg *app.Config) (Runner, error) {
	return app.NewApp(logW, cfg, app.Options{})
}

// DefaultWorkDir is used when neither --workdir nor $HAMMERDIR is set.
const DefaultWorkDir = "./work"

type globals struct {
	cfg     app.Config
	outW    io.Writer
	errW    io.Writer
	factory Factory
}

// runner validates the collected flags and builds the Runner. It is called
// only once a subcommand has accepted its arguments.
func (g *globals) runner() (Runner, error) {
	cfg, err := app.NewConfig(g.cfg)
	if err != nil {
		return nil, err
	}
	return g.factory(g.errW, cfg)
}

// Execute parses args, runs the selected command and maps any failure to an
// *ExitError.
func Execute(ctx context.Context, args []string, outW, errW io.Writer, factory Factory) error {
	root := NewRootCommand(outW, errW, factory)
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	return nil
}

// NewRootCommand returns the hammer command tree.
func NewRootCommand(outW, errW io.Writer, factory Factory) *cobra.Command {
	g := &globals{outW: outW, errW: errW, factory: factory}
	root := &cobra.Command{
		Use:   "hammer [global flags] COMMAND",
		Short: "Fetch, build and package the Worldforge projects",
		Long: `hammer checks out the Worldforge libraries, clients and servers, builds
them into a per-variant prefix under the work directory and packages
releases of the Ember client.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.SetOut(errW)
				_ = cmd.Usage()
				return errors.New("missing command")
			}
			return fmt.Errorf("%w %q; run 'hammer help' for usage", dispatch.ErrUnknownCommand, args[0])
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)
	addGlobalFlags(root.PersistentFlags(), &g.cfg)

	root.AddCommand(
		newInstallDepsCommand(g),
		newCheckoutCommand(g),
		newBuildCommand(g),
		newCleanCommand(g),
		newReleaseEmberCommand(g),
	)
	return root
}

func addGlobalFlags(f *pflag.FlagSet, cfg *app.Config) {
	workDir := os.Getenv("HAMMERDIR")
	if workDir == "" {
		workDir = DefaultWorkDir
	}
	f.StringVar(&cfg.WorkDir, "workdir", workDir, "Work directory holding sources, builds, logs and the install prefix ($HAMMERDIR).")
	f.StringVarP(&cfg.Target, "target", "t", app.NativeTarget, "Build target. Options: "+strings.Join(app.Targets(), ", ")+".")
	f.BoolVarP(&cfg.Debug, "debug", "d", false, "Build the debug variant.")

	f.StringVar(&cfg.MakeFlags, "make-flags", "", "Extra arguments for every make invocation.")
	f.StringVar(&cfg.ConfigureFlags, "configure-flags", "", "Extra arguments for every configure invocation.")
	f.StringVar(&cfg.CMakeFlags, "cmake-flags", "", "Extra arguments for every cmake invocation.")
	f.StringVar(&cfg.CompileFlags, "compile-flags", "", "Compiler flags exported as CFLAGS and CXXFLAGS.")
	f.StringVar(&cfg.LinkFlags, "link-flags", "", "Linker flags exported as LDFLAGS.")
	f.IntVarP(&cfg.Jobs, "jobs", "j", 0, "Parallel make jobs. 0 leaves the choice to make.")

	f.BoolVar(&cfg.ForceAutogen, "force-autogen", false, "Rerun autogen even when configure exists.")
	f.BoolVar(&cfg.ForceConfigure, "force-configure", false, "Rerun configure even when the build files exist.")

	f.BoolVar(&cfg.UseReleaseLibs, "use-release-libs", false, "Check out the pinned release of every library.")
	f.StringArrayVar(&cfg.UseRelease, "use-release", nil, "Check out a specific revision, as name=revision. Repeatable.")
	f.StringArrayVar(&cfg.Owners, "owner", nil, "Clone a component from another owner, as name=owner. Repeatable.")
	f.BoolVar(&cfg.AlwaysStash, "always-stash", false, "Stash local modifications instead of refusing to update.")
	f.StringArrayVar(&cfg.Manifests, "manifest", nil, "Extra HCL manifest merged over the built-in one. Repeatable.")

	f.StringVar(&cfg.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.StringVar(&cfg.LogFormat, "log-format", "auto", "Log output format. Options: 'auto', 'text' or 'json'.")
}
