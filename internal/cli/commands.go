package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInstallDepsCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "install-deps NAME|all",
		Short: "Download and install third-party dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.runner()
			if err != nil {
				return err
			}
			return r.InstallDeps(cmd.Context(), args[0])
		},
	}
}

func newCheckoutCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "checkout TARGET",
		Short:   "Clone or update the working copies of a target",
		Example: "  hammer checkout libs\n  hammer --use-release-libs checkout all",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.runner()
			if err != nil {
				return err
			}
			return r.Checkout(cmd.Context(), args[0])
		},
	}
}

func newBuildCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build TARGET [MAKE_ARGS...]",
		Short: "Build and install every component of a target",
		Long: `Build runs the stale autogen, configure, make and make install phases of
each component of TARGET in order. Arguments after TARGET are passed to make.`,
		Example: "  hammer -j8 build libs\n  hammer build ember -k V=1",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.runner()
			if err != nil {
				return err
			}
			return r.Build(cmd.Context(), args[0], args[1:])
		},
	}
	// Everything after TARGET belongs to make.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newCleanCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "clean COMPONENT",
		Short: "Remove the build directory of one component",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.runner()
			if err != nil {
				return err
			}
			return r.Clean(cmd.Context(), args[0])
		},
	}
}

func newReleaseEmberCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "release_ember VERSION [dir|image]",
		Short: "Build and package an Ember release",
		Long: `release_ember installs the dependencies, checks out the pinned libraries
and Ember at VERSION, builds them and packages the client either as a
directory tree or as an AppImage (the default).`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := ""
			if len(args) > 1 {
				mode = args[1]
			}
			r, err := g.runner()
			if err != nil {
				return err
			}
			out, err := r.ReleaseEmber(cmd.Context(), args[0], mode)
			if err != nil {
				return err
			}
			fmt.Fprintln(g.outW, out)
			return nil
		},
	}
}
