package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nodeup/nodeup"
	"github.com/nodeup/nodeup/config"
	"github.com/nodeup/nodeup/dist"
	"github.com/nodeup/nodeup/version"
)

// overridden via ldflags on release builds
var release = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nodeup",
		Short:         "provision a node runtime matching the project's version constraint",
		Version:       release,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newInstallCmd(),
		newResolveCmd(),
		newPlatformCmd(),
	)

	return root
}

// installFlags are the command line overrides; anything left unset falls
// back to nodeup.toml and finally to the built-in defaults.
type installFlags struct {
	constraint string
	dir        string
	binDir     string
	mirror     string
	local      bool
}

func newInstallCmd() *cobra.Command {
	var flags installFlags

	cmd := &cobra.Command{
		Use:   "install",
		Short: "resolve the constraint and install the best matching release",
		RunE: func(cmd *cobra.Command, args []string) error {
			installer, err := buildInstaller(flags)
			if err != nil {
				return err
			}
			return installer.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&flags.constraint, "constraint", "", "version constraint, overriding engines declarations")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "runtime install directory")
	cmd.Flags().StringVar(&flags.binDir, "bin-dir", "", "entry-point script directory")
	cmd.Flags().StringVar(&flags.mirror, "mirror", "", "release file server base url")
	cmd.Flags().BoolVar(&flags.local, "local", false, "always install locally, ignoring any global runtime")

	return cmd
}

func newResolveCmd() *cobra.Command {
	var mirror string

	cmd := &cobra.Command{
		Use:   "resolve [constraint]",
		Short: "print the version the constraint resolves to, without installing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := ""
			if len(args) == 1 {
				expr = args[0]
			}
			if expr == "" {
				expr = config.MergedConstraint(".")
			}

			constraint, err := version.ParseConstraint(expr)
			if err != nil {
				return err
			}

			releases, err := dist.NewClient(dist.WithBaseURL(mirror)).Releases(cmd.Context())
			if err != nil {
				return err
			}

			candidates := make([]string, 0, len(releases))
			for _, rel := range releases {
				candidates = append(candidates, rel.Version)
			}

			best, ok := version.BestMatch(constraint, candidates)
			if !ok {
				return fmt.Errorf("no version matching constraint %q", expr)
			}

			fmt.Fprintln(cmd.OutOrStdout(), best)
			return nil
		},
	}

	cmd.Flags().StringVar(&mirror, "mirror", "", "release file server base url")

	return cmd
}

func newPlatformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "print the detected host descriptor",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), dist.Detect())
			return nil
		},
	}
}

// buildInstaller merges flags over nodeup.toml over defaults and constructs
// the installer. The constraint resolution order is: --constraint flag,
// nodeup.toml, aggregated engines declarations.
func buildInstaller(flags installFlags) (*nodeup.Installer, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}

	constraint := flags.constraint
	if constraint == "" {
		constraint = cfg.Constraint
	}
	if constraint == "" {
		constraint = config.MergedConstraint(".")
	}

	opts := []nodeup.Option{
		nodeup.WithInstallDir(firstOf(flags.dir, cfg.InstallDir)),
		nodeup.WithBinDir(firstOf(flags.binDir, cfg.BinDir)),
		nodeup.WithMirror(firstOf(flags.mirror, cfg.Mirror)),
	}
	if flags.local || cfg.ForceLocal {
		opts = append(opts, nodeup.WithForceLocal())
	}

	return nodeup.New(constraint, opts...)
}

func firstOf(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
