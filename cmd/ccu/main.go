package main

import (
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forgeutils/check-updates/application"
	"github.com/forgeutils/check-updates/domain"
)

type flags struct {
	update     bool
	minor      bool
	force      bool
	prerelease bool
	verbose    bool
}

func (f flags) policy() domain.UpdatePolicy {
	return domain.UpdatePolicy{
		Apply:             f.update || f.force,
		AllowMinor:        f.minor,
		Force:             f.force,
		IncludePrerelease: f.prerelease,
	}
}

func buildRootCommand(service *application.CheckService) *cobra.Command {
	var opts flags
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "ccu [directory]",
		Short: "Check Cargo.toml dependencies for available updates",
		Long: `Scans a project directory for Cargo.toml, checks crates.io for newer
versions of each dependency, and optionally rewrites the version
requirements in place.

Cargo.lock is read to determine the installed versions but is never
modified; after an update "cargo update --workspace" is suggested
instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			if opts.verbose {
				logger.SetLevel(logger.DebugLevel)
			}
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return service.Run(command.Context(), application.CheckOptions{
				Dir:    dir,
				Policy: opts.policy(),
			})
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(&opts.update, "update", "u", false,
		"Write safe updates back to Cargo.toml")
	cmd.Flags().BoolVarP(&opts.minor, "minor", "m", false,
		"Treat minor version bumps as safe to write")
	cmd.Flags().BoolVarP(&opts.force, "force-latest", "f", false,
		"Write the absolute latest version, majors included")
	cmd.Flags().BoolVarP(&opts.prerelease, "pre-release", "p", false,
		"Include pre-release versions as candidates")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable verbose output")

	return cmd
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	service := injectCheckService()
	if err := buildRootCommand(service).Execute(); err != nil {
		logger.Fatalf("Error executing 'ccu': %s", err)
	}
}
