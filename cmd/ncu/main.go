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
		Use:   "ncu [directory]",
		Short: "Check package.json dependencies for available updates",
		Long: `Scans a project directory for package.json, checks the npm registry for
newer versions of each dependency, and optionally rewrites the version
ranges in place.

package-lock.json and yarn.lock are read to determine the installed
versions but are never modified; after an update the matching install
command is suggested instead.`,
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
		"Write safe updates back to package.json")
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
		logger.Fatalf("Error executing 'ncu': %s", err)
	}
}
