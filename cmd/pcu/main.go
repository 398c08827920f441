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
	global     bool
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

func buildRootCommand(app *appContext) *cobra.Command {
	var opts flags
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "pcu [directory]",
		Short: "Check Python dependency files for available updates",
		Long: `Scans a project directory for Python dependency files (requirements.txt,
pyproject.toml, environment.yml), checks PyPI for newer versions, and
optionally rewrites the version constraints in place.

Lock files (uv.lock, poetry.lock, pdm.lock) are read to determine the
installed versions but are never modified; after an update the matching
lock command is suggested instead.

With --global the locally installed tools and packages (uv, pipx,
pip --user) are checked instead of a project directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			if opts.verbose {
				logger.SetLevel(logger.DebugLevel)
			}
			if opts.global {
				return app.globals.Run(command.Context(), opts.policy())
			}
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return app.checks.Run(command.Context(), application.CheckOptions{
				Dir:    dir,
				Policy: opts.policy(),
			})
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(&opts.update, "update", "u", false,
		"Write safe updates back to the dependency files")
	cmd.Flags().BoolVarP(&opts.minor, "minor", "m", false,
		"Treat minor version bumps as safe to write")
	cmd.Flags().BoolVarP(&opts.force, "force-latest", "f", false,
		"Write the absolute latest version, majors included")
	cmd.Flags().BoolVarP(&opts.prerelease, "pre-release", "p", false,
		"Include pre-release versions as candidates")
	cmd.Flags().BoolVarP(&opts.global, "global", "g", false,
		"Check globally installed packages (uv, pipx, pip --user)")
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

	app := injectAppContext()
	if err := buildRootCommand(app).Execute(); err != nil {
		logger.Fatalf("Error executing 'pcu': %s", err)
	}
}
