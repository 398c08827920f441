package application

import (
	"context"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/forgeutils/check-updates/domain"
	globalPkg "github.com/forgeutils/check-updates/infrastructure/global"
	"github.com/forgeutils/check-updates/infrastructure/render"
)

// GlobalService checks globally installed Python packages instead of a
// project directory. It reports only; upgrades go through each tool's own
// command, which the report suggests.
type GlobalService struct {
	discovery *globalPkg.Discovery
	runtime   *globalPkg.RuntimeChecker
	resolver  *Resolver
	planner   *Planner
	renderer  *render.Renderer
}

// NewGlobalService creates the global-mode service.
func NewGlobalService(
	discovery *globalPkg.Discovery,
	runtime *globalPkg.RuntimeChecker,
	resolver *Resolver,
	planner *Planner,
	renderer *render.Renderer,
) *GlobalService {
	return &GlobalService{
		discovery: discovery,
		runtime:   runtime,
		resolver:  resolver,
		planner:   planner,
		renderer:  renderer,
	}
}

// Run discovers global packages, checks them against the index and prints
// the report with per-source upgrade commands.
func (s *GlobalService) Run(ctx context.Context, policy domain.UpdatePolicy) error {
	packages := s.discovery.Discover(ctx)
	if len(packages) == 0 {
		// Runtime checks below still apply without any global packages.
		logger.Infof("No globally installed packages found")
	} else {
		logger.Infof("Checking %d globally installed package(s)...", len(packages))
	}

	declarations := make([]domain.Declaration, 0, len(packages))
	byName := make(map[string]globalPkg.Package, len(packages))
	for _, pkg := range packages {
		declarations = append(declarations, domain.Declaration{
			Name:    pkg.Name,
			Group:   string(pkg.Source),
			Dialect: domain.DialectPEP440,
		})
		byName[pkg.Name] = pkg
	}

	resolutions := s.resolver.Resolve(ctx, declarations)

	var rows []render.Row
	var updated []globalPkg.Package
	for _, decl := range declarations {
		pkg := byName[decl.Name]
		check := s.planner.Plan(decl, resolutions[decl.Name], pkg.Installed, true, policy)
		if check.Err == nil && !check.HasUpdate {
			continue
		}
		rows = append(rows, toRow(check))
		if check.HasUpdate {
			updated = append(updated, pkg)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	plan := s.discovery.UpgradeCommands(ctx, updated)
	runtimeChecks := s.runtime.Check(ctx)
	for _, check := range runtimeChecks {
		if !check.HasUpdate {
			continue
		}
		rows = append(rows, render.Row{
			Name:      "python (uv)",
			Defined:   check.Series,
			Installed: check.Installed.String(),
			Latest:    check.Latest.String(),
			UpdateTo:  check.Latest.String(),
			Severity:  domain.ClassifyDelta(check.Installed, check.Latest),
		})
	}
	plan = append(plan, globalPkg.RuntimeUpgradeCommands(runtimeChecks)...)

	var commands, comments []string
	for _, cmd := range plan {
		if cmd.Comment {
			comments = append(comments, cmd.Text)
		} else {
			commands = append(commands, cmd.Text)
		}
	}
	s.renderer.UpgradePlan(rows, commands, comments)
	return nil
}
