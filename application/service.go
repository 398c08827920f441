package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/forgeutils/check-updates/domain"
	detectorPkg "github.com/forgeutils/check-updates/infrastructure/detector"
	parserPkg "github.com/forgeutils/check-updates/infrastructure/parser"
	"github.com/forgeutils/check-updates/infrastructure/patcher"
	"github.com/forgeutils/check-updates/infrastructure/render"
)

// ErrNoDependencyFiles is returned when the directory holds nothing any
// registered parser claims.
var ErrNoDependencyFiles = errors.New("no dependency files found")

// CheckService orchestrates the full check flow:
// detect files -> parse -> resolve against the registry -> plan -> report,
// and rewrites the files in place when the policy asks for it.
type CheckService struct {
	parsers  *parserPkg.Registry
	detector *detectorPkg.Detector
	resolver *Resolver
	planner  *Planner
	renderer *render.Renderer
}

// NewCheckService creates a service over one ecosystem's parsers and index.
func NewCheckService(
	parsers *parserPkg.Registry,
	detector *detectorPkg.Detector,
	resolver *Resolver,
	planner *Planner,
	renderer *render.Renderer,
) *CheckService {
	return &CheckService{
		parsers:  parsers,
		detector: detector,
		resolver: resolver,
		planner:  planner,
		renderer: renderer,
	}
}

// CheckOptions holds runtime options for a single run.
type CheckOptions struct {
	// Dir is the project directory to check.
	Dir string
	// Policy is the user's update policy for this run.
	Policy domain.UpdatePolicy
}

// parsedFile pairs a manifest with the exact bytes its spans refer to.
type parsedFile struct {
	path    string
	content []byte
	result  *domain.ParseResult
}

// Run executes one check over a project directory.
func (s *CheckService) Run(ctx context.Context, opts CheckOptions) error {
	detection, err := s.detector.Detect(opts.Dir)
	if err != nil {
		return err
	}
	if len(detection.Manifests) == 0 {
		return fmt.Errorf("%w in %s", ErrNoDependencyFiles, opts.Dir)
	}

	files, declarations, warnings := s.parseManifests(detection.Manifests)
	installed := s.readLocks(detection.Locks)

	logger.Infof("Checking %d dependencies across %d file(s)...",
		len(declarations), len(files))

	resolutions := s.resolver.Resolve(ctx, declarations)

	var checks []Check
	for _, decl := range declarations {
		installedVersion, hasInstalled := installed[decl.Name]
		checks = append(checks, s.planner.Plan(
			decl, resolutions[decl.Name], installedVersion, hasInstalled, opts.Policy))
	}

	s.renderer.Warnings(warnings)
	s.renderer.Table(reportRows(checks))

	if !opts.Policy.Apply {
		return nil
	}
	return s.apply(files, checks, detection.Locks)
}

func (s *CheckService) parseManifests(
	manifests []domain.DetectedFile,
) ([]parsedFile, []domain.Declaration, []domain.ParseWarning) {
	var files []parsedFile
	var declarations []domain.Declaration
	var warnings []domain.ParseWarning

	for _, manifest := range manifests {
		content, err := os.ReadFile(manifest.Path)
		if err != nil {
			logger.Errorf("Failed to read %s: %v", manifest.Path, err)
			continue
		}
		parser := s.parsers.Get(manifest.Kind)
		if parser == nil {
			continue
		}
		result, err := parser.Parse(manifest.Path, content)
		if err != nil {
			logger.Errorf("Failed to parse %s: %v", manifest.Path, err)
			continue
		}
		logger.Debugf("[%s] %s: %d dependencies",
			manifest.Kind, manifest.Path, len(result.Declarations))
		files = append(files, parsedFile{path: manifest.Path, content: content, result: result})
		declarations = append(declarations, result.Declarations...)
		warnings = append(warnings, result.Warnings...)
	}
	return files, declarations, warnings
}

func (s *CheckService) readLocks(locks []string) map[string]domain.Version {
	installed := make(map[string]domain.Version)
	for _, path := range locks {
		reader := s.parsers.LockFor(path)
		if reader == nil {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Errorf("Failed to read %s: %v", path, err)
			continue
		}
		versions, err := reader.Read(path, content)
		if err != nil {
			logger.Errorf("Failed to parse %s: %v", path, err)
			continue
		}
		logger.Debugf("[lock] %s: %d packages", path, len(versions))
		for name, v := range versions {
			installed[name] = v
		}
	}
	return installed
}

// apply rewrites every file that has gated updates and prints the follow-up
// summary: changed files, packages touched in more than one file, and the
// lock commands to run afterwards.
func (s *CheckService) apply(files []parsedFile, checks []Check, locks []string) error {
	updatesByFile := make(map[string][]patcher.Update)
	filesByPackage := make(map[string]map[string]struct{})

	for _, check := range checks {
		if check.NewSpecText == "" {
			continue
		}
		decl := check.Declaration
		updatesByFile[decl.File] = append(updatesByFile[decl.File], patcher.Update{
			Span: decl.Span,
			Text: check.NewSpecText,
		})
		if filesByPackage[decl.Name] == nil {
			filesByPackage[decl.Name] = make(map[string]struct{})
		}
		filesByPackage[decl.Name][decl.File] = struct{}{}
	}

	var changed, failed []string
	for _, file := range files {
		updates := updatesByFile[file.path]
		if len(updates) == 0 {
			continue
		}
		didChange, err := patcher.Patch(file.path, file.content, updates)
		if err != nil {
			// One unwritable file must not block the rest.
			logger.Errorf("Failed to update %s: %v", file.path, err)
			failed = append(failed, file.path)
			continue
		}
		if didChange {
			changed = append(changed, file.path)
		}
	}

	var multiFile []string
	for name, set := range filesByPackage {
		if len(set) > 1 {
			multiFile = append(multiFile, name)
		}
	}
	sort.Strings(multiFile)

	var lockCommands []string
	if len(changed) > 0 {
		seen := make(map[string]struct{})
		for _, lock := range locks {
			cmd := detectorPkg.LockCommand(lock)
			if cmd == "" {
				continue
			}
			if _, dup := seen[cmd]; dup {
				continue
			}
			seen[cmd] = struct{}{}
			lockCommands = append(lockCommands, cmd)
		}
	}

	s.renderer.Summary(changed, failed, lockCommands, multiFile)
	return nil
}

// reportRows flattens the checks into renderer rows, keeping only the ones
// worth showing: updates, and failed lookups.
func reportRows(checks []Check) []render.Row {
	var rows []render.Row
	for _, check := range checks {
		if check.Err == nil && !check.HasUpdate {
			continue
		}
		rows = append(rows, toRow(check))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return dedupeRows(rows)
}

func toRow(check Check) render.Row {
	row := render.Row{
		Name:    check.Declaration.Name,
		Defined: check.Declaration.RawSpec,
		Err:     check.Err,
	}
	if check.Declaration.Group != "" {
		row.Name = fmt.Sprintf("%s (%s)", check.Declaration.Name, check.Declaration.Group)
	}
	if row.Defined == "" {
		row.Defined = check.Declaration.Spec.String()
	}
	if check.HasInstalled {
		row.Installed = check.Installed.String()
	}
	if check.HasInRange {
		row.InRange = check.InRange.String()
	}
	if check.HasLatest {
		row.Latest = check.Latest.String()
	}
	if check.HasUpdate {
		row.UpdateTo = check.Target.String()
		row.Severity = check.Severity
		row.NewerAvailable = check.NewerAvailable()
	}
	return row
}

// dedupeRows folds identical package rows from different groups of the same
// file into one line for display.
func dedupeRows(rows []render.Row) []render.Row {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	for _, row := range rows {
		key := row.Name + "\x00" + row.Defined + "\x00" + row.UpdateTo
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}
