package global

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/forgeutils/check-updates/domain"
)

// Source identifies how a globally installed package was installed.
type Source string

const (
	SourceUv      Source = "uv"
	SourcePipx    Source = "pipx"
	SourcePipUser Source = "pip --user"
)

// Package is one globally installed Python package.
type Package struct {
	Name      string
	Installed domain.Version
	Source    Source
	// PythonVersion is the interpreter series owning the install, only set
	// for pip --user packages ("3.11").
	PythonVersion string
}

// Runner executes an external command and returns its stdout. It exists so
// tests can script tool output without the tools installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// Discovery finds globally installed Python packages across uv tools, pipx
// venvs and pip --user site-packages.
type Discovery struct {
	runner Runner
	home   string
}

// NewDiscovery creates a discovery. An empty home falls back to the user's
// home directory.
func NewDiscovery(runner Runner, home string) *Discovery {
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return &Discovery{runner: runner, home: home}
}

// Discover returns every global package found. A tool that is not installed
// contributes nothing; discovery never fails outright.
func (d *Discovery) Discover(ctx context.Context) []Package {
	var packages []Package
	packages = append(packages, d.uvTools(ctx)...)
	packages = append(packages, d.pipxPackages(ctx)...)
	packages = append(packages, d.pipUserPackages()...)
	return packages
}

// uvTools parses `uv tool list` output: "name vX.Y.Z" lines with "-"
// prefixed entry-point lines in between.
func (d *Discovery) uvTools(ctx context.Context) []Package {
	out, err := d.runner.Run(ctx, "uv", "tool", "list")
	if err != nil {
		logger.Debugf("[global] uv not available: %v", err)
		return nil
	}

	var packages []Package
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := domain.ParseVersion(strings.TrimPrefix(fields[1], "v"))
		if err != nil {
			continue
		}
		packages = append(packages, Package{
			Name:      domain.NormalizePythonName(fields[0]),
			Installed: v,
			Source:    SourceUv,
		})
	}
	return packages
}

func (d *Discovery) pipxPackages(ctx context.Context) []Package {
	out, err := d.runner.Run(ctx, "pipx", "list", "--json")
	if err != nil {
		logger.Debugf("[global] pipx not available: %v", err)
		return d.pipxFromVenvs()
	}
	packages, err := parsePipxJSON(out)
	if err != nil {
		logger.Debugf("[global] unreadable pipx output: %v", err)
		return d.pipxFromVenvs()
	}
	return packages
}

func parsePipxJSON(out []byte) ([]Package, error) {
	var payload struct {
		Venvs map[string]struct {
			Metadata struct {
				MainPackage struct {
					PackageVersion string `json:"package_version"`
				} `json:"main_package"`
			} `json:"metadata"`
		} `json:"venvs"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse pipx list output: %w", err)
	}

	var packages []Package
	for name, venv := range payload.Venvs {
		v, err := domain.ParseVersion(venv.Metadata.MainPackage.PackageVersion)
		if err != nil {
			continue
		}
		packages = append(packages, Package{
			Name:      domain.NormalizePythonName(name),
			Installed: v,
			Source:    SourcePipx,
		})
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })
	return packages, nil
}

// pipxFromVenvs scans ~/.local/pipx/venvs when `pipx list` is unavailable,
// reading each package version off its dist-info directory.
func (d *Discovery) pipxFromVenvs() []Package {
	venvsDir := filepath.Join(d.home, ".local", "pipx", "venvs")
	entries, err := os.ReadDir(venvsDir)
	if err != nil {
		return nil
	}

	var packages []Package
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := domain.NormalizePythonName(entry.Name())
		pattern := filepath.Join(venvsDir, entry.Name(), "lib", "python*", "site-packages", "*.dist-info")
		matches, _ := filepath.Glob(pattern)
		for _, match := range matches {
			infoName, v, ok := parseDistInfo(filepath.Base(match))
			if ok && infoName == name {
				packages = append(packages, Package{Name: name, Installed: v, Source: SourcePipx})
				break
			}
		}
	}
	return packages
}

// pipUserPackages scans ~/.local/lib/python3.*/site-packages. Newer Python
// series win when the same package is installed under several.
func (d *Discovery) pipUserPackages() []Package {
	libDir := filepath.Join(d.home, ".local", "lib")
	entries, err := os.ReadDir(libDir)
	if err != nil {
		return nil
	}

	var series []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "python") {
			series = append(series, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(series)))

	seen := make(map[string]struct{})
	var packages []Package
	for _, dir := range series {
		pythonVersion := strings.TrimPrefix(dir, "python")
		sitePackages := filepath.Join(libDir, dir, "site-packages")
		infos, err := os.ReadDir(sitePackages)
		if err != nil {
			continue
		}
		for _, info := range infos {
			if !strings.HasSuffix(info.Name(), ".dist-info") {
				continue
			}
			name, v, ok := parseDistInfo(info.Name())
			if !ok {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			packages = append(packages, Package{
				Name:          name,
				Installed:     v,
				Source:        SourcePipUser,
				PythonVersion: pythonVersion,
			})
		}
	}
	return packages
}

// parseDistInfo splits "requests-2.31.0.dist-info" into name and version.
func parseDistInfo(dirName string) (string, domain.Version, bool) {
	base := strings.TrimSuffix(dirName, ".dist-info")
	idx := strings.LastIndexByte(base, '-')
	if idx <= 0 {
		return "", domain.Version{}, false
	}
	v, err := domain.ParseVersion(base[idx+1:])
	if err != nil {
		return "", domain.Version{}, false
	}
	return domain.NormalizePythonName(base[:idx]), v, true
}

// PythonAvailable probes whether an interpreter for the series still exists.
func (d *Discovery) PythonAvailable(ctx context.Context, series string) bool {
	_, err := d.runner.Run(ctx, "python"+series, "--version")
	return err == nil
}

// UpgradeCommand is one line of the suggested upgrade plan: either a shell
// command or an advisory comment.
type UpgradeCommand struct {
	Text    string
	Comment bool
}

// UpgradeCommands builds the per-source upgrade plan for the packages that
// have updates. A pip --user series whose interpreter is gone produces an
// advisory instead of a command.
func (d *Discovery) UpgradeCommands(ctx context.Context, updated []Package) []UpgradeCommand {
	var commands []UpgradeCommand

	hasSource := func(s Source) bool {
		for _, p := range updated {
			if p.Source == s {
				return true
			}
		}
		return false
	}

	if hasSource(SourceUv) {
		commands = append(commands, UpgradeCommand{Text: "uv tool upgrade --all"})
	}
	if hasSource(SourcePipx) {
		commands = append(commands, UpgradeCommand{Text: "pipx upgrade-all"})
	}

	bySeries := make(map[string][]string)
	for _, p := range updated {
		if p.Source == SourcePipUser {
			bySeries[p.PythonVersion] = append(bySeries[p.PythonVersion], p.Name)
		}
	}
	series := make([]string, 0, len(bySeries))
	for s := range bySeries {
		series = append(series, s)
	}
	sort.Strings(series)

	for _, s := range series {
		if d.PythonAvailable(ctx, s) {
			commands = append(commands, UpgradeCommand{
				Text: fmt.Sprintf("python%s -m pip install --user --upgrade %s",
					s, strings.Join(bySeries[s], " ")),
			})
		} else {
			path := filepath.Join(d.home, ".local", "lib", "python"+s)
			commands = append(commands, UpgradeCommand{
				Text: fmt.Sprintf(
					"Python %s is no longer installed. Consider removing %s if nothing uses it.",
					s, path),
				Comment: true,
			})
		}
	}
	return commands
}
