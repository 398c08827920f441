package detector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
	logger "github.com/sirupsen/logrus"

	"github.com/forgeutils/check-updates/domain"
	parserPkg "github.com/forgeutils/check-updates/infrastructure/parser"
)

// Detection is the set of dependency files found in one directory.
type Detection struct {
	// Manifests are the files a registered parser claimed.
	Manifests []domain.DetectedFile
	// Locks are the files a registered lock reader claimed.
	Locks []string
}

// Detector finds dependency files in a directory by asking the registered
// parsers which names they claim. It does not recurse; a run checks one
// project directory the way the package managers themselves do.
type Detector struct {
	registry *parserPkg.Registry
}

// NewDetector creates a detector over the parser registry.
func NewDetector(registry *parserPkg.Registry) *Detector {
	return &Detector{registry: registry}
}

// Detect lists the directory and collects every claimed manifest and lock
// file, in stable name order.
func (d *Detector) Detect(dir string) (*Detection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	detection := &Detection{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if parser := d.registry.For(path); parser != nil {
			logger.Debugf("[detector] %s claimed by %s", entry.Name(), parser.Kind())
			detection.Manifests = append(detection.Manifests, domain.DetectedFile{
				Path: path,
				Kind: parser.Kind(),
			})
		}
		if lock := d.registry.LockFor(path); lock != nil {
			logger.Debugf("[detector] %s is a lock file", entry.Name())
			detection.Locks = append(detection.Locks, path)
		}
	}

	sort.Slice(detection.Manifests, func(i, j int) bool {
		return detection.Manifests[i].Path < detection.Manifests[j].Path
	})
	sort.Strings(detection.Locks)
	return detection, nil
}

// PythonManager names the tool managing a Python project, used to suggest
// the matching lock command after a rewrite. Lock files are the strongest
// signal; the pyproject tool tables break the tie.
func PythonManager(dir string) string {
	for _, probe := range []struct {
		file    string
		manager string
	}{
		{"uv.lock", "uv"},
		{"poetry.lock", "poetry"},
		{"pdm.lock", "pdm"},
	} {
		if _, err := os.Stat(filepath.Join(dir, probe.file)); err == nil {
			return probe.manager
		}
	}

	content, err := os.ReadFile(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		return "pip"
	}
	var probe struct {
		Tool struct {
			Poetry map[string]any `toml:"poetry"`
			Uv     map[string]any `toml:"uv"`
			Pdm    map[string]any `toml:"pdm"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(content, &probe); err != nil {
		return "pip"
	}
	switch {
	case len(probe.Tool.Poetry) > 0:
		return "poetry"
	case len(probe.Tool.Uv) > 0:
		return "uv"
	case len(probe.Tool.Pdm) > 0:
		return "pdm"
	default:
		return "pip"
	}
}

// LockCommand returns the command that refreshes a lock file after its
// manifest changed, or empty when none applies.
func LockCommand(lockPath string) string {
	switch filepath.Base(lockPath) {
	case "uv.lock":
		return "uv lock"
	case "poetry.lock":
		return "poetry lock"
	case "pdm.lock":
		return "pdm lock"
	case "Cargo.lock":
		return "cargo update --workspace"
	case "package-lock.json":
		return "npm install"
	case "yarn.lock":
		return "yarn install"
	default:
		return ""
	}
}
