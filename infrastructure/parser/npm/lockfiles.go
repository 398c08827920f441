package npm

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forgeutils/check-updates/domain"
)

// PackageLockReader reads installed versions out of package-lock.json. It
// handles the v2/v3 "packages" map and falls back to the v1 "dependencies"
// tree.
type PackageLockReader struct{}

// NewPackageLockReader creates a package-lock.json reader.
func NewPackageLockReader() domain.LockReader {
	return &PackageLockReader{}
}

func (r *PackageLockReader) CanRead(path string) bool {
	return filepath.Base(path) == "package-lock.json"
}

func (r *PackageLockReader) Read(path string, content []byte) (map[string]domain.Version, error) {
	var lock struct {
		Packages map[string]struct {
			Version string `json:"version"`
		} `json:"packages"`
		Dependencies map[string]struct {
			Version string `json:"version"`
		} `json:"dependencies"`
	}
	if err := json.Unmarshal(content, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	installed := make(map[string]domain.Version)

	if len(lock.Packages) > 0 {
		for key, pkg := range lock.Packages {
			name, ok := packageNameFromLockKey(key)
			if !ok || pkg.Version == "" {
				continue
			}
			if v, err := domain.ParseVersion(pkg.Version); err == nil {
				installed[name] = v
			}
		}
		return installed, nil
	}

	for name, dep := range lock.Dependencies {
		if dep.Version == "" {
			continue
		}
		if v, err := domain.ParseVersion(dep.Version); err == nil {
			installed[name] = v
		}
	}
	return installed, nil
}

// packageNameFromLockKey turns a v2/v3 key like "node_modules/@scope/name"
// into the package name. Only top-level entries count; nested node_modules
// trees hold transitive copies.
func packageNameFromLockKey(key string) (string, bool) {
	const prefix = "node_modules/"
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	name := key[len(prefix):]
	if strings.Contains(name, "node_modules/") {
		return "", false
	}
	return name, name != ""
}

// YarnLockReader reads installed versions out of yarn.lock (classic format).
type YarnLockReader struct{}

// NewYarnLockReader creates a yarn.lock reader.
func NewYarnLockReader() domain.LockReader {
	return &YarnLockReader{}
}

func (r *YarnLockReader) CanRead(path string) bool {
	return filepath.Base(path) == "yarn.lock"
}

// Read parses the classic yarn.lock shape:
//
//	"name@^1.0.0", "name@^1.2.0":
//	  version "1.2.3"
func (r *YarnLockReader) Read(path string, content []byte) (map[string]domain.Version, error) {
	installed := make(map[string]domain.Version)

	var currentNames []string
	for _, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimRight(raw, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Header lines are unindented and end with a colon.
		if !strings.HasPrefix(line, " ") && strings.HasSuffix(line, ":") {
			currentNames = yarnHeaderNames(strings.TrimSuffix(line, ":"))
			continue
		}

		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "version "); ok && len(currentNames) > 0 {
			versionText := strings.Trim(rest, `"`)
			if v, err := domain.ParseVersion(versionText); err == nil {
				for _, name := range currentNames {
					installed[name] = v
				}
			}
			currentNames = nil
		}
	}

	return installed, nil
}

// yarnHeaderNames extracts the package names from a yarn.lock entry header.
// Each comma-separated selector is "name@range"; scoped names contain a
// second "@".
func yarnHeaderNames(header string) []string {
	var names []string
	for _, selector := range strings.Split(header, ",") {
		s := strings.TrimSpace(selector)
		s = strings.Trim(s, `"`)
		if s == "" {
			continue
		}
		at := strings.LastIndexByte(s, '@')
		if at <= 0 {
			continue
		}
		names = append(names, s[:at])
	}
	return names
}
