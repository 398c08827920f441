package python

import (
	"fmt"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/forgeutils/check-updates/domain"
)

// LockReader reads the resolved versions out of uv.lock, poetry.lock and
// pdm.lock. All three share the TOML [[package]] shape, so one reader
// covers them.
type LockReader struct{}

// NewLockReader creates a Python lockfile reader.
func NewLockReader() domain.LockReader {
	return &LockReader{}
}

func (r *LockReader) CanRead(path string) bool {
	switch filepath.Base(path) {
	case "uv.lock", "poetry.lock", "pdm.lock":
		return true
	default:
		return false
	}
}

func (r *LockReader) Read(path string, content []byte) (map[string]domain.Version, error) {
	var lock struct {
		Package []struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(content, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	installed := make(map[string]domain.Version, len(lock.Package))
	for _, pkg := range lock.Package {
		if pkg.Name == "" || pkg.Version == "" {
			continue
		}
		v, err := domain.ParseVersion(pkg.Version)
		if err != nil {
			continue
		}
		installed[domain.NormalizePythonName(pkg.Name)] = v
	}
	return installed, nil
}
