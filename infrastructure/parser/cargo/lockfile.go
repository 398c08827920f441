package cargo

import (
	"fmt"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/forgeutils/check-updates/domain"
)

// LockReader reads resolved crate versions out of Cargo.lock.
type LockReader struct{}

// NewLockReader creates a Cargo.lock reader.
func NewLockReader() domain.LockReader {
	return &LockReader{}
}

func (r *LockReader) CanRead(path string) bool {
	return filepath.Base(path) == "Cargo.lock"
}

func (r *LockReader) Read(path string, content []byte) (map[string]domain.Version, error) {
	var lock struct {
		Package []struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
			Source  string `toml:"source"`
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
		installed[pkg.Name] = v
	}
	return installed, nil
}
