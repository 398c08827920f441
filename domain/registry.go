package domain

import (
	"context"
	"errors"
)

// ErrPackageNotFound marks a package the registry does not know about.
// It is surfaced as a per-row annotation, never as a fatal error.
var ErrPackageNotFound = errors.New("package not found")

// Registry abstracts one package registry (PyPI, crates.io, npm). Transport,
// retries on 5xx responses, and authentication are the implementation's
// responsibility; the core only consumes ordered version lists.
type Registry interface {
	// Name returns the registry identifier (e.g. "pypi", "crates.io").
	Name() string

	// Lookup fetches every known version of a package, sorted ascending.
	// A missing package returns an error wrapping ErrPackageNotFound.
	Lookup(ctx context.Context, name string) (*PackageInfo, error)
}
