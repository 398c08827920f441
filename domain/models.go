package domain

import "strings"

// Span is a half-open byte range [Start, End) into the original file buffer.
// Spans are only valid against the exact bytes the parser read; the patcher
// must splice against that same buffer, highest offset first.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// Declaration is one dependency entry found in a file. Declarations are
// created once per parse pass and never mutated afterwards.
type Declaration struct {
	// Name is the package name after ecosystem normalization.
	Name string
	// Group tags the section the entry came from ("dependencies", "dev",
	// "optional:docs", a poetry group name). Informational only.
	Group string
	// Spec is the parsed constraint.
	Spec Spec
	// RawSpec is the constraint text exactly as written.
	RawSpec string
	// File is the path of the file the entry was parsed from.
	File string
	// Line is the 1-based line number of the entry.
	Line int
	// Span locates the replaceable constraint text in the file buffer.
	// A zero span means the entry has no rewritable text (bare name, or a
	// report-only source such as global mode).
	Span Span
	// Dialect identifies the grammar that produced this declaration.
	Dialect Dialect
}

// HasSpan reports whether the declaration carries a rewritable byte range.
func (d Declaration) HasSpan() bool { return d.Span.End > d.Span.Start }

// ParseWarning records one malformed entry that was skipped. A warning never
// fails the file; the remaining entries still parse.
type ParseWarning struct {
	File    string
	Line    int
	Entry   string
	Message string
}

// ParseResult is the outcome of parsing one dependency file.
type ParseResult struct {
	Declarations []Declaration
	Warnings     []ParseWarning
}

// PackageInfo is the raw registry view of one package: every known version
// in ascending order plus the registry's own latest hint when it has one.
type PackageInfo struct {
	Name     string
	Versions []Version
	// Latest is the registry-advertised latest version; zero when the
	// registry has no such hint and the highest known version applies.
	Latest Version
	// HasLatest reports whether Latest was advertised by the registry.
	HasLatest bool
}

// RegistryInfo is the resolved view of one package under a policy: the
// highest version satisfying the declared constraint, the absolute highest,
// and the lookup error if the package could not be resolved.
type RegistryInfo struct {
	// InRange is the highest version satisfying the constraint.
	InRange Version
	// HasInRange reports whether any known version satisfied the constraint.
	HasInRange bool
	// Latest is the absolute highest version after pre-release filtering.
	Latest Version
	// Err carries the lookup failure for this package, nil on success. A
	// failed lookup excludes the package from planning but never aborts the
	// run.
	Err error
}

// UpdatePolicy is the user's update configuration for one run.
type UpdatePolicy struct {
	// Apply rewrites files; false means report-only.
	Apply bool
	// AllowMinor admits minor updates in addition to patches.
	AllowMinor bool
	// Force ignores the declared range and targets the absolute latest.
	Force bool
	// IncludePrerelease admits pre-release versions into latest computation.
	IncludePrerelease bool
}

// UpdateDecision is the planner's verdict for one declaration.
type UpdateDecision struct {
	Declaration Declaration
	// Target is the version the declaration should move to.
	Target Version
	// HasUpdate reports whether Target is an actual change.
	HasUpdate bool
	// Severity classifies the jump from the current version to Target.
	Severity Delta
	// NewSpecText is the replacement constraint text; empty when nothing
	// should be written (report-only policy, or no update).
	NewSpecText string
	// Err carries a per-row registry error surfaced in the report.
	Err error
}

// DetectedFile is a dependency file found by a detector, tagged with the
// parser kind that owns it.
type DetectedFile struct {
	Path string
	Kind string
}

// NormalizePythonName folds a Python package name per the ecosystem's naming
// rules: lowercase with "_" and "." collapsed to "-", so a pyproject entry
// and its lock-file counterpart always compare equal.
func NormalizePythonName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	lower = strings.ReplaceAll(lower, "_", "-")
	return strings.ReplaceAll(lower, ".", "-")
}
