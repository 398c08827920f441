package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the constraint grammar a declaration was parsed with.
type Dialect string

const (
	DialectPEP440 Dialect = "pep440"
	DialectCargo  Dialect = "cargo"
	DialectNPM    Dialect = "npm"
)

// Version is a parsed package version. Missing trailing segments are zero,
// so "2.0" compares equal to "2.0.0". Build metadata is kept for display but
// ignored by comparison and equality.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
	// Pre is the pre-release tag ("rc1", "b2", "alpha.1"), empty for releases.
	Pre string
	// Build is the local version segment (Python) or build metadata (Cargo/npm).
	Build string
	// Original is the string exactly as it appeared in the source.
	Original string
}

// Delta classifies the magnitude of a version change.
type Delta int

const (
	DeltaNone Delta = iota
	DeltaPatch
	DeltaMinor
	DeltaMajor
	DeltaPrerelease
	DeltaDowngrade
)

func (d Delta) String() string {
	switch d {
	case DeltaPatch:
		return "patch"
	case DeltaMinor:
		return "minor"
	case DeltaMajor:
		return "major"
	case DeltaPrerelease:
		return "prerelease"
	case DeltaDowngrade:
		return "downgrade"
	default:
		return "none"
	}
}

// preReleaseMarkers are the tags that start a pre-release segment. Order is
// irrelevant; the earliest occurrence in the string wins.
var preReleaseMarkers = []string{"dev", "post", "alpha", "beta", "rc", "a", "b", "c", "-"}

// NewVersion builds a release version from its numeric segments.
func NewVersion(major, minor, patch uint64) Version {
	return Version{
		Major:    major,
		Minor:    minor,
		Patch:    patch,
		Original: fmt.Sprintf("%d.%d.%d", major, minor, patch),
	}
}

// ParseVersion parses a version string shared across all three dialects.
// It accepts PEP 440 forms ("2.0.0rc1", "1.2.3.post1"), semver forms
// ("1.2.3-beta.1+build5") and truncated forms ("2.0", "1").
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Version{}, fmt.Errorf("invalid version string: %q", s)
	}

	rest := strings.TrimPrefix(trimmed, "v")

	// Split off local version / build metadata first.
	build := ""
	if idx := strings.IndexByte(rest, '+'); idx >= 0 {
		build = rest[idx+1:]
		rest = rest[:idx]
	}

	base, pre := splitPrerelease(rest)

	parts := strings.Split(base, ".")
	major, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version string: %q", s)
	}

	var minor, patch uint64
	if len(parts) > 1 {
		minor, _ = strconv.ParseUint(parts[1], 10, 64)
	}
	if len(parts) > 2 {
		patch, _ = strconv.ParseUint(parts[2], 10, 64)
	}

	return Version{
		Major:    major,
		Minor:    minor,
		Patch:    patch,
		Pre:      pre,
		Build:    build,
		Original: trimmed,
	}, nil
}

// MustParseVersion is ParseVersion for compile-time-known inputs; it panics
// on malformed strings and exists for tests and fixtures.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// splitPrerelease splits a version string into its numeric base and
// pre-release tag. The tag begins at the earliest pre-release marker found
// after the first character.
func splitPrerelease(s string) (string, string) {
	lower := strings.ToLower(s)

	cut := -1
	for _, marker := range preReleaseMarkers {
		if idx := strings.Index(lower, marker); idx > 0 && (cut < 0 || idx < cut) {
			cut = idx
		}
	}
	if cut < 0 {
		return s, ""
	}

	base := strings.TrimRight(s[:cut], ".-")
	pre := strings.TrimLeft(s[cut:], ".-")
	return base, pre
}

// IsPrerelease reports whether the version carries a pre-release tag.
func (v Version) IsPrerelease() bool { return v.Pre != "" }

// SameMajor reports whether both versions share the leftmost numeric segment.
func (v Version) SameMajor(other Version) bool { return v.Major == other.Major }

// SameMinor reports whether both versions share major and minor segments.
func (v Version) SameMinor(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor
}

// String returns the version exactly as it appeared in the source.
func (v Version) String() string {
	if v.Original != "" {
		return v.Original
	}
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	return s
}

// Compare returns -1, 0 or 1 ordering a against b. Pre-release versions sort
// below the release with the same numeric segments; two pre-release tags are
// ordered lexicographically.
func Compare(a, b Version) int {
	if c := compareUint(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareUint(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareUint(a.Patch, b.Patch); c != 0 {
		return c
	}

	switch {
	case a.Pre == "" && b.Pre != "":
		return 1
	case a.Pre != "" && b.Pre == "":
		return -1
	default:
		return strings.Compare(a.Pre, b.Pre)
	}
}

// Equal reports structural equality after normalization (build metadata is
// not significant).
func Equal(a, b Version) bool { return Compare(a, b) == 0 }

// Less reports whether a orders strictly before b.
func Less(a, b Version) bool { return Compare(a, b) < 0 }

// ClassifyDelta classifies the change from one version to another by the
// leftmost numeric segment that differs. A change that only moves the
// pre-release tag upward is DeltaPrerelease.
func ClassifyDelta(from, to Version) Delta {
	c := Compare(from, to)
	switch {
	case c == 0:
		return DeltaNone
	case c > 0:
		return DeltaDowngrade
	}

	switch {
	case to.Major != from.Major:
		return DeltaMajor
	case to.Minor != from.Minor:
		return DeltaMinor
	case to.Patch != from.Patch:
		return DeltaPatch
	default:
		return DeltaPrerelease
	}
}

// MaxVersion returns the highest version in the slice, or false when the
// slice is empty.
func MaxVersion(versions []Version) (Version, bool) {
	if len(versions) == 0 {
		return Version{}, false
	}
	max := versions[0]
	for _, v := range versions[1:] {
		if Less(max, v) {
			max = v
		}
	}
	return max, true
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
