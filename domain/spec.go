package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SpecKind enumerates the closed set of constraint forms shared by the three
// dialects. Parsing selects the variant; Satisfies and WithVersion interpret
// it under the declaration's dialect rules.
type SpecKind int

const (
	// SpecAny matches every version ("*" or no constraint at all).
	SpecAny SpecKind = iota
	// SpecPinned is an exact match ("==1.2.3", cargo "=1.2.3", bare npm "1.2.3").
	SpecPinned
	// SpecMinimum is an inclusive lower bound (">=1.2.3").
	SpecMinimum
	// SpecMaximum is an inclusive upper bound ("<=1.2.3").
	SpecMaximum
	// SpecGreaterThan is an exclusive lower bound (">1.2.3").
	SpecGreaterThan
	// SpecLessThan is an exclusive upper bound ("<1.2.3").
	SpecLessThan
	// SpecRange is a conjunctive lower+upper pair (">=1.2.3,<2.0.0").
	SpecRange
	// SpecCaret locks the leftmost non-zero segment ("^1.2.3").
	SpecCaret
	// SpecTilde locks major and minor ("~1.2.3").
	SpecTilde
	// SpecCompatible is the PEP 440 compatible release operator ("~=1.2.3").
	SpecCompatible
	// SpecWildcard matches a numeric prefix ("==1.2.*", "1.*", "1.2.x").
	SpecWildcard
	// SpecNotEqual excludes one version ("!=1.2.3").
	SpecNotEqual
	// SpecComplex is a constraint we keep as raw text and never rewrite.
	SpecComplex
)

// Spec is a version constraint in one of the dialect grammars. The zero
// value is SpecAny.
type Spec struct {
	Kind    SpecKind
	Dialect Dialect
	// Version is the base version; for SpecRange it is the lower bound.
	Version Version
	// Max is the exclusive upper bound of a SpecRange.
	Max Version
	// Prefix holds the numeric prefix of a SpecWildcard ("1.2").
	Prefix string
	// Pattern keeps the wildcard constraint exactly as written so rewrites
	// preserve the ".x" versus ".*" suffix style.
	Pattern string
	// Raw keeps the original text of a SpecComplex constraint.
	Raw string
	// Bare marks a Cargo version written without an operator; it carries
	// caret semantics but is rendered without the caret.
	Bare bool
	// SinglePin marks a pin written with one "=" (conda, npm).
	SinglePin bool
	// Gap keeps the whitespace between operator and version exactly as
	// written, so ">= 2.28.0" rewrites without collapsing the space.
	Gap string
}

// ParseSpec parses a constraint under the given dialect's grammar.
// Unrecognized but non-empty text becomes a SpecComplex that always
// satisfies, so one odd entry never blocks the rest of a file.
func ParseSpec(s string, dialect Dialect) (Spec, error) {
	text := strings.TrimSpace(s)

	if text == "" || text == "*" {
		return Spec{Kind: SpecAny, Dialect: dialect}, nil
	}

	if rest, ok := strings.CutPrefix(text, "^"); ok {
		return specWithVersion(SpecCaret, dialect, rest)
	}
	if rest, ok := strings.CutPrefix(text, "~="); ok {
		return specWithVersion(SpecCompatible, dialect, rest)
	}
	if rest, ok := strings.CutPrefix(text, "~"); ok {
		return specWithVersion(SpecTilde, dialect, rest)
	}

	if isWildcard(text, dialect) {
		return parseWildcard(text, dialect), nil
	}

	if spec, ok, err := parseRange(text, dialect); ok {
		return spec, err
	}

	if rest, ok := strings.CutPrefix(text, "=="); ok {
		return specWithVersion(SpecPinned, dialect, rest)
	}
	if rest, ok := strings.CutPrefix(text, ">="); ok {
		return specWithVersion(SpecMinimum, dialect, rest)
	}
	if rest, ok := strings.CutPrefix(text, "<="); ok {
		return specWithVersion(SpecMaximum, dialect, rest)
	}
	if rest, ok := strings.CutPrefix(text, "!="); ok {
		return specWithVersion(SpecNotEqual, dialect, rest)
	}
	if rest, ok := strings.CutPrefix(text, ">"); ok {
		return specWithVersion(SpecGreaterThan, dialect, rest)
	}
	if rest, ok := strings.CutPrefix(text, "<"); ok {
		return specWithVersion(SpecLessThan, dialect, rest)
	}
	if rest, ok := strings.CutPrefix(text, "="); ok {
		// Cargo exact pin, npm "=" pin, or conda single-= pin.
		spec, err := specWithVersion(SpecPinned, dialect, rest)
		if err == nil && dialect != DialectCargo {
			spec.SinglePin = true
		}
		return spec, err
	}

	// Bare version: caret semantics in Cargo, exact elsewhere.
	if v, err := ParseVersion(text); err == nil {
		if dialect == DialectCargo {
			return Spec{Kind: SpecCaret, Dialect: dialect, Version: v, Bare: true}, nil
		}
		return Spec{Kind: SpecPinned, Dialect: dialect, Version: v}, nil
	}

	return Spec{Kind: SpecComplex, Dialect: dialect, Raw: text}, nil
}

func specWithVersion(kind SpecKind, dialect Dialect, text string) (Spec, error) {
	trimmed := strings.TrimLeft(text, " \t")
	gap := text[:len(text)-len(trimmed)]
	v, err := ParseVersion(trimmed)
	if err != nil {
		return Spec{Kind: SpecComplex, Dialect: dialect, Raw: text},
			fmt.Errorf("invalid version specifier: %w", err)
	}
	return Spec{Kind: kind, Dialect: dialect, Version: v, Gap: gap}, nil
}

func isWildcard(text string, dialect Dialect) bool {
	if strings.Contains(text, "*") {
		return true
	}
	if dialect != DialectNPM {
		return false
	}
	lower := strings.ToLower(text)
	return strings.HasSuffix(lower, ".x") || strings.Contains(lower, ".x.")
}

func parseWildcard(text string, dialect Dialect) Spec {
	prefix := strings.TrimPrefix(text, "==")
	prefix = strings.TrimPrefix(prefix, "=")
	for _, cut := range []string{".*", "*", ".x", ".X"} {
		if idx := strings.Index(prefix, cut); idx >= 0 {
			prefix = prefix[:idx]
			break
		}
	}
	return Spec{
		Kind:    SpecWildcard,
		Dialect: dialect,
		Prefix:  strings.TrimSuffix(prefix, "."),
		Pattern: text,
	}
}

// parseRange handles ">=a,<b" (comma) and the npm ">=a <b" (space) forms.
// Anything multi-term that is not a plain lower+upper pair becomes
// SpecComplex.
func parseRange(text string, dialect Dialect) (Spec, bool, error) {
	var parts []string
	switch {
	case strings.Contains(text, ","):
		parts = strings.Split(text, ",")
	case dialect == DialectNPM && strings.Contains(text, " "):
		parts = strings.Fields(text)
	default:
		return Spec{}, false, nil
	}

	if len(parts) == 2 {
		minPart := strings.TrimSpace(parts[0])
		maxPart := strings.TrimSpace(parts[1])

		minText, hasMin := strings.CutPrefix(minPart, ">=")
		maxText, hasMax := strings.CutPrefix(maxPart, "<")
		if hasMin && hasMax {
			minV, minErr := ParseVersion(minText)
			maxV, maxErr := ParseVersion(strings.TrimPrefix(maxText, "="))
			if minErr == nil && maxErr == nil {
				return Spec{Kind: SpecRange, Dialect: dialect, Version: minV, Max: maxV}, true, nil
			}
		}
	}

	return Spec{Kind: SpecComplex, Dialect: dialect, Raw: text}, true, nil
}

// Satisfies reports whether the version matches the constraint under the
// spec's dialect rules.
func (s Spec) Satisfies(v Version) bool {
	switch s.Kind {
	case SpecAny, SpecComplex:
		// Complex constraints cannot be evaluated; treat as satisfied so the
		// row still reports against the absolute latest.
		return true
	case SpecPinned:
		return Equal(v, s.Version)
	case SpecMinimum:
		return Compare(v, s.Version) >= 0
	case SpecMaximum:
		return Compare(v, s.Version) <= 0
	case SpecGreaterThan:
		return Compare(v, s.Version) > 0
	case SpecLessThan:
		return Compare(v, s.Version) < 0
	case SpecRange:
		return Compare(v, s.Version) >= 0 && Less(v, s.Max)
	case SpecCaret:
		return s.satisfiesCaret(v)
	case SpecTilde, SpecCompatible:
		return Compare(v, s.Version) >= 0 && v.SameMinor(s.Version)
	case SpecWildcard:
		return s.satisfiesWildcard(v)
	case SpecNotEqual:
		return !Equal(v, s.Version)
	default:
		return false
	}
}

// satisfiesCaret applies the shared caret rule: the leftmost non-zero
// segment is locked. ^0.0.z therefore pins the patch and ^0.y.z locks the
// minor series.
func (s Spec) satisfiesCaret(v Version) bool {
	base := s.Version
	if Less(v, base) {
		return false
	}
	if base.Major == 0 {
		if base.Minor == 0 {
			return v.Major == 0 && v.Minor == 0 && v.Patch == base.Patch
		}
		return v.Major == 0 && v.Minor == base.Minor
	}
	return v.Major == base.Major
}

// satisfiesWildcard matches the numeric prefix segment-wise, so "1.2" admits
// 1.2.9 but not 1.20.0.
func (s Spec) satisfiesWildcard(v Version) bool {
	segments := strings.Split(s.Prefix, ".")
	values := []uint64{v.Major, v.Minor, v.Patch}
	for i, seg := range segments {
		if i >= len(values) {
			break
		}
		want, err := strconv.ParseUint(seg, 10, 64)
		if err != nil || values[i] != want {
			return false
		}
	}
	return true
}

// BaseVersion returns the constraint's anchoring version when it has one.
func (s Spec) BaseVersion() (Version, bool) {
	switch s.Kind {
	case SpecAny, SpecComplex:
		return Version{}, false
	case SpecWildcard:
		v, err := ParseVersion(s.Prefix)
		if err != nil {
			return Version{}, false
		}
		return v, true
	default:
		return s.Version, true
	}
}

// MaxMajor returns the highest major an in-range computation may reach. For
// unbounded forms it assumes the base major, per semver convention.
func (s Spec) MaxMajor() (uint64, bool) {
	switch s.Kind {
	case SpecRange:
		return s.Max.Major, true
	case SpecAny, SpecComplex:
		return 0, false
	case SpecWildcard:
		seg := strings.SplitN(s.Prefix, ".", 2)[0]
		major, err := strconv.ParseUint(seg, 10, 64)
		return major, err == nil
	default:
		return s.Version.Major, true
	}
}

// WithVersion returns the minimally-rewritten constraint admitting the new
// version: the comparator form, pin style, and wildcard suffix are kept and
// only the version numerals change. A range whose lower bound would pass the
// upper bound gets its upper bound raised to the next major.
func (s Spec) WithVersion(v Version) Spec {
	out := s
	switch s.Kind {
	case SpecAny, SpecComplex:
		return s
	case SpecRange:
		out.Version = v
		if Compare(v, s.Max) >= 0 {
			out.Max = NewVersion(v.Major+1, 0, 0)
		}
		return out
	case SpecWildcard:
		out.Prefix = fmt.Sprintf("%d.%d", v.Major, v.Minor)
		return out
	default:
		out.Version = v
		return out
	}
}

// String renders the constraint in its dialect's syntax, preserving the
// style markers recorded at parse time.
func (s Spec) String() string {
	switch s.Kind {
	case SpecAny:
		return "*"
	case SpecPinned:
		switch {
		case s.SinglePin, s.Dialect == DialectCargo:
			return "=" + s.Gap + s.Version.String()
		case s.Dialect == DialectNPM:
			return s.Version.String()
		default:
			return "==" + s.Gap + s.Version.String()
		}
	case SpecMinimum:
		return ">=" + s.Gap + s.Version.String()
	case SpecMaximum:
		return "<=" + s.Gap + s.Version.String()
	case SpecGreaterThan:
		return ">" + s.Gap + s.Version.String()
	case SpecLessThan:
		return "<" + s.Gap + s.Version.String()
	case SpecRange:
		if s.Dialect == DialectNPM {
			return ">=" + s.Version.String() + " <" + s.Max.String()
		}
		return ">=" + s.Version.String() + ",<" + s.Max.String()
	case SpecCaret:
		if s.Bare {
			return s.Version.String()
		}
		return "^" + s.Gap + s.Version.String()
	case SpecTilde:
		return "~" + s.Gap + s.Version.String()
	case SpecCompatible:
		return "~=" + s.Gap + s.Version.String()
	case SpecWildcard:
		return s.wildcardString()
	case SpecNotEqual:
		return "!=" + s.Gap + s.Version.String()
	default:
		return s.Raw
	}
}

func (s Spec) wildcardString() string {
	suffix := ".*"
	if strings.HasSuffix(strings.ToLower(s.Pattern), ".x") {
		suffix = ".x"
	}
	if strings.HasPrefix(s.Pattern, "==") {
		return "==" + s.Prefix + suffix
	}
	return s.Prefix + suffix
}
