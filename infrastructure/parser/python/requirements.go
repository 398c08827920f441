package python

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forgeutils/check-updates/domain"
)

const requirementsKind = "requirements"

// RequirementsParser parses pip requirements files. One malformed line never
// fails the file; it becomes a ParseWarning and parsing continues.
type RequirementsParser struct{}

// NewRequirementsParser creates a requirements.txt parser.
func NewRequirementsParser() domain.Parser {
	return &RequirementsParser{}
}

func (p *RequirementsParser) Kind() string { return requirementsKind }

// CanParse matches requirements*.txt and the conventional requirements-dev
// style variants.
func (p *RequirementsParser) CanParse(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, "requirements") && strings.HasSuffix(base, ".txt")
}

// Parse walks the file line by line, keeping the byte span of each version
// constraint so rewrites can splice the new text in place.
func (p *RequirementsParser) Parse(path string, content []byte) (*domain.ParseResult, error) {
	result := &domain.ParseResult{}
	seen := make(map[string]int)

	offset := 0
	lineNo := 0
	for _, line := range strings.SplitAfter(string(content), "\n") {
		lineNo++
		lineStart := offset
		offset += len(line)

		entry := strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		// Option lines (-r, -e, --index-url ...) and direct references are
		// not registry packages.
		if strings.HasPrefix(trimmed, "-") || strings.Contains(trimmed, "://") {
			continue
		}

		name, nameEnd := scanPackageName(entry)
		if name == "" {
			result.Warnings = append(result.Warnings, domain.ParseWarning{
				File:    path,
				Line:    lineNo,
				Entry:   trimmed,
				Message: "unrecognized requirement line",
			})
			continue
		}

		specStart, specEnd := constraintSpan(entry, nameEnd)
		specText := entry[specStart:specEnd]

		spec, err := domain.ParseSpec(specText, domain.DialectPEP440)
		if err != nil {
			result.Warnings = append(result.Warnings, domain.ParseWarning{
				File:    path,
				Line:    lineNo,
				Entry:   trimmed,
				Message: "invalid version specifier",
			})
			continue
		}

		normalized := domain.NormalizePythonName(name)
		if firstLine, dup := seen[normalized]; dup {
			result.Warnings = append(result.Warnings, domain.ParseWarning{
				File:    path,
				Line:    lineNo,
				Entry:   trimmed,
				Message: "duplicate of line " + strconv.Itoa(firstLine) + ", first declaration wins",
			})
			continue
		}
		seen[normalized] = lineNo

		result.Declarations = append(result.Declarations, domain.Declaration{
			Name:    normalized,
			Spec:    spec,
			RawSpec: specText,
			File:    path,
			Line:    lineNo,
			Span:    domain.Span{Start: lineStart + specStart, End: lineStart + specEnd},
			Dialect: domain.DialectPEP440,
		})
	}

	return result, nil
}

// scanPackageName reads the leading package name including an optional
// [extras] suffix, returning the name and the byte index just past it.
func scanPackageName(line string) (string, int) {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	start := i
	for i < len(line) && isNameByte(line[i]) {
		i++
	}
	if i == start {
		return "", 0
	}
	name := line[start:i]

	// Extras do not take part in version matching but belong to the name
	// portion of the line.
	if i < len(line) && line[i] == '[' {
		if close := strings.IndexByte(line[i:], ']'); close >= 0 {
			i += close + 1
		}
	}
	return name, i
}

// constraintSpan locates the version constraint between the package name and
// any environment marker or inline comment. The span is trimmed so a rewrite
// never eats surrounding whitespace.
func constraintSpan(line string, from int) (int, int) {
	end := len(line)
	if idx := strings.IndexByte(line[from:], ';'); idx >= 0 {
		end = from + idx
	}
	if idx := strings.Index(line[from:end], " #"); idx >= 0 {
		end = from + idx
	}

	start := from
	for start < end && (line[start] == ' ' || line[start] == '\t') {
		start++
	}
	for end > start && (line[end-1] == ' ' || line[end-1] == '\t') {
		end--
	}
	return start, end
}

func isNameByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-', b == '_', b == '.':
		return true
	default:
		return false
	}
}
