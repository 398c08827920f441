package npm

import (
	"path/filepath"
	"strings"

	"github.com/forgeutils/check-updates/domain"
)

const packageJSONKind = "npm"

// dependencySections are the package.json blocks that declare registry
// dependencies, mapped to their dependency group.
var dependencySections = map[string]string{
	"dependencies":         "",
	"devDependencies":      "dev",
	"peerDependencies":     "peer",
	"optionalDependencies": "optional",
}

// PackageJSONParser parses the dependency sections of package.json. It scans
// the raw text so every declaration keeps the byte span of its version range;
// a rewrite replaces those bytes and nothing else, which keeps the diff to
// the changed ranges.
type PackageJSONParser struct{}

// NewPackageJSONParser creates a package.json parser.
func NewPackageJSONParser() domain.Parser {
	return &PackageJSONParser{}
}

func (p *PackageJSONParser) Kind() string { return packageJSONKind }

func (p *PackageJSONParser) CanParse(path string) bool {
	return filepath.Base(path) == "package.json"
}

func (p *PackageJSONParser) Parse(path string, content []byte) (*domain.ParseResult, error) {
	result := &domain.ParseResult{}

	section := ""
	depth := 0
	offset := 0
	lineNo := 0
	for _, line := range strings.SplitAfter(string(content), "\n") {
		lineNo++
		lineStart := offset
		offset += len(line)

		entry := strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimSpace(entry)

		if section == "" {
			if name, ok := opensSection(trimmed); ok {
				section = name
				depth = 1
			}
			continue
		}

		// Dependency sections are flat string maps; a closing brace ends
		// the section.
		if strings.HasPrefix(trimmed, "}") {
			depth--
			if depth == 0 {
				section = ""
			}
			continue
		}

		p.scanEntry(result, path, section, entry, trimmed, lineStart, lineNo)
	}

	return result, nil
}

func opensSection(trimmed string) (string, bool) {
	for name := range dependencySections {
		if strings.HasPrefix(trimmed, `"`+name+`"`) && strings.Contains(trimmed, "{") &&
			!strings.Contains(trimmed, "}") {
			return name, true
		}
	}
	return "", false
}

func (p *PackageJSONParser) scanEntry(
	result *domain.ParseResult,
	path, section, entry, trimmed string,
	lineStart, lineNo int,
) {
	qs := quotedStrings(entry)
	if len(qs) < 2 {
		return
	}
	name, value := qs[0], qs[1]
	if name.text == "" {
		return
	}
	if !isRegistryRange(value.text) {
		return
	}

	spec, err := domain.ParseSpec(value.text, domain.DialectNPM)
	if err != nil {
		result.Warnings = append(result.Warnings, domain.ParseWarning{
			File:    path,
			Line:    lineNo,
			Entry:   trimmed,
			Message: "invalid version range",
		})
		return
	}

	result.Declarations = append(result.Declarations, domain.Declaration{
		Name:    name.text,
		Group:   dependencySections[section],
		Spec:    spec,
		RawSpec: value.text,
		File:    path,
		Line:    lineNo,
		Span:    domain.Span{Start: lineStart + value.start, End: lineStart + value.start + len(value.text)},
		Dialect: domain.DialectNPM,
	})
}

// isRegistryRange filters out ranges that do not resolve against the
// registry: git and tarball URLs, local paths, workspace and alias
// references.
func isRegistryRange(value string) bool {
	if value == "" {
		return true
	}
	if strings.Contains(value, "://") {
		return false
	}
	for _, prefix := range []string{"git", "file:", "link:", "workspace:", "npm:", "./", "../", "~/"} {
		if strings.HasPrefix(value, prefix) {
			return false
		}
	}
	// Scoped tarball shorthand ("user/repo") is a GitHub reference.
	if !strings.HasPrefix(value, "@") && strings.Contains(value, "/") {
		return false
	}
	return true
}

type quoted struct {
	text  string
	start int
}

// quotedStrings returns every double-quoted string in the line with its byte
// position. Package names and version ranges never contain escaped quotes.
func quotedStrings(line string) []quoted {
	var out []quoted
	for i := 0; i < len(line); i++ {
		if line[i] != '"' {
			continue
		}
		end := strings.IndexByte(line[i+1:], '"')
		if end < 0 {
			break
		}
		out = append(out, quoted{text: line[i+1 : i+1+end], start: i + 1})
		i += end + 1
	}
	return out
}
