package cargo

import (
	"path/filepath"
	"strings"

	"github.com/forgeutils/check-updates/domain"
)

const manifestKind = "cargo"

// ManifestParser parses Cargo.toml dependency tables, including dev, build,
// workspace and target-specific ones. Git, path and workspace-inherited
// dependencies have no registry version and are skipped.
//
// Declarations carry the byte span of the quoted version string so a rewrite
// only replaces those bytes and leaves formatting alone.
type ManifestParser struct{}

// NewManifestParser creates a Cargo.toml parser.
func NewManifestParser() domain.Parser {
	return &ManifestParser{}
}

func (p *ManifestParser) Kind() string { return manifestKind }

func (p *ManifestParser) CanParse(path string) bool {
	return filepath.Base(path) == "Cargo.toml"
}

func (p *ManifestParser) Parse(path string, content []byte) (*domain.ParseResult, error) {
	result := &domain.ParseResult{}

	table := ""
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
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			table = strings.Trim(trimmed, "[]")
			continue
		}

		group, ok := dependencyGroup(table)
		if !ok {
			continue
		}
		p.scanDependencyLine(result, path, group, entry, trimmed, lineStart, lineNo)
	}

	return result, nil
}

func (p *ManifestParser) scanDependencyLine(
	result *domain.ParseResult,
	path, group, entry, trimmed string,
	lineStart, lineNo int,
) {
	key, rest, ok := splitKeyValue(trimmed)
	if !ok {
		return
	}

	value := strings.TrimSpace(rest)
	name := key
	searchFrom := 0
	if strings.HasPrefix(value, "{") {
		if strings.Contains(value, "git ") || strings.Contains(value, "git=") ||
			strings.Contains(value, "path ") || strings.Contains(value, "path=") ||
			strings.Contains(value, "workspace") {
			return
		}
		// Renamed crates resolve under their registry name.
		if pkg := inlineTableString(entry, "package"); pkg != "" {
			name = pkg
		}
		idx := strings.Index(entry, "version")
		if idx < 0 {
			return
		}
		searchFrom = idx
	}

	qs := quotedStrings(entry[searchFrom:])
	if len(qs) == 0 {
		return
	}
	q := qs[0]
	q.start += searchFrom

	spec, err := domain.ParseSpec(q.text, domain.DialectCargo)
	if err != nil {
		result.Warnings = append(result.Warnings, domain.ParseWarning{
			File:    path,
			Line:    lineNo,
			Entry:   trimmed,
			Message: "invalid version specifier",
		})
		return
	}

	result.Declarations = append(result.Declarations, domain.Declaration{
		Name:    name,
		Group:   group,
		Spec:    spec,
		RawSpec: q.text,
		File:    path,
		Line:    lineNo,
		Span:    domain.Span{Start: lineStart + q.start, End: lineStart + q.start + len(q.text)},
		Dialect: domain.DialectCargo,
	})
}

// dependencyGroup maps a table header to a dependency group. Target tables
// like [target.'cfg(windows)'.dependencies] fold into the plain groups.
func dependencyGroup(table string) (string, bool) {
	t := table
	if strings.HasPrefix(t, "target.") {
		if idx := strings.LastIndex(t, "."); idx >= 0 {
			t = t[idx+1:]
		}
	}
	switch t {
	case "dependencies":
		return "", true
	case "dev-dependencies":
		return "dev", true
	case "build-dependencies":
		return "build", true
	case "workspace.dependencies":
		return "workspace", true
	default:
		return "", false
	}
}

// inlineTableString pulls a quoted string value for a key out of an inline
// table line, or returns empty.
func inlineTableString(entry, key string) string {
	idx := strings.Index(entry, key)
	if idx < 0 {
		return ""
	}
	qs := quotedStrings(entry[idx:])
	if len(qs) == 0 {
		return ""
	}
	return qs[0].text
}

func splitKeyValue(line string) (string, string, bool) {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	key = strings.Trim(key, `"'`)
	if key == "" {
		return "", "", false
	}
	return key, line[idx+1:], true
}

type quoted struct {
	text  string
	start int
}

func quotedStrings(line string) []quoted {
	var out []quoted
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '#' {
			break
		}
		if c != '"' && c != '\'' {
			continue
		}
		end := strings.IndexByte(line[i+1:], c)
		if end < 0 {
			break
		}
		out = append(out, quoted{text: line[i+1 : i+1+end], start: i + 1})
		i += end + 1
	}
	return out
}
