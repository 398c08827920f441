package python

import (
	"path/filepath"
	"strings"

	"github.com/forgeutils/check-updates/domain"
)

const pyprojectKind = "pyproject"

// PyprojectParser parses pyproject.toml dependency tables: PEP 621 project
// dependencies and optional-dependencies, PEP 735 dependency-groups, Poetry
// dependency tables and PDM dev-dependencies.
//
// It scans the raw text rather than decoding the document so every
// declaration carries the exact byte span of its constraint; a rewrite then
// touches nothing but those bytes.
type PyprojectParser struct{}

// NewPyprojectParser creates a pyproject.toml parser.
func NewPyprojectParser() domain.Parser {
	return &PyprojectParser{}
}

func (p *PyprojectParser) Kind() string { return pyprojectKind }

func (p *PyprojectParser) CanParse(path string) bool {
	return filepath.Base(path) == "pyproject.toml"
}

func (p *PyprojectParser) Parse(path string, content []byte) (*domain.ParseResult, error) {
	s := &pyprojectScan{path: path, result: &domain.ParseResult{}}

	offset := 0
	lineNo := 0
	for _, line := range strings.SplitAfter(string(content), "\n") {
		lineNo++
		s.scanLine(line, offset, lineNo)
		offset += len(line)
	}

	dedupeFirst(s.result)
	return s.result, nil
}

type pyprojectScan struct {
	path   string
	result *domain.ParseResult

	table string
	// inArray is set while collecting the strings of a requirement array;
	// group names the array's dependency group.
	inArray bool
	group   string
}

func (s *pyprojectScan) scanLine(line string, offset, lineNo int) {
	entry := strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(entry)

	if s.inArray {
		s.scanArrayLine(entry, offset, lineNo)
		return
	}

	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return
	}
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		s.table = strings.Trim(trimmed, "[]")
		return
	}

	switch {
	case s.table == "project":
		if key, rest, ok := splitKeyValue(trimmed); ok && key == "dependencies" {
			s.openArray("", rest, entry, offset, lineNo)
		}
	case s.table == "build-system":
		if key, rest, ok := splitKeyValue(trimmed); ok && key == "requires" {
			s.openArray("build-system", rest, entry, offset, lineNo)
		}
	case s.table == "project.optional-dependencies",
		s.table == "dependency-groups",
		s.table == "tool.pdm.dev-dependencies":
		if key, rest, ok := splitKeyValue(trimmed); ok {
			s.openArray(key, rest, entry, offset, lineNo)
		}
	case isPoetryDependencyTable(s.table):
		s.scanPoetryLine(entry, trimmed, offset, lineNo)
	}
}

// openArray starts collecting a requirement array. An array opened and
// closed on one line is consumed immediately.
func (s *pyprojectScan) openArray(group, rest, entry string, offset, lineNo int) {
	if !strings.HasPrefix(strings.TrimSpace(rest), "[") {
		return
	}
	s.inArray = true
	s.group = group
	s.scanArrayLine(entry, offset, lineNo)
}

func (s *pyprojectScan) scanArrayLine(entry string, offset, lineNo int) {
	qs := quotedStrings(entry)
	for _, q := range qs {
		s.addRequirement(entry, q, offset, lineNo)
	}
	// A closing bracket outside the quoted strings ends collection; extras
	// brackets inside a requirement string do not.
	if closingBracketOutsideQuotes(entry, qs) {
		s.inArray = false
	}
}

func closingBracketOutsideQuotes(line string, qs []quoted) bool {
	isQuotedAt := func(i int) bool {
		for _, q := range qs {
			if i >= q.start && i < q.start+len(q.text) {
				return true
			}
		}
		return false
	}
	for i := 0; i < len(line); i++ {
		if line[i] == ']' && !isQuotedAt(i) {
			return true
		}
	}
	return false
}

// addRequirement parses one PEP 508 string from an array and records the
// constraint span inside its quotes.
func (s *pyprojectScan) addRequirement(entry string, q quoted, offset, lineNo int) {
	name, nameEnd := scanPackageName(q.text)
	if name == "" {
		return
	}
	if strings.Contains(q.text, "://") || strings.Contains(q.text, "@") {
		// Direct references are not registry packages.
		return
	}

	specStart, specEnd := constraintSpan(q.text, nameEnd)
	specText := q.text[specStart:specEnd]

	spec, err := domain.ParseSpec(specText, domain.DialectPEP440)
	if err != nil {
		s.result.Warnings = append(s.result.Warnings, domain.ParseWarning{
			File:    s.path,
			Line:    lineNo,
			Entry:   q.text,
			Message: "invalid version specifier",
		})
		return
	}

	s.result.Declarations = append(s.result.Declarations, domain.Declaration{
		Name:    domain.NormalizePythonName(name),
		Group:   s.group,
		Spec:    spec,
		RawSpec: specText,
		File:    s.path,
		Line:    lineNo,
		Span:    domain.Span{Start: offset + q.start + specStart, End: offset + q.start + specEnd},
		Dialect: domain.DialectPEP440,
	})
}

// scanPoetryLine handles `name = "^1.2"` and the inline-table form
// `name = { version = "^1.2", extras = [...] }`.
func (s *pyprojectScan) scanPoetryLine(entry, trimmed string, offset, lineNo int) {
	key, rest, ok := splitKeyValue(trimmed)
	if !ok || key == "python" {
		return
	}

	value := strings.TrimSpace(rest)
	searchFrom := 0
	if strings.HasPrefix(value, "{") {
		// Git, path and url dependencies have no registry version.
		if strings.Contains(value, "git ") || strings.Contains(value, "git=") ||
			strings.Contains(value, "path ") || strings.Contains(value, "path=") ||
			strings.Contains(value, "url ") || strings.Contains(value, "url=") {
			return
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

	spec, err := domain.ParseSpec(q.text, domain.DialectPEP440)
	if err != nil {
		s.result.Warnings = append(s.result.Warnings, domain.ParseWarning{
			File:    s.path,
			Line:    lineNo,
			Entry:   trimmed,
			Message: "invalid version specifier",
		})
		return
	}

	s.result.Declarations = append(s.result.Declarations, domain.Declaration{
		Name:    domain.NormalizePythonName(key),
		Group:   poetryGroup(s.table),
		Spec:    spec,
		RawSpec: q.text,
		File:    s.path,
		Line:    lineNo,
		Span:    domain.Span{Start: offset + q.start, End: offset + q.start + len(q.text)},
		Dialect: domain.DialectPEP440,
	})
}

func isPoetryDependencyTable(table string) bool {
	switch {
	case table == "tool.poetry.dependencies", table == "tool.poetry.dev-dependencies":
		return true
	case strings.HasPrefix(table, "tool.poetry.group.") && strings.HasSuffix(table, ".dependencies"):
		return true
	default:
		return false
	}
}

func poetryGroup(table string) string {
	switch table {
	case "tool.poetry.dependencies":
		return ""
	case "tool.poetry.dev-dependencies":
		return "dev"
	}
	name := strings.TrimPrefix(table, "tool.poetry.group.")
	return strings.TrimSuffix(name, ".dependencies")
}

// splitKeyValue splits a `key = value` line, unquoting the key if needed.
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
	start int // byte index of the first character inside the quotes
}

// quotedStrings returns every plain quoted string in the line with its byte
// position. Requirement strings never contain escaped quotes.
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

// dedupeFirst keeps the first declaration of each package per group and
// turns later ones into warnings.
func dedupeFirst(result *domain.ParseResult) {
	seen := make(map[string]int)
	kept := result.Declarations[:0]
	for _, decl := range result.Declarations {
		key := decl.Group + "\x00" + decl.Name
		if _, dup := seen[key]; dup {
			result.Warnings = append(result.Warnings, domain.ParseWarning{
				File:    decl.File,
				Line:    decl.Line,
				Entry:   decl.Name,
				Message: "duplicate declaration, first one wins",
			})
			continue
		}
		seen[key] = decl.Line
		kept = append(kept, decl)
	}
	result.Declarations = kept
}
