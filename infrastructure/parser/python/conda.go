package python

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forgeutils/check-updates/domain"
)

const condaKind = "conda"

// CondaParser parses conda environment files: the dependencies list and the
// nested pip sublist. Conda entries use the single-equals pin form; pip
// entries are regular requirement strings.
type CondaParser struct{}

// NewCondaParser creates an environment.yml parser.
func NewCondaParser() domain.Parser {
	return &CondaParser{}
}

func (p *CondaParser) Kind() string { return condaKind }

func (p *CondaParser) CanParse(path string) bool {
	base := filepath.Base(path)
	return base == "environment.yml" || base == "environment.yaml"
}

func (p *CondaParser) Parse(path string, content []byte) (*domain.ParseResult, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	result := &domain.ParseResult{}
	lines := splitLinesWithOffsets(content)

	deps := findMappingValue(&doc, "dependencies")
	if deps == nil || deps.Kind != yaml.SequenceNode {
		return result, nil
	}

	for _, item := range deps.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			p.addCondaEntry(result, path, item, lines)
		case yaml.MappingNode:
			// The nested `pip:` sublist.
			if pip := findMappingValue(item, "pip"); pip != nil && pip.Kind == yaml.SequenceNode {
				for _, req := range pip.Content {
					if req.Kind == yaml.ScalarNode {
						p.addPipEntry(result, path, req, lines)
					}
				}
			}
		}
	}

	dedupeFirst(result)
	return result, nil
}

func (p *CondaParser) addCondaEntry(result *domain.ParseResult, path string, node *yaml.Node, lines []lineSpan) {
	entry := node.Value
	// Channel prefixes ("conda-forge::numpy") are not part of the name.
	if idx := strings.LastIndex(entry, "::"); idx >= 0 {
		entry = entry[idx+2:]
	}

	name, nameEnd := scanPackageName(entry)
	if name == "" {
		return
	}
	// The interpreter and pip itself are managed by conda, not by an index.
	if name == "python" || name == "pip" {
		return
	}

	spec := entry[nameEnd:]
	// Conda pins may carry a build string ("numpy=1.21.0=py39...").
	if idx := secondEquals(spec); idx >= 0 {
		spec = spec[:idx]
	}

	parsed, err := domain.ParseSpec(spec, domain.DialectPEP440)
	if err != nil {
		result.Warnings = append(result.Warnings, domain.ParseWarning{
			File:    path,
			Line:    node.Line,
			Entry:   node.Value,
			Message: "invalid version specifier",
		})
		return
	}

	result.Declarations = append(result.Declarations, domain.Declaration{
		Name:    domain.NormalizePythonName(name),
		Group:   "conda",
		Spec:    parsed,
		RawSpec: spec,
		File:    path,
		Line:    node.Line,
		Span:    scalarSpan(lines, node, entry, nameEnd, nameEnd+len(spec)),
		Dialect: domain.DialectPEP440,
	})
}

func (p *CondaParser) addPipEntry(result *domain.ParseResult, path string, node *yaml.Node, lines []lineSpan) {
	entry := node.Value
	if strings.Contains(entry, "://") || strings.HasPrefix(entry, "-") {
		return
	}

	name, nameEnd := scanPackageName(entry)
	if name == "" {
		return
	}

	specStart, specEnd := constraintSpan(entry, nameEnd)
	specText := entry[specStart:specEnd]

	parsed, err := domain.ParseSpec(specText, domain.DialectPEP440)
	if err != nil {
		result.Warnings = append(result.Warnings, domain.ParseWarning{
			File:    path,
			Line:    node.Line,
			Entry:   entry,
			Message: "invalid version specifier",
		})
		return
	}

	result.Declarations = append(result.Declarations, domain.Declaration{
		Name:    domain.NormalizePythonName(name),
		Group:   "pip",
		Spec:    parsed,
		RawSpec: specText,
		File:    path,
		Line:    node.Line,
		Span:    scalarSpan(lines, node, entry, specStart, specEnd),
		Dialect: domain.DialectPEP440,
	})
}

// findMappingValue returns the value node for a top-level mapping key,
// descending through the document node.
func findMappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

type lineSpan struct {
	start int
	text  string
}

func splitLinesWithOffsets(content []byte) []lineSpan {
	var out []lineSpan
	offset := 0
	for _, line := range strings.SplitAfter(string(content), "\n") {
		out = append(out, lineSpan{start: offset, text: line})
		offset += len(line)
	}
	return out
}

// scalarSpan maps a sub-range of a scalar's text back to byte offsets in the
// file. The scalar is located by value on its source line, which side-steps
// quoting differences between the node and the raw text.
func scalarSpan(lines []lineSpan, node *yaml.Node, scalar string, from, to int) domain.Span {
	if node.Line < 1 || node.Line > len(lines) {
		return domain.Span{}
	}
	line := lines[node.Line-1]
	idx := strings.Index(line.text, scalar)
	if idx < 0 {
		return domain.Span{}
	}
	return domain.Span{
		Start: line.start + idx + from,
		End:   line.start + idx + to,
	}
}

// secondEquals finds the "=" that starts a conda build string, if present,
// in a spec like "=1.21.0=py39h...".
func secondEquals(spec string) int {
	for i := 1; i < len(spec); i++ {
		if spec[i] != '=' {
			continue
		}
		prev := spec[i-1]
		if prev == '<' || prev == '>' || prev == '!' || prev == '=' {
			continue
		}
		if i+1 < len(spec) && spec[i+1] == '=' {
			continue
		}
		return i
	}
	return -1
}
