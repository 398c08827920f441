package parser

import (
	"github.com/forgeutils/check-updates/domain"
)

// Registry manages all registered dependency file parsers.
type Registry struct {
	parsers map[string]domain.Parser
	locks   []domain.LockReader
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[string]domain.Parser),
	}
}

// Register adds a parser under its kind.
func (r *Registry) Register(p domain.Parser) {
	r.parsers[p.Kind()] = p
}

// RegisterLock adds a lockfile reader.
func (r *Registry) RegisterLock(l domain.LockReader) {
	r.locks = append(r.locks, l)
}

// Get returns the parser with the given kind, or nil if not registered.
func (r *Registry) Get(kind string) domain.Parser {
	return r.parsers[kind]
}

// For returns the first parser that claims the given path, or nil.
func (r *Registry) For(path string) domain.Parser {
	for _, p := range r.parsers {
		if p.CanParse(path) {
			return p
		}
	}
	return nil
}

// LockFor returns the first lockfile reader that claims the given path,
// or nil.
func (r *Registry) LockFor(path string) domain.LockReader {
	for _, l := range r.locks {
		if l.CanRead(path) {
			return l
		}
	}
	return nil
}

// All returns every registered parser.
func (r *Registry) All() []domain.Parser {
	result := make([]domain.Parser, 0, len(r.parsers))
	for _, p := range r.parsers {
		result = append(result, p)
	}
	return result
}

// Names returns the list of registered parser kinds.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	return names
}
