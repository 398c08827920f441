package domain

// Parser abstracts one concrete dependency-file grammar (requirements.txt,
// pyproject.toml, Cargo.toml, package.json, ...). Parsers are pure: they
// never touch the filesystem, the caller hands them the bytes it read.
// A malformed single entry is reported as a ParseWarning and skipped; only
// an unreadable file as a whole is an error.
type Parser interface {
	// Kind returns the parser identifier (e.g. "requirements", "pyproject").
	Kind() string

	// CanParse reports whether this parser owns the given file path.
	CanParse(path string) bool

	// Parse extracts every dependency declaration from the file content,
	// with byte spans locating each replaceable constraint.
	Parse(path string, content []byte) (*ParseResult, error)
}

// LockReader abstracts a lock-file format mapping normalized package names
// to their resolved versions. Lock files are read-only inputs; they are
// never patched.
type LockReader interface {
	// CanRead reports whether this reader owns the given file path.
	CanRead(path string) bool

	// Read returns the installed version per normalized package name.
	Read(path string, content []byte) (map[string]Version, error)
}
