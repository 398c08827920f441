package python //nolint:testpackage // tests unexported helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeutils/check-updates/domain"
)

const pep621Fixture = `[project]
name = "demo"
dependencies = [
    "requests>=2.28.0",
    "uvicorn[standard]>=0.23.0",
    "orjson",
]

[project.optional-dependencies]
docs = ["mkdocs~=1.5.0"]

[dependency-groups]
dev = [
    "pytest>=7.0",
]

[build-system]
requires = ["setuptools>=61.0"]
`

const poetryFixture = `[tool.poetry]
name = "demo"

[tool.poetry.dependencies]
python = "^3.11"
requests = "^2.28.0"
rich = { version = ">=13.0", extras = ["jupyter"] }
internal = { git = "https://example.test/internal.git" }

[tool.poetry.group.dev.dependencies]
pytest = "~7.4"
`

func TestPyprojectParser_CanParse(t *testing.T) {
	t.Parallel()

	// given
	parser := NewPyprojectParser()

	// when / then
	assert.True(t, parser.CanParse("pyproject.toml"))
	assert.True(t, parser.CanParse("sub/dir/pyproject.toml"))
	assert.False(t, parser.CanParse("Cargo.toml"))
}

func TestPyprojectParser_Parse_PEP621(t *testing.T) {
	t.Parallel()

	t.Run("should parse project dependencies with groups", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(pep621Fixture)

		// when
		result, err := NewPyprojectParser().Parse("pyproject.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		require.Contains(t, byName, "requests")
		assert.Equal(t, "", byName["requests"].Group)
		require.Contains(t, byName, "mkdocs")
		assert.Equal(t, "docs", byName["mkdocs"].Group)
		require.Contains(t, byName, "pytest")
		assert.Equal(t, "dev", byName["pytest"].Group)
		require.Contains(t, byName, "setuptools")
		assert.Equal(t, "build-system", byName["setuptools"].Group)
	})

	t.Run("should span only the constraint inside the quotes", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(pep621Fixture)

		// when
		result, err := NewPyprojectParser().Parse("pyproject.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		decl := byName["uvicorn"]
		assert.Equal(t, ">=0.23.0", string(content[decl.Span.Start:decl.Span.End]))
	})

	t.Run("should parse an unconstrained entry as any", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(pep621Fixture)

		// when
		result, err := NewPyprojectParser().Parse("pyproject.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		require.Contains(t, byName, "orjson")
		assert.Equal(t, domain.SpecAny, byName["orjson"].Spec.Kind)
	})
}

func TestPyprojectParser_Parse_Poetry(t *testing.T) {
	t.Parallel()

	t.Run("should parse string and inline-table dependencies", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(poetryFixture)

		// when
		result, err := NewPyprojectParser().Parse("pyproject.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		require.Contains(t, byName, "requests")
		assert.Equal(t, domain.SpecCaret, byName["requests"].Spec.Kind)
		require.Contains(t, byName, "rich")
		assert.Equal(t, domain.SpecMinimum, byName["rich"].Spec.Kind)
		require.Contains(t, byName, "pytest")
		assert.Equal(t, "dev", byName["pytest"].Group)
	})

	t.Run("should skip the python constraint and git dependencies", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(poetryFixture)

		// when
		result, err := NewPyprojectParser().Parse("pyproject.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		assert.NotContains(t, byName, "python")
		assert.NotContains(t, byName, "internal")
	})

	t.Run("should span the version value of an inline table", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(poetryFixture)

		// when
		result, err := NewPyprojectParser().Parse("pyproject.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		decl := byName["rich"]
		assert.Equal(t, ">=13.0", string(content[decl.Span.Start:decl.Span.End]))
	})
}

func TestPyprojectParser_Parse_Duplicates(t *testing.T) {
	t.Parallel()

	t.Run("should keep the first declaration within a group", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte("[project]\ndependencies = [\n    \"requests>=2.28.0\",\n    \"Requests>=2.0\",\n]\n")

		// when
		result, err := NewPyprojectParser().Parse("pyproject.toml", content)

		// then
		require.NoError(t, err)
		require.Len(t, result.Declarations, 1)
		assert.Equal(t, ">=2.28.0", result.Declarations[0].RawSpec)
		assert.Len(t, result.Warnings, 1)
	})
}

func declarationsByName(result *domain.ParseResult) map[string]domain.Declaration {
	byName := make(map[string]domain.Declaration, len(result.Declarations))
	for _, decl := range result.Declarations {
		byName[decl.Name] = decl
	}
	return byName
}
