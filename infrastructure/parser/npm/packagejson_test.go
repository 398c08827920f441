package npm //nolint:testpackage // tests unexported helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeutils/check-updates/domain"
)

const packageJSONFixture = `{
  "name": "demo",
  "version": "1.0.0",
  "dependencies": {
    "express": "^4.18.0",
    "@types/node": "~20.10.0",
    "lodash": "4.17.21",
    "internal": "file:../internal",
    "forked": "github:user/forked",
    "linked": "workspace:*",
    "alias": "npm:actual@^2.0.0"
  },
  "devDependencies": {
    "vitest": ">=1.0.0 <2.0.0"
  },
  "peerDependencies": {
    "react": "18.x"
  },
  "scripts": {
    "build": "tsc -p ."
  }
}
`

func TestPackageJSONParser_CanParse(t *testing.T) {
	t.Parallel()

	// given
	parser := NewPackageJSONParser()

	// when / then
	assert.True(t, parser.CanParse("package.json"))
	assert.True(t, parser.CanParse("packages/app/package.json"))
	assert.False(t, parser.CanParse("package-lock.json"))
}

func TestPackageJSONParser_Parse(t *testing.T) {
	t.Parallel()

	t.Run("should parse all dependency sections with groups", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(packageJSONFixture)

		// when
		result, err := NewPackageJSONParser().Parse("package.json", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		require.Contains(t, byName, "express")
		assert.Equal(t, "", byName["express"].Group)
		assert.Equal(t, domain.SpecCaret, byName["express"].Spec.Kind)
		require.Contains(t, byName, "vitest")
		assert.Equal(t, "dev", byName["vitest"].Group)
		assert.Equal(t, domain.SpecRange, byName["vitest"].Spec.Kind)
		require.Contains(t, byName, "react")
		assert.Equal(t, "peer", byName["react"].Group)
		assert.Equal(t, domain.SpecWildcard, byName["react"].Spec.Kind)
	})

	t.Run("should keep scoped package names", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(packageJSONFixture)

		// when
		result, err := NewPackageJSONParser().Parse("package.json", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		require.Contains(t, byName, "@types/node")
		assert.Equal(t, domain.SpecTilde, byName["@types/node"].Spec.Kind)
	})

	t.Run("should skip non-registry ranges", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(packageJSONFixture)

		// when
		result, err := NewPackageJSONParser().Parse("package.json", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		assert.NotContains(t, byName, "internal")
		assert.NotContains(t, byName, "forked")
		assert.NotContains(t, byName, "linked")
		assert.NotContains(t, byName, "alias")
	})

	t.Run("should not read scripts as dependencies", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(packageJSONFixture)

		// when
		result, err := NewPackageJSONParser().Parse("package.json", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		assert.NotContains(t, byName, "build")
	})

	t.Run("should record spans that splice back into the file", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(packageJSONFixture)

		// when
		result, err := NewPackageJSONParser().Parse("package.json", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		express := byName["express"]
		require.True(t, express.HasSpan())
		assert.Equal(t, "^4.18.0", string(content[express.Span.Start:express.Span.End]))
		vitest := byName["vitest"]
		assert.Equal(t, ">=1.0.0 <2.0.0", string(content[vitest.Span.Start:vitest.Span.End]))
	})

	t.Run("should handle an empty section", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte("{\n  \"dependencies\": {},\n  \"devDependencies\": {\n    \"vitest\": \"^1.0.0\"\n  }\n}\n")

		// when
		result, err := NewPackageJSONParser().Parse("package.json", content)

		// then
		require.NoError(t, err)
		require.Len(t, result.Declarations, 1)
		assert.Equal(t, "vitest", result.Declarations[0].Name)
	})
}

func declarationsByName(result *domain.ParseResult) map[string]domain.Declaration {
	byName := make(map[string]domain.Declaration, len(result.Declarations))
	for _, decl := range result.Declarations {
		byName[decl.Name] = decl
	}
	return byName
}
