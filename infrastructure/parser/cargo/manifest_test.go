package cargo //nolint:testpackage // tests unexported helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeutils/check-updates/domain"
)

const manifestFixture = `[package]
name = "demo"
version = "0.1.0"

[dependencies]
serde = "1.0.190"
tokio = { version = "1.35", features = ["full"] }
explicit = "^0.4"
internal = { path = "../internal" }
remote = { git = "https://example.test/remote.git" }
shared = { workspace = true }
rename = { package = "actual-crate", version = "0.9" }

[dev-dependencies]
criterion = "0.5"

[build-dependencies]
cc = "1.0"

[workspace.dependencies]
anyhow = "1.0.75"

[target.'cfg(windows)'.dependencies]
winapi = "0.3"
`

func TestManifestParser_CanParse(t *testing.T) {
	t.Parallel()

	// given
	parser := NewManifestParser()

	// when / then
	assert.True(t, parser.CanParse("Cargo.toml"))
	assert.True(t, parser.CanParse("crates/core/Cargo.toml"))
	assert.False(t, parser.CanParse("Cargo.lock"))
	assert.False(t, parser.CanParse("pyproject.toml"))
}

func TestManifestParser_Parse(t *testing.T) {
	t.Parallel()

	t.Run("should parse bare versions with caret semantics", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(manifestFixture)

		// when
		result, err := NewManifestParser().Parse("Cargo.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		require.Contains(t, byName, "serde")
		assert.Equal(t, domain.SpecCaret, byName["serde"].Spec.Kind)
		assert.True(t, byName["serde"].Spec.Bare)
		require.Contains(t, byName, "explicit")
		assert.False(t, byName["explicit"].Spec.Bare)
	})

	t.Run("should read the version out of inline tables", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(manifestFixture)

		// when
		result, err := NewManifestParser().Parse("Cargo.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		require.Contains(t, byName, "tokio")
		assert.Equal(t, "1.35", byName["tokio"].RawSpec)
	})

	t.Run("should skip path git and workspace dependencies", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(manifestFixture)

		// when
		result, err := NewManifestParser().Parse("Cargo.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		assert.NotContains(t, byName, "internal")
		assert.NotContains(t, byName, "remote")
		assert.NotContains(t, byName, "shared")
	})

	t.Run("should resolve renamed crates under their registry name", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(manifestFixture)

		// when
		result, err := NewManifestParser().Parse("Cargo.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		require.Contains(t, byName, "actual-crate")
		assert.Equal(t, "0.9", byName["actual-crate"].RawSpec)
	})

	t.Run("should group dev build workspace and target tables", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(manifestFixture)

		// when
		result, err := NewManifestParser().Parse("Cargo.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		assert.Equal(t, "dev", byName["criterion"].Group)
		assert.Equal(t, "build", byName["cc"].Group)
		assert.Equal(t, "workspace", byName["anyhow"].Group)
		assert.Equal(t, "", byName["winapi"].Group)
	})

	t.Run("should not pick the package version as a dependency", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(manifestFixture)

		// when
		result, err := NewManifestParser().Parse("Cargo.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		assert.NotContains(t, byName, "name")
		assert.NotContains(t, byName, "version")
	})

	t.Run("should record spans that splice back into the file", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte(manifestFixture)

		// when
		result, err := NewManifestParser().Parse("Cargo.toml", content)

		// then
		require.NoError(t, err)
		byName := declarationsByName(result)
		serde := byName["serde"]
		require.True(t, serde.HasSpan())
		assert.Equal(t, "1.0.190", string(content[serde.Span.Start:serde.Span.End]))
		tokio := byName["tokio"]
		assert.Equal(t, "1.35", string(content[tokio.Span.Start:tokio.Span.End]))
	})
}

func TestLockReader_Read(t *testing.T) {
	t.Parallel()

	t.Run("should read crate versions", func(t *testing.T) {
		t.Parallel()

		// given
		content := []byte("version = 3\n\n[[package]]\nname = \"serde\"\nversion = \"1.0.193\"\n\n[[package]]\nname = \"tokio\"\nversion = \"1.35.1\"\n")

		// when
		installed, err := NewLockReader().Read("Cargo.lock", content)

		// then
		require.NoError(t, err)
		assert.Equal(t, "1.0.193", installed["serde"].String())
		assert.Equal(t, "1.35.1", installed["tokio"].String())
	})

	t.Run("should fail on malformed toml", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := NewLockReader().Read("Cargo.lock", []byte("[[package]\n"))

		// then
		require.Error(t, err)
	})
}

func declarationsByName(result *domain.ParseResult) map[string]domain.Declaration {
	byName := make(map[string]domain.Declaration, len(result.Declarations))
	for _, decl := range result.Declarations {
		byName[decl.Name] = decl
	}
	return byName
}
