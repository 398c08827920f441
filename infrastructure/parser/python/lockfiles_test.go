package python //nolint:testpackage // tests unexported helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uvLockFixture = `version = 1

[[package]]
name = "requests"
version = "2.31.0"

[[package]]
name = "Typing_Extensions"
version = "4.9.0"

[[package]]
name = "local-only"
version = ""
`

func TestLockReader_CanRead(t *testing.T) {
	t.Parallel()

	// given
	reader := NewLockReader()

	// when / then
	assert.True(t, reader.CanRead("uv.lock"))
	assert.True(t, reader.CanRead("sub/poetry.lock"))
	assert.True(t, reader.CanRead("pdm.lock"))
	assert.False(t, reader.CanRead("Cargo.lock"))
	assert.False(t, reader.CanRead("package-lock.json"))
}

func TestLockReader_Read(t *testing.T) {
	t.Parallel()

	t.Run("should read normalized package versions", func(t *testing.T) {
		t.Parallel()

		// when
		installed, err := NewLockReader().Read("uv.lock", []byte(uvLockFixture))

		// then
		require.NoError(t, err)
		require.Contains(t, installed, "requests")
		assert.Equal(t, "2.31.0", installed["requests"].String())
		require.Contains(t, installed, "typing-extensions")
		assert.NotContains(t, installed, "local-only")
	})

	t.Run("should fail on malformed toml", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := NewLockReader().Read("uv.lock", []byte("[[package]\nname ="))

		// then
		require.Error(t, err)
	})
}
