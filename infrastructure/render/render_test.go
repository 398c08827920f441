package render //nolint:testpackage // tests unexported helpers

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgeutils/check-updates/domain"
)

func TestRenderer_Table(t *testing.T) {
	t.Parallel()

	t.Run("should print the all-clear line without rows", func(t *testing.T) {
		t.Parallel()

		// given
		var buf bytes.Buffer

		// when
		NewRenderer(&buf).Table(nil)

		// then
		assert.Contains(t, buf.String(), "All dependencies are up to date!")
	})

	t.Run("should align every column", func(t *testing.T) {
		t.Parallel()

		// given
		var buf bytes.Buffer
		rows := []Row{
			{Name: "requests", Defined: "==2.28.0", Installed: "2.28.0", InRange: "2.28.0", Latest: "2.32.5", UpdateTo: "2.32.5", Severity: domain.DeltaMinor},
			{Name: "rich", Defined: ">=13.0", Installed: "13.0.0", InRange: "13.7.1", Latest: "14.0.0", UpdateTo: "13.7.1", Severity: domain.DeltaMinor, NewerAvailable: true},
		}

		// when
		NewRenderer(&buf).Table(rows)

		// then
		out := buf.String()
		assert.Contains(t, out, "Package")
		assert.Contains(t, out, "Update To")
		assert.Contains(t, out, "requests")
		assert.Contains(t, out, "(14.0.0 available)")
	})

	t.Run("should render an error row", func(t *testing.T) {
		t.Parallel()

		// given
		var buf bytes.Buffer
		rows := []Row{{Name: "ghost", Err: errors.New("package not found")}}

		// when
		NewRenderer(&buf).Table(rows)

		// then
		assert.Contains(t, buf.String(), "ghost")
		assert.Contains(t, buf.String(), "package not found")
	})
}

func TestRenderer_Summary(t *testing.T) {
	t.Parallel()

	t.Run("should list changed files and lock commands", func(t *testing.T) {
		t.Parallel()

		// given
		var buf bytes.Buffer

		// when
		NewRenderer(&buf).Summary(
			[]string{"requirements.txt"},
			nil,
			[]string{"uv lock"},
			[]string{"requests"},
		)

		// then
		out := buf.String()
		assert.Contains(t, out, "Updated 1 file(s):")
		assert.Contains(t, out, "requirements.txt")
		assert.Contains(t, out, "uv lock")
		assert.Contains(t, out, "requests updated in multiple files")
	})

	t.Run("should print nothing when nothing happened", func(t *testing.T) {
		t.Parallel()

		// given
		var buf bytes.Buffer

		// when
		NewRenderer(&buf).Summary(nil, nil, nil, nil)

		// then
		assert.Empty(t, buf.String())
	})

	t.Run("should list files that could not be written", func(t *testing.T) {
		t.Parallel()

		// given
		var buf bytes.Buffer

		// when
		NewRenderer(&buf).Summary(
			[]string{"requirements.txt"},
			[]string{"requirements-dev.txt"},
			nil,
			nil,
		)

		// then
		out := buf.String()
		assert.Contains(t, out, "Failed to update 1 file(s):")
		assert.Contains(t, out, "requirements-dev.txt")
	})
}
