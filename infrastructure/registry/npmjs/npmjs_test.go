package npmjs //nolint:testpackage // tests unexported helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeutils/check-updates/domain"
)

const expressPayload = `{
  "name": "express",
  "dist-tags": {"latest": "4.18.2"},
  "versions": {
    "4.17.1": {},
    "4.18.2": {},
    "5.0.0-beta.1": {}
  }
}`

func TestClient_Lookup(t *testing.T) {
	t.Parallel()

	t.Run("should return versions and the latest dist-tag", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/express", r.URL.Path)
			_, _ = w.Write([]byte(expressPayload))
		}))
		defer server.Close()
		client := New(server.Client(), server.URL)

		// when
		info, err := client.Lookup(context.Background(), "express")

		// then
		require.NoError(t, err)
		assert.Len(t, info.Versions, 3)
		require.True(t, info.HasLatest)
		assert.Equal(t, "4.18.2", info.Latest.String())
	})

	t.Run("should escape scoped package names", func(t *testing.T) {
		t.Parallel()

		// given
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			_, _ = w.Write([]byte(`{"name": "@types/node", "dist-tags": {"latest": "20.10.5"}, "versions": {"20.10.5": {}}}`))
		}))
		defer server.Close()
		client := New(server.Client(), server.URL)

		// when
		_, err := client.Lookup(context.Background(), "@types/node")

		// then
		require.NoError(t, err)
		assert.Equal(t, "/%40types%2Fnode", gotPath)
	})

	t.Run("should map 404 to the not-found error", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()
		client := New(server.Client(), server.URL)

		// when
		_, err := client.Lookup(context.Background(), "no-such-package")

		// then
		require.ErrorIs(t, err, domain.ErrPackageNotFound)
	})
}
