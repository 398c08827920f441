package application //nolint:testpackage // tests unexported helpers

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeutils/check-updates/domain"
)

// fakeRegistry serves canned package data and counts lookups.
type fakeRegistry struct {
	packages map[string][]string
	lookups  atomic.Int64
}

func (f *fakeRegistry) Name() string { return "fake" }

func (f *fakeRegistry) Lookup(_ context.Context, name string) (*domain.PackageInfo, error) {
	f.lookups.Add(1)
	versions, ok := f.packages[name]
	if !ok {
		return nil, domain.ErrPackageNotFound
	}
	info := &domain.PackageInfo{Name: name}
	for _, v := range versions {
		info.Versions = append(info.Versions, domain.MustParseVersion(v))
	}
	return info, nil
}

func declFor(name string) domain.Declaration {
	return domain.Declaration{Name: name, Dialect: domain.DialectPEP440}
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	t.Run("should resolve every distinct name", func(t *testing.T) {
		t.Parallel()

		// given
		registry := &fakeRegistry{packages: map[string][]string{
			"requests": {"2.28.0", "2.31.0"},
			"flask":    {"2.0.0"},
		}}
		resolver := NewResolver(registry, 4)

		// when
		results := resolver.Resolve(context.Background(), []domain.Declaration{
			declFor("requests"), declFor("flask"),
		})

		// then
		require.Len(t, results, 2)
		require.NoError(t, results["requests"].Err)
		assert.Len(t, results["requests"].Info.Versions, 2)
	})

	t.Run("should look up duplicate names once", func(t *testing.T) {
		t.Parallel()

		// given
		registry := &fakeRegistry{packages: map[string][]string{
			"requests": {"2.31.0"},
		}}
		resolver := NewResolver(registry, 4)

		// when
		results := resolver.Resolve(context.Background(), []domain.Declaration{
			declFor("requests"), declFor("requests"), declFor("requests"),
		})

		// then
		require.Len(t, results, 1)
		assert.Equal(t, int64(1), registry.lookups.Load())
	})

	t.Run("should serve repeat runs from the cache", func(t *testing.T) {
		t.Parallel()

		// given
		registry := &fakeRegistry{packages: map[string][]string{
			"requests": {"2.31.0"},
		}}
		resolver := NewResolver(registry, 4)
		declarations := []domain.Declaration{declFor("requests")}

		// when
		resolver.Resolve(context.Background(), declarations)
		resolver.Resolve(context.Background(), declarations)

		// then
		assert.Equal(t, int64(1), registry.lookups.Load())
	})

	t.Run("should record lookup failures per name without failing the batch", func(t *testing.T) {
		t.Parallel()

		// given
		registry := &fakeRegistry{packages: map[string][]string{
			"requests": {"2.31.0"},
		}}
		resolver := NewResolver(registry, 4)

		// when
		results := resolver.Resolve(context.Background(), []domain.Declaration{
			declFor("requests"), declFor("ghost"),
		})

		// then
		require.NoError(t, results["requests"].Err)
		require.ErrorIs(t, results["ghost"].Err, domain.ErrPackageNotFound)
	})

	t.Run("should not cache failures", func(t *testing.T) {
		t.Parallel()

		// given
		registry := &fakeRegistry{packages: map[string][]string{}}
		resolver := NewResolver(registry, 4)
		declarations := []domain.Declaration{declFor("ghost")}

		// when
		resolver.Resolve(context.Background(), declarations)
		resolver.Resolve(context.Background(), declarations)

		// then
		assert.Equal(t, int64(2), registry.lookups.Load())
	})
}
