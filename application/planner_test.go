package application //nolint:testpackage // tests unexported helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeutils/check-updates/domain"
)

func resolutionOf(name string, versions ...string) Resolution {
	info := &domain.PackageInfo{Name: name}
	for _, v := range versions {
		info.Versions = append(info.Versions, domain.MustParseVersion(v))
	}
	return Resolution{Info: info}
}

func declWithSpec(name, spec string, dialect domain.Dialect) domain.Declaration {
	parsed, err := domain.ParseSpec(spec, dialect)
	if err != nil {
		panic(err)
	}
	return domain.Declaration{
		Name:    name,
		Spec:    parsed,
		RawSpec: spec,
		Span:    domain.Span{Start: 10, End: 10 + len(spec)},
		Dialect: dialect,
	}
}

func TestPlanner_Plan(t *testing.T) {
	t.Parallel()

	planner := NewPlanner()
	none := domain.Version{}

	t.Run("should prefer the in-range version over the latest", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("requests", ">=2.28.0,<3.0", domain.DialectPEP440)
		res := resolutionOf("requests", "2.28.0", "2.32.3", "3.1.0")

		// when
		check := planner.Plan(decl, res, domain.MustParseVersion("2.28.0"), true, domain.UpdatePolicy{})

		// then
		require.True(t, check.HasUpdate)
		assert.Equal(t, "2.32.3", check.Target.String())
		assert.Equal(t, "3.1.0", check.Latest.String())
		assert.Equal(t, domain.DeltaMinor, check.Severity)
		assert.True(t, check.NewerAvailable())
	})

	t.Run("should fall back to the latest when the range is exhausted", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("requests", "==2.28.0", domain.DialectPEP440)
		res := resolutionOf("requests", "2.28.0", "2.28.5")

		// when
		check := planner.Plan(decl, res, domain.MustParseVersion("2.28.0"), true, domain.UpdatePolicy{})

		// then
		require.True(t, check.HasUpdate)
		assert.Equal(t, "2.28.5", check.Target.String())
		assert.Equal(t, domain.DeltaPatch, check.Severity)
		assert.Equal(t, "==2.28.5", check.NewSpecText)
	})

	t.Run("should keep minimum constraints inside their major series", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("flask", ">=1.2", domain.DialectPEP440)
		res := resolutionOf("flask", "1.2.0", "1.4.2", "2.0.0")

		// when
		check := planner.Plan(decl, res, none, false, domain.UpdatePolicy{})

		// then
		require.True(t, check.HasInRange)
		assert.Equal(t, "1.4.2", check.InRange.String())
		assert.Equal(t, "1.4.2", check.Target.String())
	})

	t.Run("should lift the major cap to the installed series", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("flask", ">=1.2", domain.DialectPEP440)
		res := resolutionOf("flask", "1.4.2", "2.0.0", "2.1.0")

		// when
		check := planner.Plan(decl, res, domain.MustParseVersion("2.0.0"), true, domain.UpdatePolicy{})

		// then
		require.True(t, check.HasUpdate)
		assert.Equal(t, "2.1.0", check.Target.String())
	})

	t.Run("should measure severity against the constraint base when nothing is installed", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("serde", "1.0.150", domain.DialectCargo)
		res := resolutionOf("serde", "1.0.150", "1.0.197")

		// when
		check := planner.Plan(decl, res, none, false, domain.UpdatePolicy{})

		// then
		require.True(t, check.HasUpdate)
		assert.Equal(t, domain.DeltaPatch, check.Severity)
		assert.Equal(t, "1.0.197", check.NewSpecText)
	})

	t.Run("should withhold the rewrite for minor updates by default", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("express", "^4.17.0", domain.DialectNPM)
		res := resolutionOf("express", "4.17.0", "4.19.2")

		// when
		check := planner.Plan(decl, res, none, false, domain.UpdatePolicy{})

		// then
		require.True(t, check.HasUpdate)
		assert.Equal(t, domain.DeltaMinor, check.Severity)
		assert.Empty(t, check.NewSpecText)
	})

	t.Run("should rewrite minor updates when the policy allows them", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("express", "^4.17.0", domain.DialectNPM)
		res := resolutionOf("express", "4.17.0", "4.19.2")

		// when
		check := planner.Plan(decl, res, none, false, domain.UpdatePolicy{AllowMinor: true})

		// then
		assert.Equal(t, "^4.19.2", check.NewSpecText)
	})

	t.Run("should target the absolute latest under force", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("express", "^4.17.0", domain.DialectNPM)
		res := resolutionOf("express", "4.19.2", "5.0.1")

		// when
		check := planner.Plan(decl, res, domain.MustParseVersion("4.17.0"), true, domain.UpdatePolicy{Force: true})

		// then
		require.True(t, check.HasUpdate)
		assert.Equal(t, "5.0.1", check.Target.String())
		assert.Equal(t, domain.DeltaMajor, check.Severity)
		assert.Equal(t, "^5.0.1", check.NewSpecText)
	})

	t.Run("should drop pre-releases unless asked for", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("django", ">=4.0", domain.DialectPEP440)
		res := resolutionOf("django", "4.2.0", "5.0.0rc1")

		// when
		plain := planner.Plan(decl, res, none, false, domain.UpdatePolicy{})
		withPre := planner.Plan(decl, res, none, false, domain.UpdatePolicy{IncludePrerelease: true})

		// then
		assert.Equal(t, "4.2.0", plain.Latest.String())
		assert.Equal(t, "5.0.0rc1", withPre.Latest.String())
	})

	t.Run("should keep pre-releases when the constraint pins one", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("django", "==5.0.0rc1", domain.DialectPEP440)
		res := resolutionOf("django", "5.0.0rc1", "5.0.0rc2")

		// when
		check := planner.Plan(decl, res, none, false, domain.UpdatePolicy{})

		// then
		require.True(t, check.HasUpdate)
		assert.Equal(t, "5.0.0rc2", check.Target.String())
		assert.Equal(t, domain.DeltaPrerelease, check.Severity)
	})

	t.Run("should trust the registry latest hint over a lagging version list", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("requests", "==2.28.0", domain.DialectPEP440)
		res := resolutionOf("requests", "2.28.0", "2.28.2")
		res.Info.Latest = domain.MustParseVersion("2.28.5")
		res.Info.HasLatest = true

		// when
		check := planner.Plan(decl, res, none, false, domain.UpdatePolicy{})

		// then
		require.True(t, check.HasUpdate)
		assert.Equal(t, "2.28.5", check.Latest.String())
		assert.Equal(t, "2.28.5", check.Target.String())
		assert.Equal(t, "==2.28.5", check.NewSpecText)
	})

	t.Run("should ignore a pre-release latest hint without the policy", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("django", ">=4.0", domain.DialectPEP440)
		res := resolutionOf("django", "4.2.0")
		res.Info.Latest = domain.MustParseVersion("5.0.0rc1")
		res.Info.HasLatest = true

		// when
		check := planner.Plan(decl, res, none, false, domain.UpdatePolicy{})

		// then
		assert.Equal(t, "4.2.0", check.Latest.String())
	})

	t.Run("should error when filtering leaves no candidates", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("experimental", ">=0.1", domain.DialectPEP440)
		res := resolutionOf("experimental", "0.2.0a1", "0.2.0b2")

		// when
		check := planner.Plan(decl, res, none, false, domain.UpdatePolicy{})

		// then
		require.Error(t, check.Err)
		assert.Contains(t, check.Err.Error(), "--pre-release")
	})

	t.Run("should never rewrite a declaration without a span", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("requests", "==2.28.0", domain.DialectPEP440)
		decl.Span = domain.Span{}
		res := resolutionOf("requests", "2.28.0", "2.28.5")

		// when
		check := planner.Plan(decl, res, none, false, domain.UpdatePolicy{})

		// then
		require.True(t, check.HasUpdate)
		assert.Empty(t, check.NewSpecText)
	})

	t.Run("should carry lookup errors into the row", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("ghost", "==1.0.0", domain.DialectPEP440)

		// when
		check := planner.Plan(decl, Resolution{Err: domain.ErrPackageNotFound}, none, false, domain.UpdatePolicy{})

		// then
		require.ErrorIs(t, check.Err, domain.ErrPackageNotFound)
		assert.False(t, check.HasUpdate)
	})

	t.Run("should report nothing when the current version is the newest", func(t *testing.T) {
		t.Parallel()

		// given
		decl := declWithSpec("requests", ">=2.31.0", domain.DialectPEP440)
		res := resolutionOf("requests", "2.28.0", "2.31.0")

		// when
		check := planner.Plan(decl, res, domain.MustParseVersion("2.31.0"), true, domain.UpdatePolicy{})

		// then
		assert.False(t, check.HasUpdate)
		assert.Empty(t, check.NewSpecText)
	})
}
