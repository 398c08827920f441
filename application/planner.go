package application

import (
	"fmt"

	"github.com/forgeutils/check-updates/domain"
)

// Check is the planner's full verdict for one declaration: the resolved
// versions for display plus the update decision.
type Check struct {
	domain.UpdateDecision

	// Installed is the version from a lock file, when one was found.
	Installed    domain.Version
	HasInstalled bool
	// InRange is the highest version satisfying the declared constraint.
	InRange    domain.Version
	HasInRange bool
	// Latest is the absolute highest version after pre-release filtering.
	Latest    domain.Version
	HasLatest bool
}

// Current returns the version updates are measured against: the installed
// version when known, otherwise the constraint's base version.
func (c Check) Current() (domain.Version, bool) {
	if c.HasInstalled {
		return c.Installed, true
	}
	return c.Declaration.Spec.BaseVersion()
}

// NewerAvailable reports whether a version beyond the chosen target exists.
func (c Check) NewerAvailable() bool {
	return c.HasUpdate && c.HasLatest && domain.Less(c.Target, c.Latest)
}

// Planner turns registry data into per-declaration update decisions under
// an update policy.
type Planner struct{}

// NewPlanner creates a planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan decides the update for one declaration. A lookup error produces an
// error row; it never aborts the batch.
func (p *Planner) Plan(
	decl domain.Declaration,
	res Resolution,
	installed domain.Version,
	hasInstalled bool,
	policy domain.UpdatePolicy,
) Check {
	check := Check{
		UpdateDecision: domain.UpdateDecision{Declaration: decl},
		Installed:      installed,
		HasInstalled:   hasInstalled,
	}
	if res.Err != nil {
		check.Err = res.Err
		return check
	}

	allowPre := p.allowPrerelease(decl, installed, hasInstalled, policy)
	versions := p.candidates(res.Info.Versions, allowPre)
	if len(versions) == 0 {
		check.Err = fmt.Errorf("no stable versions of %s (use --pre-release to include pre-releases)", decl.Name)
		return check
	}

	if latest, ok := domain.MaxVersion(versions); ok {
		check.Latest = latest
		check.HasLatest = true
	}
	// The registry's own latest hint wins when it is ahead of the version
	// list, which can lag on truncated listings.
	if hint := res.Info.Latest; res.Info.HasLatest && (allowPre || !hint.IsPrerelease()) {
		if !check.HasLatest || domain.Less(check.Latest, hint) {
			check.Latest = hint
			check.HasLatest = true
		}
	}
	if inRange, ok := p.highestInRange(decl.Spec, versions, installed, hasInstalled); ok {
		check.InRange = inRange
		check.HasInRange = true
	}

	current, ok := check.Current()
	if !ok {
		// Nothing to measure against; the row still shows what exists.
		return check
	}

	p.decide(&check, current, policy)
	return check
}

// allowPrerelease decides whether pre-releases stay in: when the user asked
// for them, when the constraint itself pins one, or when a pre-release is
// already installed.
func (p *Planner) allowPrerelease(
	decl domain.Declaration,
	installed domain.Version,
	hasInstalled bool,
	policy domain.UpdatePolicy,
) bool {
	if policy.IncludePrerelease {
		return true
	}
	if base, ok := decl.Spec.BaseVersion(); ok && base.IsPrerelease() {
		return true
	}
	return hasInstalled && installed.IsPrerelease()
}

// candidates filters the registry's version list under the pre-release
// decision.
func (p *Planner) candidates(versions []domain.Version, allowPre bool) []domain.Version {
	if allowPre {
		return versions
	}
	stable := make([]domain.Version, 0, len(versions))
	for _, v := range versions {
		if !v.IsPrerelease() {
			stable = append(stable, v)
		}
	}
	return stable
}

// highestInRange picks the highest candidate satisfying the constraint.
// Unbounded lower-bound constraints are capped to the major series of the
// base or installed version, whichever is higher, so ">=1.2" does not jump
// majors on its own.
func (p *Planner) highestInRange(
	spec domain.Spec,
	versions []domain.Version,
	installed domain.Version,
	hasInstalled bool,
) (domain.Version, bool) {
	capMajor, capped := uint64(0), false
	if spec.Kind == domain.SpecMinimum || spec.Kind == domain.SpecGreaterThan {
		if major, ok := spec.MaxMajor(); ok {
			capMajor, capped = major, true
			if hasInstalled && installed.Major > capMajor {
				capMajor = installed.Major
			}
		}
	}

	var best domain.Version
	found := false
	for _, v := range versions {
		if !spec.Satisfies(v) {
			continue
		}
		if capped && v.Major > capMajor {
			continue
		}
		if !found || domain.Less(best, v) {
			best = v
			found = true
		}
	}
	return best, found
}

// decide picks the target and the replacement text. In-range updates win
// over latest; force mode targets the absolute latest regardless of the
// range. The rewrite is gated by severity: patches always qualify, minors
// only with the policy's consent, majors only under force.
func (p *Planner) decide(check *Check, current domain.Version, policy domain.UpdatePolicy) {
	switch {
	case check.HasInRange && domain.Less(current, check.InRange):
		check.Target = check.InRange
	case check.HasLatest && domain.Less(current, check.Latest):
		check.Target = check.Latest
	default:
		return
	}
	check.HasUpdate = true

	if policy.Force && check.HasLatest && domain.Less(current, check.Latest) {
		check.Target = check.Latest
	}
	check.Severity = domain.ClassifyDelta(current, check.Target)

	if !rewritable(check.Declaration) {
		return
	}
	write := policy.Force
	if !write {
		switch check.Severity {
		case domain.DeltaPatch, domain.DeltaPrerelease:
			write = true
		case domain.DeltaMinor:
			write = policy.AllowMinor
		}
	}
	if write {
		check.NewSpecText = check.Declaration.Spec.WithVersion(check.Target).String()
	}
}

// rewritable reports whether the declaration's constraint can be rewritten
// in place.
func rewritable(decl domain.Declaration) bool {
	if !decl.HasSpan() {
		return false
	}
	switch decl.Spec.Kind {
	case domain.SpecAny, domain.SpecComplex:
		return false
	default:
		return true
	}
}
