// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package depsolver

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// packageContainer is the resolver's view of one package: it memoizes
// the provider's version list and per-version dependencies, knows the
// pinned version if any, and computes the incompatibilities a chosen
// version introduces.
//
// Instances live for one solve: each Solve call builds a new container
// cache, so no container, memoization table or emitted bound is shared
// between solves.
type packageContainer struct {
	ref           PackageReference
	underlying    Container
	pinned        Version
	boundsTimeout time.Duration

	versionsOnce sync.Once
	versions     []Version
	versionsErr  error

	depsFlight singleflight.Group

	mu            sync.Mutex
	depsMemo      map[string][]Constraint
	emitted       map[string]VersionSet
	emittedPinned bool
	boundsSkipped int
}

func newPackageContainer(ref PackageReference, underlying Container, pinned Version, boundsTimeout time.Duration) *packageContainer {
	return &packageContainer{
		ref:           ref,
		underlying:    underlying,
		pinned:        pinned,
		boundsTimeout: boundsTimeout,
		depsMemo:      make(map[string][]Constraint),
		emitted:       make(map[string]VersionSet),
	}
}

// versionsDescending memoizes the provider's version list, newest first.
func (c *packageContainer) versionsDescending() ([]Version, error) {
	c.versionsOnce.Do(func() {
		c.versions, c.versionsErr = c.underlying.VersionsDescending()
	})
	return c.versions, c.versionsErr
}

func (c *packageContainer) versionsAscending() ([]Version, error) {
	descending, err := c.versionsDescending()
	if err != nil {
		return nil, err
	}
	ascending := make([]Version, len(descending))
	for i, v := range descending {
		ascending[len(descending)-1-i] = v
	}
	return ascending, nil
}

// versionCount returns how many selectable versions lie in the set. A
// pin satisfying the set short-circuits to 1: the pinned version will be
// proposed first, so the package is maximally constrained.
func (c *packageContainer) versionCount(set VersionSet) (int, error) {
	if c.pinned != nil && set.Contains(c.pinned) {
		return 1, nil
	}

	versions, err := c.versionsDescending()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, v := range versions {
		if set.Contains(v) {
			count++
		}
	}
	return count, nil
}

// bestAvailableVersion proposes the version to decide for a term: the
// pin when it satisfies the term, otherwise the highest published
// version the term allows.
func (c *packageContainer) bestAvailableVersion(term Term) (Version, bool, error) {
	set := term.versions
	if c.pinned != nil && set.Contains(c.pinned) {
		return c.pinned, true, nil
	}

	versions, err := c.versionsDescending()
	if err != nil {
		return nil, false, err
	}
	for _, v := range versions {
		if set.Contains(v) {
			return v, true, nil
		}
	}
	return nil, false, nil
}

// dependencies fetches and memoizes the constraints declared at a
// version under a filter. Concurrent bounds walks share one fetch per
// key.
func (c *packageContainer) dependencies(ctx context.Context, version Version, filter ProductFilter) ([]Constraint, error) {
	key := version.String() + "|" + filter.key()

	c.mu.Lock()
	if deps, ok := c.depsMemo[key]; ok {
		c.mu.Unlock()
		return deps, nil
	}
	c.mu.Unlock()

	result, err, _ := c.depsFlight.Do(key, func() (any, error) {
		deps, err := c.underlying.GetDependencies(ctx, version, filter)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.depsMemo[key] = deps
		c.mu.Unlock()
		return deps, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Constraint), nil
}

// incompatibilitiesAt computes the incompatibilities introduced by
// deciding the given version for the node.
func (c *packageContainer) incompatibilitiesAt(ctx context.Context, version Version, node Node, overridden map[string]overriddenPackage) ([]*Incompatibility, error) {
	if !c.underlying.IsToolsVersionCompatible(version) {
		bounds, err := c.incompatibleToolsBounds(version)
		if err != nil {
			return nil, err
		}
		inc, err := NewIncompatibility([]Term{NewTerm(node, bounds)}, KindIncompatibleToolsVersion)
		if err != nil {
			return nil, err
		}
		inc.ToolsVersion = c.underlying.ToolsVersion(version)
		return []*Incompatibility{inc}, nil
	}

	deps, err := c.dependencies(ctx, version, node.ProductFilter())
	if err != nil {
		return nil, err
	}

	for _, dep := range deps {
		if dep.Requirement.Kind() == RequirementVersionSet {
			continue
		}
		inc, err := NewIncompatibility([]Term{NewTerm(node, ExactSet(version))}, KindUnversionedDependency)
		if err != nil {
			return nil, err
		}
		inc.Parent = c.ref
		inc.Child = dep.Package
		return []*Incompatibility{inc}, nil
	}

	c.mu.Lock()
	filtered := make([]Constraint, 0, len(deps))
	for _, dep := range deps {
		if dep.Package.Identity == c.ref.Identity {
			continue
		}
		if _, ok := overridden[dep.Package.Identity]; ok {
			continue
		}
		if bound, ok := c.emitted[dep.Package.Identity]; ok && bound.Contains(version) {
			continue
		}
		filtered = append(filtered, dep)
	}
	fastPath := c.pinned != nil && version.Equal(c.pinned) && len(c.emitted) == 0 && !c.emittedPinned
	c.mu.Unlock()

	var result []*Incompatibility

	// Variants of the same package must agree on version: a node reached
	// through a specific product filter locks itself to the package's
	// everything-node.
	if !node.IsRoot() && !node.ProductFilter().IsEverything() {
		lock, err := NewIncompatibility([]Term{
			NewTerm(node, ExactSet(version)),
			NewNegativeTerm(node.everythingNode(), ExactSet(version)),
		}, KindDependency)
		if err != nil {
			return nil, err
		}
		lock.FromNode = node
		result = append(result, lock)
	}

	if fastPath {
		// Pinned-version fast path: the pin came from a previously
		// working resolution, so emit the narrowest possible depender
		// range and skip bounds computation entirely.
		for _, dep := range filtered {
			depSet, _ := dep.Requirement.VersionSet()
			inc, err := NewIncompatibility([]Term{
				NewTerm(node, ExactSet(version)),
				NewNegativeTerm(dep.node(), depSet),
			}, KindDependency)
			if err != nil {
				return nil, err
			}
			inc.FromNode = node
			result = append(result, inc)
		}
		c.mu.Lock()
		c.emittedPinned = true
		c.boundsSkipped++
		c.mu.Unlock()
		return result, nil
	}

	lowerBounds, upperBounds, err := c.computeBounds(ctx, filtered, version, node.ProductFilter())
	if err != nil {
		return nil, err
	}

	for _, dep := range filtered {
		lower, ok := lowerBounds[dep.Package.Identity]
		if !ok {
			lower = zeroVersion()
		}
		upper, ok := upperBounds[dep.Package.Identity]
		if !ok {
			upper = nextMajor(version)
		}
		dependerRange := RangeSet(lower, upper)

		depSet, _ := dep.Requirement.VersionSet()
		inc, err := NewIncompatibility([]Term{
			NewTerm(node, dependerRange),
			NewNegativeTerm(dep.node(), depSet),
		}, KindDependency)
		if err != nil {
			return nil, err
		}
		inc.FromNode = node
		result = append(result, inc)

		c.mu.Lock()
		if existing, ok := c.emitted[dep.Package.Identity]; ok {
			c.emitted[dep.Package.Identity] = existing.Union(dependerRange)
		} else {
			c.emitted[dep.Package.Identity] = dependerRange
		}
		c.mu.Unlock()
	}

	return result, nil
}

// incompatibleToolsBounds computes the contiguous range of versions
// around the given one whose tools versions are also incompatible. Walk
// ends are widened to sentinels so a diagnostic covers the whole
// affected release line rather than a single version.
func (c *packageContainer) incompatibleToolsBounds(version Version) (VersionSet, error) {
	ascending, err := c.versionsAscending()
	if err != nil {
		return VersionSet{}, err
	}

	idx := slices.IndexFunc(ascending, func(v Version) bool { return v.Equal(version) })
	if idx < 0 {
		return ExactSet(version), nil
	}

	lower := zeroVersion()
	for i := idx - 1; i >= 0; i-- {
		if c.underlying.IsToolsVersionCompatible(ascending[i]) {
			lower = ascending[i+1]
			break
		}
	}

	upper := nextMajor(version)
	for i := idx + 1; i < len(ascending); i++ {
		if c.underlying.IsToolsVersionCompatible(ascending[i]) {
			upper = ascending[i]
			break
		}
	}

	return RangeSet(lower, upper), nil
}

// computeBounds finds, for every dependency, the maximal half-open
// interval [lower, upper) around fromVersion over which the dependency
// edge is stable: every version in the interval has a compatible tools
// version and declares the dependency with an equivalent requirement.
//
// The per-dependency upper and lower scans run in parallel under a
// bounded deadline; each scan writes only its own key, so the result is
// identical to a serial walk regardless of scheduling.
func (c *packageContainer) computeBounds(ctx context.Context, deps []Constraint, fromVersion Version, filter ProductFilter) (map[string]Version, map[string]Version, error) {
	lowerBounds := make(map[string]Version, len(deps))
	upperBounds := make(map[string]Version, len(deps))
	if len(deps) == 0 {
		return lowerBounds, upperBounds, nil
	}

	ascending, err := c.versionsAscending()
	if err != nil {
		return nil, nil, err
	}

	from := slices.IndexFunc(ascending, func(v Version) bool { return v.Equal(fromVersion) })
	var newer, older []Version
	if from >= 0 {
		newer = ascending[from+1:]
		older = ascending[:from]
	}

	timeout := c.boundsTimeout
	if timeout <= 0 {
		timeout = defaultBoundsTimeout
	}
	boundsCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mu sync.Mutex
	group, gctx := errgroup.WithContext(boundsCtx)

	for _, dep := range deps {
		group.Go(func() error {
			// Ascending walk over strictly newer versions: the first
			// version that breaks the edge is the exclusive upper bound.
			for _, v := range newer {
				if err := gctx.Err(); err != nil {
					return err
				}
				stable, err := c.edgeStableAt(gctx, v, dep, filter)
				if err != nil {
					return err
				}
				if !stable {
					mu.Lock()
					upperBounds[dep.Package.Identity] = v
					mu.Unlock()
					break
				}
			}
			return nil
		})

		group.Go(func() error {
			// Descending walk over strictly older versions: the last
			// version before the edge breaks is the inclusive lower bound.
			previous := fromVersion
			for i := len(older) - 1; i >= 0; i-- {
				if err := gctx.Err(); err != nil {
					return err
				}
				v := older[i]
				stable, err := c.edgeStableAt(gctx, v, dep, filter)
				if err != nil {
					return err
				}
				if !stable {
					mu.Lock()
					lowerBounds[dep.Package.Identity] = previous
					mu.Unlock()
					break
				}
				previous = v
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		if boundsCtx.Err() == context.DeadlineExceeded {
			return nil, nil, &TimeoutError{Package: c.ref}
		}
		return nil, nil, err
	}
	return lowerBounds, upperBounds, nil
}

// edgeStableAt reports whether the dependency edge is unchanged at v:
// compatible tools version and an equivalent declaration of dep.
func (c *packageContainer) edgeStableAt(ctx context.Context, v Version, dep Constraint, filter ProductFilter) (bool, error) {
	if !c.underlying.IsToolsVersionCompatible(v) {
		return false, nil
	}
	declared, err := c.dependencies(ctx, v, filter)
	if err != nil {
		return false, err
	}
	for _, candidate := range declared {
		if candidate.Package.Identity != dep.Package.Identity {
			continue
		}
		return requirementsEquivalent(candidate, dep), nil
	}
	return false, nil
}

// requirementsEquivalent compares two declarations of the same
// dependency. Version sets compare canonically rather than textually,
// so reordered but equal range lists still count as the same edge.
func requirementsEquivalent(a, b Constraint) bool {
	if a.Requirement.Kind() != b.Requirement.Kind() {
		return false
	}
	if a.Products.key() != b.Products.key() {
		return false
	}
	switch a.Requirement.Kind() {
	case RequirementVersionSet:
		as, _ := a.Requirement.VersionSet()
		bs, _ := b.Requirement.VersionSet()
		return as.Equal(bs)
	case RequirementRevision:
		ar, _ := a.Requirement.Revision()
		br, _ := b.Requirement.Revision()
		return ar == br
	default:
		return true
	}
}
