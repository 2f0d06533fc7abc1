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
	"fmt"
	"slices"
)

// overriddenPackage records a package excluded from version selection:
// fixed by a local path or a branch/revision constraint.
type overriddenPackage struct {
	ref      PackageReference
	binding  BoundVersion
	products ProductFilter
}

// inputProcessor runs the two-phase intake over the root constraints:
// first local (unversioned) overrides, then branch/revision overrides,
// leaving the version-set constraints to seed the incompatibility store.
type inputProcessor struct {
	cache *containerCache
	pins  PinsMap
	root  Node
}

// process classifies the constraints and returns the override set plus
// the root incompatibilities for every remaining version-based
// constraint. Container fetches for all initially seen packages are
// kicked off concurrently before phase 1 begins.
func (p *inputProcessor) process(ctx context.Context, constraints []Constraint) (map[string]overriddenPackage, []*Incompatibility, error) {
	refs := make([]PackageReference, 0, len(constraints))
	for _, c := range constraints {
		refs = append(refs, c.Package)
	}
	p.cache.startPrefetch(ctx, refs)

	working := slices.Clone(constraints)
	var versioned []Constraint
	overrides := make(map[string]overriddenPackage)

	// Phase 1: local, unversioned packages override everything else.
	for {
		idx := slices.IndexFunc(working, func(c Constraint) bool {
			return c.Requirement.Kind() == RequirementUnversioned
		})
		if idx < 0 {
			break
		}
		constraint := working[idx]
		working = slices.Delete(working, idx, idx+1)

		products := constraint.Products
		if existing, ok := overrides[constraint.Package.Identity]; ok {
			products = existing.products.Union(products)
		}
		overrides[constraint.Package.Identity] = overriddenPackage{
			ref:      constraint.Package,
			binding:  UnversionedBinding(),
			products: products,
		}

		container, err := p.cache.getContainer(ctx, constraint.Package)
		if err != nil {
			return nil, nil, err
		}
		deps, err := container.underlying.GetUnversionedDependencies(ctx, products)
		if err != nil {
			return nil, nil, &ProviderError{Package: constraint.Package, Err: err}
		}

		for _, dep := range deps {
			if dep.Requirement.Kind() == RequirementVersionSet {
				versioned = append(versioned, dep)
				continue
			}
			if _, ok := overrides[dep.Package.Identity]; ok {
				continue
			}
			working = append(working, dep)
		}
	}

	// Phase 2: branch and commit constraints.
	for {
		idx := slices.IndexFunc(working, func(c Constraint) bool {
			return c.Requirement.Kind() == RequirementRevision
		})
		if idx < 0 {
			break
		}
		constraint := working[idx]
		working = slices.Delete(working, idx, idx+1)
		revision, _ := constraint.Requirement.Revision()

		products := constraint.Products
		if existing, ok := overrides[constraint.Package.Identity]; ok {
			if existing.binding.Kind() == BindingUnversioned {
				// A local override beats any revision constraint.
				continue
			}
			if previous, ok := existing.binding.Revision(); ok {
				if previous != revision {
					return nil, nil, &StructuralError{
						Package: constraint.Package,
						Message: fmt.Sprintf("required at two different revisions %s and %s", previous, revision),
					}
				}
				products = existing.products.Union(products)
				overrides[constraint.Package.Identity] = overriddenPackage{
					ref:      constraint.Package,
					binding:  existing.binding,
					products: products,
				}
				continue
			}
		}
		overrides[constraint.Package.Identity] = overriddenPackage{
			ref:      constraint.Package,
			binding:  RevisionBinding(revision),
			products: products,
		}

		// A pin that recorded this very branch carries the commit the
		// branch last resolved to; fetch at that commit instead.
		fetchRevision := revision
		if pin, ok := p.pins[constraint.Package.Identity]; ok &&
			pin.State.Kind == PinBranch && pin.State.Branch == revision {
			fetchRevision = pin.State.Revision
		}

		container, err := p.cache.getContainer(ctx, constraint.Package)
		if err != nil {
			return nil, nil, err
		}
		deps, err := container.underlying.GetRevisionDependencies(ctx, fetchRevision, products)
		if err != nil {
			return nil, nil, &ProviderError{Package: constraint.Package, Err: err}
		}

		for _, dep := range deps {
			switch dep.Requirement.Kind() {
			case RequirementVersionSet:
				versioned = append(versioned, dep)
			case RequirementRevision:
				if _, ok := overrides[dep.Package.Identity]; ok {
					continue
				}
				working = append(working, dep)
			case RequirementUnversioned:
				return nil, nil, &StructuralError{
					Package: constraint.Package,
					Message: fmt.Sprintf("depends on local package %s while fixed to revision %s", dep.Package.Identity, revision),
				}
			}
		}
	}

	// Remaining constraints are version-based: each becomes a
	// dependency of the synthetic root, unless its package was
	// overridden above.
	var rootIncompatibilities []*Incompatibility
	for _, constraint := range append(working, versioned...) {
		if _, ok := overrides[constraint.Package.Identity]; ok {
			continue
		}
		set, ok := constraint.Requirement.VersionSet()
		if !ok {
			return nil, nil, &InternalError{
				Message: fmt.Sprintf("unexpected non-version constraint %s after intake", constraint),
			}
		}
		inc, err := NewIncompatibility([]Term{
			NewTerm(p.root, ExactSet(rootVersion())),
			NewNegativeTerm(constraint.node(), set),
		}, KindDependency)
		if err != nil {
			return nil, nil, err
		}
		inc.FromNode = p.root
		rootIncompatibilities = append(rootIncompatibilities, inc)
	}

	return overrides, rootIncompatibilities, nil
}

// rootVersion is the synthetic version the resolution root is fixed to.
func rootVersion() Version {
	return MustVersion("1.0.0")
}
