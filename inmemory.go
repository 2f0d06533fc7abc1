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
	"sync"
)

// InMemoryProvider is an in-memory ContainerProvider for tests and
// simple use cases: all versions, dependencies, revisions and tools
// versions live in memory, no I/O happens.
//
// Example:
//
//	provider := NewInMemoryProvider()
//	a := RemoteRef("a", "https://example.com/a")
//	b := RemoteRef("b", "https://example.com/b")
//	provider.AddVersion(a, MustVersion("1.0.0"), []Constraint{
//	    NewConstraint(b, VersionSetRequirement(MustParseVersionSet(">=1.0.0, <2.0.0")), EverythingFilter()),
//	})
//	provider.AddVersion(b, MustVersion("1.1.0"), nil)
type InMemoryProvider struct {
	mu       sync.Mutex
	packages map[string]*inMemoryPackage

	// containerCalls counts GetContainer invocations, so tests can
	// verify fetch coalescing.
	containerCalls int
}

type inMemoryPackage struct {
	ref         PackageReference
	versions    map[string][]Constraint
	tools       map[string]Version
	incompat    map[string]bool
	revisions   map[string][]Constraint
	unversioned []Constraint
	rewrite     func(BoundVersion) PackageReference
}

// NewInMemoryProvider creates an empty provider.
func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{packages: make(map[string]*inMemoryPackage)}
}

func (p *InMemoryProvider) pkg(ref PackageReference) *inMemoryPackage {
	entry, ok := p.packages[ref.Identity]
	if !ok {
		entry = &inMemoryPackage{
			ref:       ref,
			versions:  make(map[string][]Constraint),
			tools:     make(map[string]Version),
			incompat:  make(map[string]bool),
			revisions: make(map[string][]Constraint),
		}
		p.packages[ref.Identity] = entry
	}
	return entry
}

// AddVersion publishes a version of a package with its dependencies.
func (p *InMemoryProvider) AddVersion(ref PackageReference, version Version, deps []Constraint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pkg(ref).versions[version.String()] = deps
}

// SetToolsVersion marks the tools version declared at a package
// version and whether it is compatible.
func (p *InMemoryProvider) SetToolsVersion(ref PackageReference, version Version, tools Version, compatible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry := p.pkg(ref)
	entry.tools[version.String()] = tools
	entry.incompat[version.String()] = !compatible
}

// AddRevision publishes the dependencies visible at a branch or commit.
func (p *InMemoryProvider) AddRevision(ref PackageReference, revision string, deps []Constraint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pkg(ref).revisions[revision] = deps
}

// SetUnversionedDependencies sets the dependencies of a local checkout.
func (p *InMemoryProvider) SetUnversionedDependencies(ref PackageReference, deps []Constraint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pkg(ref).unversioned = deps
}

// SetIdentityRewrite installs an identity rewrite applied once a
// binding settles.
func (p *InMemoryProvider) SetIdentityRewrite(ref PackageReference, rewrite func(BoundVersion) PackageReference) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pkg(ref).rewrite = rewrite
}

// ContainerCalls reports how many times GetContainer ran.
func (p *InMemoryProvider) ContainerCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.containerCalls
}

// GetContainer implements ContainerProvider.
func (p *InMemoryProvider) GetContainer(_ context.Context, ref PackageReference, _ bool) (Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.containerCalls++

	entry, ok := p.packages[ref.Identity]
	if !ok {
		return nil, fmt.Errorf("package %s not found", ref.Identity)
	}
	return &inMemoryContainer{pkg: entry}, nil
}

type inMemoryContainer struct {
	pkg *inMemoryPackage
}

// VersionsDescending implements Container.
func (c *inMemoryContainer) VersionsDescending() ([]Version, error) {
	versions := make([]Version, 0, len(c.pkg.versions))
	for raw := range c.pkg.versions {
		versions = append(versions, MustVersion(raw))
	}
	slices.SortFunc(versions, func(a, b Version) int {
		return b.Compare(a)
	})
	return versions, nil
}

// GetDependencies implements Container.
func (c *inMemoryContainer) GetDependencies(_ context.Context, version Version, filter ProductFilter) ([]Constraint, error) {
	deps, ok := c.pkg.versions[version.String()]
	if !ok {
		return nil, fmt.Errorf("package %s version %s not found", c.pkg.ref.Identity, version)
	}
	return filterConstraints(deps, filter), nil
}

// GetRevisionDependencies implements Container.
func (c *inMemoryContainer) GetRevisionDependencies(_ context.Context, revision string, filter ProductFilter) ([]Constraint, error) {
	deps, ok := c.pkg.revisions[revision]
	if !ok {
		return nil, fmt.Errorf("package %s revision %s not found", c.pkg.ref.Identity, revision)
	}
	return filterConstraints(deps, filter), nil
}

// GetUnversionedDependencies implements Container.
func (c *inMemoryContainer) GetUnversionedDependencies(_ context.Context, filter ProductFilter) ([]Constraint, error) {
	return filterConstraints(c.pkg.unversioned, filter), nil
}

// IsToolsVersionCompatible implements Container.
func (c *inMemoryContainer) IsToolsVersionCompatible(version Version) bool {
	return !c.pkg.incompat[version.String()]
}

// ToolsVersion implements Container.
func (c *inMemoryContainer) ToolsVersion(version Version) Version {
	if tools, ok := c.pkg.tools[version.String()]; ok {
		return tools
	}
	return MustVersion("5.0.0")
}

// UpdatedIdentifier implements Container.
func (c *inMemoryContainer) UpdatedIdentifier(bound BoundVersion) (PackageReference, error) {
	if c.pkg.rewrite != nil {
		return c.pkg.rewrite(bound), nil
	}
	return c.pkg.ref, nil
}

// filterConstraints is the product-filter pass-through: the fixture
// stores one flat dependency list per version and ignores the filter,
// returning a copy of every constraint.
func filterConstraints(deps []Constraint, _ ProductFilter) []Constraint {
	return slices.Clone(deps)
}

var _ ContainerProvider = (*InMemoryProvider)(nil)
var _ Container = (*inMemoryContainer)(nil)
