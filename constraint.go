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

import "fmt"

// RequirementKind tags the three ways a dependency can be pinned down.
type RequirementKind int

const (
	// RequirementVersionSet constrains to a set of semantic versions.
	RequirementVersionSet RequirementKind = iota
	// RequirementRevision constrains to a branch name or commit hash.
	RequirementRevision
	// RequirementUnversioned constrains to a local, unversioned checkout.
	RequirementUnversioned
)

// Requirement is what a constraint demands of a package: a version set,
// a revision, or an unversioned local override.
type Requirement struct {
	kind     RequirementKind
	versions VersionSet
	revision string
}

// VersionSetRequirement creates a version-based requirement.
func VersionSetRequirement(set VersionSet) Requirement {
	return Requirement{kind: RequirementVersionSet, versions: set}
}

// RevisionRequirement creates a branch or commit requirement.
func RevisionRequirement(revision string) Requirement {
	return Requirement{kind: RequirementRevision, revision: revision}
}

// UnversionedRequirement creates a local-override requirement.
func UnversionedRequirement() Requirement {
	return Requirement{kind: RequirementUnversioned}
}

// Kind returns the requirement's kind tag.
func (r Requirement) Kind() RequirementKind {
	return r.kind
}

// VersionSet returns the required version set for version-based
// requirements.
func (r Requirement) VersionSet() (VersionSet, bool) {
	if r.kind != RequirementVersionSet {
		return VersionSet{}, false
	}
	return r.versions, true
}

// Revision returns the required revision for revision requirements.
func (r Requirement) Revision() (string, bool) {
	if r.kind != RequirementRevision {
		return "", false
	}
	return r.revision, true
}

func (r Requirement) String() string {
	switch r.kind {
	case RequirementVersionSet:
		return r.versions.String()
	case RequirementRevision:
		return fmt.Sprintf("revision(%s)", r.revision)
	case RequirementUnversioned:
		return "unversioned"
	default:
		return "unknown"
	}
}

// Constraint is one declared dependency edge: a package, what is
// required of it, and which of its products the depender consumes.
type Constraint struct {
	Package     PackageReference
	Requirement Requirement
	Products    ProductFilter
}

// NewConstraint assembles a constraint.
func NewConstraint(pkg PackageReference, req Requirement, filter ProductFilter) Constraint {
	return Constraint{Package: pkg, Requirement: req, Products: filter}
}

// node returns the resolution node the constraint binds.
func (c Constraint) node() Node {
	return ProductNode(c.Package, c.Products)
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s %s", c.Package.Identity, c.Requirement)
}

// BindingKind tags the shape of a final version binding.
type BindingKind int

const (
	// BindingVersion binds a package to one exact version.
	BindingVersion BindingKind = iota
	// BindingRevision binds a package to a branch or commit.
	BindingRevision
	// BindingUnversioned binds a package to a local checkout.
	BindingUnversioned
	// BindingExcluded marks a package proven unusable.
	BindingExcluded
)

// BoundVersion is the resolved state of one package: an exact version,
// a revision, a local override, or an exclusion.
type BoundVersion struct {
	kind     BindingKind
	version  Version
	revision string
}

// VersionBinding binds to an exact version.
func VersionBinding(v Version) BoundVersion {
	return BoundVersion{kind: BindingVersion, version: v}
}

// RevisionBinding binds to a branch or commit.
func RevisionBinding(revision string) BoundVersion {
	return BoundVersion{kind: BindingRevision, revision: revision}
}

// UnversionedBinding binds to a local checkout.
func UnversionedBinding() BoundVersion {
	return BoundVersion{kind: BindingUnversioned}
}

// ExcludedBinding marks a package proven unusable.
func ExcludedBinding() BoundVersion {
	return BoundVersion{kind: BindingExcluded}
}

// Kind returns the binding's kind tag.
func (b BoundVersion) Kind() BindingKind {
	return b.kind
}

// Version returns the bound version for version bindings.
func (b BoundVersion) Version() (Version, bool) {
	if b.kind != BindingVersion {
		return nil, false
	}
	return b.version, true
}

// Revision returns the bound revision for revision bindings.
func (b BoundVersion) Revision() (string, bool) {
	if b.kind != BindingRevision {
		return "", false
	}
	return b.revision, true
}

// Equal reports whether two bindings are the same.
func (b BoundVersion) Equal(other BoundVersion) bool {
	if b.kind != other.kind {
		return false
	}
	switch b.kind {
	case BindingVersion:
		return versionsEqual(b.version, other.version)
	case BindingRevision:
		return b.revision == other.revision
	default:
		return true
	}
}

func (b BoundVersion) String() string {
	switch b.kind {
	case BindingVersion:
		return b.version.String()
	case BindingRevision:
		return fmt.Sprintf("revision(%s)", b.revision)
	case BindingUnversioned:
		return "unversioned"
	case BindingExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// PinStateKind tags the shape of a persisted pin.
type PinStateKind int

const (
	// PinVersion records a previously selected exact version.
	PinVersion PinStateKind = iota
	// PinBranch records a branch name with the commit it resolved to.
	PinBranch
	// PinRevision records a bare commit.
	PinRevision
)

// PinState is the recorded state of a pin.
type PinState struct {
	Kind     PinStateKind
	Version  Version
	Branch   string
	Revision string
}

// Pin is a persisted record of a previously chosen version, branch, or
// revision. Pins are hints for preferring a specific version, never hard
// constraints.
type Pin struct {
	Ref   PackageReference
	State PinState
}

// PinsMap indexes pins by package identity.
type PinsMap map[string]Pin

// ResolvedBinding is one entry of a successful solve: a package, its
// binding, and the union of product filters it was reached through.
type ResolvedBinding struct {
	Package  PackageReference
	Binding  BoundVersion
	Products ProductFilter
}

func (r ResolvedBinding) String() string {
	return fmt.Sprintf("%s %s", r.Package.Identity, r.Binding)
}
