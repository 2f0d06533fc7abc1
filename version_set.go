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
	"fmt"
	"strings"
)

// VersionSet is a set of versions held as canonical spans: sorted,
// non-empty, with no pair that overlaps or touches. Sets are immutable;
// every operation returns a new instance, and canonical form makes
// structural comparison equivalent to set equality.
//
// The algebra is closed under union, intersection, complement (within
// the universe of all versions) and difference. Union and complement
// are primitive; intersection is their De Morgan dual, and the
// containment predicates reduce to emptiness checks on derived sets.
//
// Example:
//
//	a := RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0")) // >=1.0.0, <2.0.0
//	b := RangeSet(MustVersion("1.5.0"), MustVersion("3.0.0"))
//	a.Union(b)     // >=1.0.0, <3.0.0
//	a.Intersect(b) // >=1.5.0, <2.0.0
type VersionSet struct {
	spans []span
}

// SetRelation describes how one version set relates to another.
type SetRelation int

const (
	// RelationSubset means every version of the set is in the other.
	RelationSubset SetRelation = iota
	// RelationDisjoint means the sets share no version.
	RelationDisjoint
	// RelationOverlap means the sets intersect without containment.
	RelationOverlap
)

// EmptySet returns the set containing no versions.
func EmptySet() VersionSet {
	return VersionSet{}
}

// AnySet returns the set containing all possible versions.
func AnySet() VersionSet {
	return VersionSet{spans: []span{{}}}
}

// ExactSet returns the set containing exactly one version.
func ExactSet(version Version) VersionSet {
	if version == nil {
		return VersionSet{}
	}
	return VersionSet{spans: []span{{lo: version, hi: version}}}
}

// RangeSet returns the half-open range [lower, upper). A nil lower or
// upper leaves that side unbounded; an equal pair of bounds yields the
// empty set.
func RangeSet(lower, upper Version) VersionSet {
	return setOf(span{lo: lower, hi: upper, hiOpen: upper != nil})
}

// setOf wraps a single span, discarding it when empty.
func setOf(sp span) VersionSet {
	if sp.isEmpty() {
		return VersionSet{}
	}
	return VersionSet{spans: []span{sp}}
}

// Union returns the set of versions in either this set or the other.
// Adjacent and overlapping ranges fuse.
func (s VersionSet) Union(other VersionSet) VersionSet {
	if len(s.spans) == 0 {
		return other
	}
	if len(other.spans) == 0 {
		return s
	}
	combined := make([]span, 0, len(s.spans)+len(other.spans))
	combined = append(combined, s.spans...)
	combined = append(combined, other.spans...)
	return VersionSet{spans: normalizeSpans(combined)}
}

// Complement returns the set of versions NOT in this set, within the
// universe of all versions: the gaps between the spans, plus whatever
// lies beyond the first and last edge.
func (s VersionSet) Complement() VersionSet {
	if len(s.spans) == 0 {
		return AnySet()
	}

	out := make([]span, 0, len(s.spans)+1)
	cursor := span{}
	unbounded := true

	for _, sp := range s.spans {
		if sp.lo != nil {
			gap := cursor
			gap.hi, gap.hiOpen = sp.lo, !sp.loOpen
			if !gap.isEmpty() {
				out = append(out, gap)
			}
		}
		if sp.hi == nil {
			unbounded = false
			break
		}
		cursor = span{lo: sp.hi, loOpen: !sp.hiOpen}
	}
	if unbounded {
		out = append(out, cursor)
	}

	// The gaps of a canonical set are themselves canonical.
	return VersionSet{spans: out}
}

// Intersect returns the set of versions in both this set and the
// other, as the De Morgan dual of union.
func (s VersionSet) Intersect(other VersionSet) VersionSet {
	if len(s.spans) == 0 || len(other.spans) == 0 {
		return VersionSet{}
	}
	return s.Complement().Union(other.Complement()).Complement()
}

// Difference returns the versions in this set but not in other.
func (s VersionSet) Difference(other VersionSet) VersionSet {
	return s.Intersect(other.Complement())
}

// Contains tests if a specific version is in the set.
func (s VersionSet) Contains(version Version) bool {
	for _, sp := range s.spans {
		if sp.has(version) {
			return true
		}
	}
	return false
}

// IsEmpty returns true if the set contains no versions.
func (s VersionSet) IsEmpty() bool {
	return len(s.spans) == 0
}

// IsAny returns true if the set contains every version.
func (s VersionSet) IsAny() bool {
	return len(s.spans) == 1 && s.spans[0].lo == nil && s.spans[0].hi == nil
}

// IsSubsetOf returns true if all versions in this set are also in
// other. The empty set is a subset of everything.
func (s VersionSet) IsSubsetOf(other VersionSet) bool {
	return s.Difference(other).IsEmpty()
}

// IsDisjoint returns true if this set and other share no version.
func (s VersionSet) IsDisjoint(other VersionSet) bool {
	return s.Intersect(other).IsEmpty()
}

// Relation classifies this set against other: subset if s ⊆ other,
// disjoint if the intersection is empty, overlap otherwise.
func (s VersionSet) Relation(other VersionSet) SetRelation {
	if s.IsSubsetOf(other) {
		return RelationSubset
	}
	if s.IsDisjoint(other) {
		return RelationDisjoint
	}
	return RelationOverlap
}

// Equal reports whether the two sets describe the same versions.
// Canonical form makes this a structural comparison.
func (s VersionSet) Equal(other VersionSet) bool {
	if len(s.spans) != len(other.spans) {
		return false
	}
	for i, sp := range s.spans {
		o := other.spans[i]
		if !versionsEqual(sp.lo, o.lo) || !versionsEqual(sp.hi, o.hi) {
			return false
		}
		if sp.lo != nil && sp.loOpen != o.loOpen {
			return false
		}
		if sp.hi != nil && sp.hiOpen != o.hiOpen {
			return false
		}
	}
	return true
}

// AsSingleVersion extracts the version if the set contains exactly one.
func (s VersionSet) AsSingleVersion() (Version, bool) {
	sp, ok := s.asSpan()
	if !ok || sp.lo == nil || sp.hi == nil {
		return nil, false
	}
	if sp.loOpen || sp.hiOpen || sp.lo.Compare(sp.hi) != 0 {
		return nil, false
	}
	return sp.lo, true
}

// asSpan exposes the sole span of a single-run set.
func (s VersionSet) asSpan() (span, bool) {
	if len(s.spans) != 1 {
		return span{}, false
	}
	return s.spans[0], true
}

// String returns a human-readable representation of the set. Empty sets
// display as "∅", full sets as "*", and runs use range operators.
func (s VersionSet) String() string {
	if len(s.spans) == 0 {
		return "∅"
	}
	parts := make([]string, len(s.spans))
	for i, sp := range s.spans {
		parts[i] = sp.String()
	}
	return strings.Join(parts, " || ")
}

// String renders one span with comparison operators.
func (sp span) String() string {
	if sp.lo != nil && sp.hi != nil &&
		!sp.loOpen && !sp.hiOpen && sp.lo.Compare(sp.hi) == 0 {
		return fmt.Sprintf("==%s", sp.lo)
	}

	var parts []string
	if sp.lo != nil {
		op := ">="
		if sp.loOpen {
			op = ">"
		}
		parts = append(parts, op+sp.lo.String())
	}
	if sp.hi != nil {
		op := "<="
		if sp.hiOpen {
			op = "<"
		}
		parts = append(parts, op+sp.hi.String())
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ", ")
}
