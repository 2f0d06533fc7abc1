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
	"testing"
)

func TestVersionSetContains(t *testing.T) {
	set := RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0"))

	if !set.Contains(MustVersion("1.0.0")) {
		t.Fatalf("expected lower bound to be included")
	}
	if !set.Contains(MustVersion("1.5.0")) {
		t.Fatalf("expected 1.5.0 to be included")
	}
	if set.Contains(MustVersion("2.0.0")) {
		t.Fatalf("expected upper bound to be excluded")
	}
	if set.Contains(MustVersion("0.9.9")) {
		t.Fatalf("expected 0.9.9 to be excluded")
	}
}

func TestVersionSetEmptyRange(t *testing.T) {
	set := RangeSet(MustVersion("1.0.0"), MustVersion("1.0.0"))
	if !set.IsEmpty() {
		t.Fatalf("expected range(v..v) to be empty, got %s", set)
	}
}

func TestVersionSetExactInsideRange(t *testing.T) {
	exact := ExactSet(MustVersion("1.5.0"))
	inside := RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0"))
	outside := RangeSet(MustVersion("2.0.0"), MustVersion("3.0.0"))

	if !exact.IsSubsetOf(inside) {
		t.Fatalf("expected exact(1.5.0) to be a subset of [1.0.0, 2.0.0)")
	}
	if exact.IsSubsetOf(outside) {
		t.Fatalf("expected exact(1.5.0) not to be a subset of [2.0.0, 3.0.0)")
	}
}

func TestVersionSetUnionFusesAdjacentRanges(t *testing.T) {
	a := RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0"))
	b := RangeSet(MustVersion("2.0.0"), MustVersion("3.0.0"))

	union := a.Union(b)
	want := RangeSet(MustVersion("1.0.0"), MustVersion("3.0.0"))
	if !union.Equal(want) {
		t.Fatalf("expected %s, got %s", want, union)
	}
}

func TestVersionSetIntersectDisjoint(t *testing.T) {
	a := RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0"))
	b := RangeSet(MustVersion("2.0.0"), MustVersion("3.0.0"))

	if !a.Intersect(b).IsEmpty() {
		t.Fatalf("expected disjoint intersection to be empty")
	}
	if !a.IsDisjoint(b) {
		t.Fatalf("expected sets to be disjoint")
	}
}

func TestVersionSetComplementLaws(t *testing.T) {
	sets := []VersionSet{
		EmptySet(),
		AnySet(),
		ExactSet(MustVersion("1.0.0")),
		RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0")),
		MustParseVersionSet("<1.0.0 || >=2.0.0"),
	}

	for _, s := range sets {
		if !s.Intersect(s.Complement()).IsEmpty() {
			t.Fatalf("expected %s ∩ ¬%s to be empty", s, s)
		}
		if !s.Union(s.Complement()).IsAny() {
			t.Fatalf("expected %s ∪ ¬%s to be the full set", s, s)
		}
		if !s.Complement().Complement().Equal(s) {
			t.Fatalf("expected double complement of %s to round-trip", s)
		}
	}
}

func TestVersionSetDifferenceLaw(t *testing.T) {
	a := MustParseVersionSet(">=1.0.0, <3.0.0")
	b := MustParseVersionSet(">=2.0.0, <4.0.0")

	recombined := a.Difference(b).Union(a.Intersect(b))
	if !recombined.Equal(a) {
		t.Fatalf("expected difference ∪ intersection to equal %s, got %s", a, recombined)
	}
}

func TestVersionSetRelation(t *testing.T) {
	a := RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0"))
	wider := RangeSet(MustVersion("0.5.0"), MustVersion("3.0.0"))
	apart := RangeSet(MustVersion("4.0.0"), MustVersion("5.0.0"))
	overlapping := RangeSet(MustVersion("1.5.0"), MustVersion("2.5.0"))

	if rel := a.Relation(wider); rel != RelationSubset {
		t.Fatalf("expected subset, got %d", rel)
	}
	if rel := a.Relation(apart); rel != RelationDisjoint {
		t.Fatalf("expected disjoint, got %d", rel)
	}
	if rel := a.Relation(overlapping); rel != RelationOverlap {
		t.Fatalf("expected overlap, got %d", rel)
	}
}

func TestVersionSetPrereleaseOrdering(t *testing.T) {
	set := RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0"))

	if set.Contains(MustVersion("1.0.0-alpha")) {
		t.Fatalf("expected 1.0.0-alpha to sort before 1.0.0")
	}
	if !set.Contains(MustVersion("1.5.0-alpha")) {
		t.Fatalf("expected 1.5.0-alpha to lie inside the range")
	}

	alpha := ExactSet(MustVersion("2.0.0-alpha"))
	if !alpha.IsSubsetOf(set.Union(alpha)) {
		t.Fatalf("expected union to contain the prerelease")
	}
	if set.Contains(MustVersion("2.0.0-alpha")) == false {
		// 2.0.0-alpha < 2.0.0 per semver, so the half-open range holds it.
		t.Fatalf("expected 2.0.0-alpha to precede the exclusive upper bound")
	}
}

func TestVersionSetAsSingleVersion(t *testing.T) {
	if v, ok := ExactSet(MustVersion("1.2.3")).AsSingleVersion(); !ok || v.String() != "1.2.3" {
		t.Fatalf("expected single version 1.2.3, got %v ok=%v", v, ok)
	}
	if _, ok := RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0")).AsSingleVersion(); ok {
		t.Fatalf("expected a range not to collapse to a single version")
	}
}

func TestParseVersionSet(t *testing.T) {
	cases := []struct {
		input string
		want  VersionSet
	}{
		{"*", AnySet()},
		{"", AnySet()},
		{"1.2.3", ExactSet(MustVersion("1.2.3"))},
		{"==1.2.3", ExactSet(MustVersion("1.2.3"))},
		{">=1.0.0, <2.0.0", RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0"))},
		{"<1.0.0 || >=2.0.0", RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0")).Complement()},
		{"!=1.0.0", ExactSet(MustVersion("1.0.0")).Complement()},
	}

	for _, tc := range cases {
		got, err := ParseVersionSet(tc.input)
		if err != nil {
			t.Fatalf("ParseVersionSet(%q) returned error: %v", tc.input, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseVersionSet(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}

	if _, err := ParseVersionSet(">=not-a-version"); err == nil {
		t.Fatalf("expected error for invalid version")
	}
}
