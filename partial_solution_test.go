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

import "testing"

func TestPartialSolutionCumulativeIntersection(t *testing.T) {
	ps := newPartialSolution()
	node := testNode("a")

	inc, err := NewIncompatibility([]Term{NewTerm(node, AnySet())}, KindRoot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ps.derive(NewTerm(node, RangeSet(MustVersion("1.0.0"), MustVersion("3.0.0"))), inc)
	ps.derive(NewTerm(node, RangeSet(MustVersion("2.0.0"), MustVersion("4.0.0"))), inc)

	cumulative, ok := ps.positive[node.id()]
	if !ok {
		t.Fatalf("expected a cumulative positive term")
	}
	want := RangeSet(MustVersion("2.0.0"), MustVersion("3.0.0"))
	if !cumulative.VersionSet().Equal(want) {
		t.Fatalf("expected cumulative %s, got %s", want, cumulative.VersionSet())
	}
}

func TestPartialSolutionRelation(t *testing.T) {
	ps := newPartialSolution()
	node := testNode("a")

	if rel := ps.relation(NewTerm(node, AnySet())); rel != RelationOverlap {
		t.Fatalf("expected inconclusive relation for unassigned node, got %d", rel)
	}

	ps.decide(node, MustVersion("1.5.0"))

	if !ps.satisfies(NewTerm(node, RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0")))) {
		t.Fatalf("expected decision to satisfy a containing range")
	}
	if rel := ps.relation(NewTerm(node, RangeSet(MustVersion("2.0.0"), MustVersion("3.0.0")))); rel != RelationDisjoint {
		t.Fatalf("expected contradicted relation, got %d", rel)
	}
}

func TestPartialSolutionSatisfierIsEarliest(t *testing.T) {
	ps := newPartialSolution()
	node := testNode("a")

	inc, err := NewIncompatibility([]Term{NewTerm(node, AnySet())}, KindRoot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ps.derive(NewTerm(node, RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0"))), inc)
	ps.derive(NewTerm(node, RangeSet(MustVersion("1.0.0"), MustVersion("1.5.0"))), inc)

	// The first derivation already satisfies the wide requirement.
	satisfier, err := ps.satisfier(NewTerm(node, RangeSet(MustVersion("0.5.0"), MustVersion("2.5.0"))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if satisfier.index != 0 {
		t.Fatalf("expected the earliest assignment, got index %d", satisfier.index)
	}

	// The narrow requirement needs the second derivation as well.
	satisfier, err = ps.satisfier(NewTerm(node, RangeSet(MustVersion("0.5.0"), MustVersion("1.5.0"))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if satisfier.index != 1 {
		t.Fatalf("expected the second assignment, got index %d", satisfier.index)
	}
}

func TestPartialSolutionBacktrack(t *testing.T) {
	ps := newPartialSolution()
	root := RootNode(RemoteRef("root", ""))
	a := testNode("a")
	b := testNode("b")

	inc, err := NewIncompatibility([]Term{NewTerm(a, AnySet())}, KindRoot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ps.decide(root, MustVersion("1.0.0"))
	ps.derive(NewTerm(a, RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0"))), inc)
	ps.decide(a, MustVersion("1.2.0"))
	ps.derive(NewTerm(b, RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0"))), inc)
	ps.decide(b, MustVersion("1.0.0"))

	ps.backtrack(0)

	if ps.hasDecision(a) || ps.hasDecision(b) {
		t.Fatalf("expected level-0 backtrack to drop later decisions")
	}
	if !ps.hasDecision(root) {
		t.Fatalf("expected the root decision to survive")
	}
	cumulative, ok := ps.positive[a.id()]
	if !ok {
		t.Fatalf("expected the level-0 derivation for a to survive")
	}
	want := RangeSet(MustVersion("1.0.0"), MustVersion("2.0.0"))
	if !cumulative.VersionSet().Equal(want) {
		t.Fatalf("expected cumulative %s after rebuild, got %s", want, cumulative.VersionSet())
	}
	if _, ok := ps.positive[b.id()]; ok {
		t.Fatalf("expected level-1 derivation for b to be dropped")
	}
}

func TestPartialSolutionUndecidedOrder(t *testing.T) {
	ps := newPartialSolution()
	a := testNode("a")
	b := testNode("b")

	inc, err := NewIncompatibility([]Term{NewTerm(a, AnySet())}, KindRoot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ps.derive(NewTerm(b, AnySet()), inc)
	ps.derive(NewTerm(a, AnySet()), inc)
	ps.decide(b, MustVersion("1.0.0"))

	undecided := ps.undecided()
	if len(undecided) != 1 {
		t.Fatalf("expected one undecided node, got %d", len(undecided))
	}
	if undecided[0].Node().id() != a.id() {
		t.Fatalf("expected a to be undecided, got %s", undecided[0].Node())
	}
}
