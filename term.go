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

// Term is a signed constraint over one resolution node. A positive term
// asserts the node's selection lies within the version set; a negative
// term asserts it does not.
//
// Terms are the building blocks of incompatibilities and of the partial
// solution's cumulative state.
type Term struct {
	node     Node
	versions VersionSet
	positive bool
}

// NewTerm creates a positive term requiring the node's version to lie
// within the set.
func NewTerm(node Node, versions VersionSet) Term {
	return Term{node: node, versions: versions, positive: true}
}

// NewNegativeTerm creates a negative term excluding versions in the set.
func NewNegativeTerm(node Node, versions VersionSet) Term {
	return Term{node: node, versions: versions, positive: false}
}

// Node returns the resolution node the term constrains.
func (t Term) Node() Node {
	return t.node
}

// VersionSet returns the term's version set.
func (t Term) VersionSet() VersionSet {
	return t.versions
}

// IsPositive reports whether the term asserts a positive constraint.
func (t Term) IsPositive() bool {
	return t.positive
}

// Negate returns the logical negation of the term.
func (t Term) Negate() Term {
	return Term{node: t.node, versions: t.versions, positive: !t.positive}
}

// Relation classifies how this term (taken as the accumulated state of
// an assignment) relates to other:
//   - RelationSubset: satisfying this term necessarily satisfies other
//   - RelationDisjoint: satisfying this term necessarily contradicts other
//   - RelationOverlap: neither is implied
func (t Term) Relation(other Term) SetRelation {
	if t.node.id() != other.node.id() {
		return RelationOverlap
	}

	if other.positive {
		if t.positive {
			// If the other requirement contains all our versions, we
			// are a subset of it.
			if t.versions.IsSubsetOf(other.versions) {
				return RelationSubset
			}
			if t.versions.IsDisjoint(other.versions) {
				return RelationDisjoint
			}
			return RelationOverlap
		}
		// A negative assignment can never prove a positive requirement.
		if other.versions.IsSubsetOf(t.versions) {
			return RelationDisjoint
		}
		return RelationOverlap
	}

	if t.positive {
		if t.versions.IsDisjoint(other.versions) {
			return RelationSubset
		}
		if t.versions.IsSubsetOf(other.versions) {
			return RelationDisjoint
		}
		return RelationOverlap
	}
	if other.versions.IsSubsetOf(t.versions) {
		return RelationSubset
	}
	return RelationOverlap
}

// Intersect combines two terms on the same node into the narrowest term
// implied by both. Returns false when the nodes differ or the result is
// vacuous.
func (t Term) Intersect(other Term) (Term, bool) {
	if t.node.id() != other.node.id() {
		return Term{}, false
	}
	return t.intersect(other.versions, other.positive)
}

func (t Term) intersect(requirement VersionSet, positive bool) (Term, bool) {
	var set VersionSet
	var resultPositive bool

	switch {
	case t.positive && positive:
		set = t.versions.Intersect(requirement)
		resultPositive = true
	case !t.positive && !positive:
		set = t.versions.Union(requirement)
		resultPositive = false
	default:
		pos, neg := t.versions, requirement
		if !t.positive {
			pos, neg = requirement, t.versions
		}
		set = pos.Difference(neg)
		resultPositive = true
	}

	if set.IsEmpty() {
		return Term{}, false
	}
	return Term{node: t.node, versions: set, positive: resultPositive}, true
}

// Difference returns the term containing versions permitted by this term
// but not by other.
func (t Term) Difference(other Term) (Term, bool) {
	return t.Intersect(other.Negate())
}

// satisfies reports whether this term necessarily implies other.
func (t Term) satisfies(other Term) bool {
	return t.node.id() == other.node.id() && t.Relation(other) == RelationSubset
}

// isValidDecision reports whether fixing the node to this exact term
// is consistent with every assignment already made on it.
func (t Term) isValidDecision(ps *partialSolution) bool {
	for _, a := range ps.assignments {
		if a.term.node.id() != t.node.id() {
			continue
		}
		if t.Relation(a.term) != RelationSubset {
			return false
		}
	}
	return true
}

func (t Term) String() string {
	if t.positive {
		return fmt.Sprintf("%s %s", t.node, t.versions)
	}
	return fmt.Sprintf("not %s %s", t.node, t.versions)
}
