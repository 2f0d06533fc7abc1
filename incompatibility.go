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

// IncompatibilityKind represents the origin of an incompatibility.
type IncompatibilityKind int

const (
	// KindRoot is the synthetic "root is version 1.0.0" constraint.
	KindRoot IncompatibilityKind = iota
	// KindDependency records a dependency edge A depends on B@S.
	KindDependency
	// KindNoAvailableVersion records that no published version matched.
	KindNoAvailableVersion
	// KindIncompatibleToolsVersion records a tools-version mismatch.
	KindIncompatibleToolsVersion
	// KindUnversionedDependency records a version-based package declaring
	// an unversioned dependency.
	KindUnversionedDependency
	// KindConflict marks a clause learned during conflict resolution.
	KindConflict
)

// Incompatibility is an ordered set of terms that must not all be
// satisfied at the same time, plus a tag describing where it came from.
//
// Invariants: no two terms constrain the same node (they are merged by
// intersection on construction); the empty incompatibility means
// universal failure, as does a single positive term on the root node.
type Incompatibility struct {
	// Terms that cannot jointly hold.
	Terms []Term
	// Kind of incompatibility.
	Kind IncompatibilityKind

	// FromNode is the depender for KindDependency.
	FromNode Node
	// ToolsVersion is the offending tools version for
	// KindIncompatibleToolsVersion.
	ToolsVersion Version
	// Parent and Child name both packages for KindUnversionedDependency.
	Parent, Child PackageReference

	// Cause1 and Cause2 point into the incompatibility arena for
	// KindConflict: the conflicting clause and the satisfier's cause.
	Cause1, Cause2 *Incompatibility
}

// NewIncompatibility builds an incompatibility, merging terms on the
// same node by intersection and dropping positive root terms from
// learned clauses (the root is always selected, so they carry no
// information).
func NewIncompatibility(terms []Term, kind IncompatibilityKind) (*Incompatibility, error) {
	inc := &Incompatibility{Kind: kind}

	if kind == KindConflict && len(terms) > 1 {
		hasPositiveRoot := false
		for _, term := range terms {
			if term.positive && term.node.IsRoot() {
				hasPositiveRoot = true
				break
			}
		}
		if hasPositiveRoot {
			filtered := make([]Term, 0, len(terms))
			for _, term := range terms {
				if term.positive && term.node.IsRoot() {
					continue
				}
				filtered = append(filtered, term)
			}
			terms = filtered
		}
	}

	normalized, err := normalizeTerms(terms)
	if err != nil {
		return nil, err
	}
	inc.Terms = normalized
	return inc, nil
}

// normalizeTerms merges terms constraining the same node by
// intersection, preserving first-appearance order.
func normalizeTerms(terms []Term) ([]Term, error) {
	merged := make(map[nodeID]Term, len(terms))
	order := make([]nodeID, 0, len(terms))

	for _, term := range terms {
		id := term.node.id()
		existing, ok := merged[id]
		if !ok {
			merged[id] = term
			order = append(order, id)
			continue
		}
		intersected, ok := existing.Intersect(term)
		if !ok {
			return nil, &InternalError{
				Message: fmt.Sprintf("terms %s and %s have no intersection", existing, term),
			}
		}
		merged[id] = intersected
	}

	out := make([]Term, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}
	return out, nil
}

// isFailure reports whether this incompatibility proves resolution
// impossible: no terms at all, or a single positive term on the root.
func (inc *Incompatibility) isFailure() bool {
	if len(inc.Terms) == 0 {
		return true
	}
	return len(inc.Terms) == 1 && inc.Terms[0].node.IsRoot() && inc.Terms[0].positive
}

// termFor returns the term constraining the given node, if any.
func (inc *Incompatibility) termFor(node Node) (Term, bool) {
	id := node.id()
	for _, term := range inc.Terms {
		if term.node.id() == id {
			return term, true
		}
	}
	return Term{}, false
}

// equalTerms compares two incompatibilities structurally by their term
// sets, ignoring cause tags.
func (inc *Incompatibility) equalTerms(other *Incompatibility) bool {
	if len(inc.Terms) != len(other.Terms) {
		return false
	}
	for i, term := range inc.Terms {
		o := other.Terms[i]
		if term.node.id() != o.node.id() || term.positive != o.positive || !term.versions.Equal(o.versions) {
			return false
		}
	}
	return true
}

func (inc *Incompatibility) String() string {
	if len(inc.Terms) == 0 {
		return "version solving failed"
	}
	parts := make([]string, len(inc.Terms))
	for i, term := range inc.Terms {
		parts[i] = term.String()
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

// incompatibilityStore holds every incompatibility seen during one
// solve, indexed by the nodes its terms mention. The arena is
// append-only: incompatibilities are identified by their pointer and
// never removed, so conflict causes can reference them safely.
type incompatibilityStore struct {
	byNode map[nodeID][]*Incompatibility
	arena  []*Incompatibility
}

func newIncompatibilityStore() *incompatibilityStore {
	return &incompatibilityStore{
		byNode: make(map[nodeID][]*Incompatibility),
	}
}

// insert registers the incompatibility under every node it mentions,
// skipping nodes whose list already holds a structurally equal clause.
func (s *incompatibilityStore) insert(inc *Incompatibility) {
	inserted := false
	for _, term := range inc.Terms {
		id := term.node.id()
		if containsEqual(s.byNode[id], inc) {
			continue
		}
		s.byNode[id] = append(s.byNode[id], inc)
		inserted = true
	}
	if inserted {
		s.arena = append(s.arena, inc)
	}
}

func containsEqual(list []*Incompatibility, inc *Incompatibility) bool {
	for _, existing := range list {
		if existing == inc || existing.equalTerms(inc) {
			return true
		}
	}
	return false
}

// positiveIncompatibilities returns the incompatibilities whose term for
// the node is positive, in insertion order.
func (s *incompatibilityStore) positiveIncompatibilities(node Node) []*Incompatibility {
	all := s.byNode[node.id()]
	if len(all) == 0 {
		return nil
	}
	out := make([]*Incompatibility, 0, len(all))
	for _, inc := range all {
		if term, ok := inc.termFor(node); ok && term.positive {
			out = append(out, inc)
		}
	}
	return out
}
