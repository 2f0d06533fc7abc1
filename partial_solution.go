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

// partialSolution is the ordered log of decisions and derivations, plus
// a derived per-node cumulative term. Backtracking truncates the log and
// rebuilds the cumulative state; there are no snapshot structures.
type partialSolution struct {
	assignments []*assignment
	decisions   map[nodeID]Version

	// positive and negative hold the cumulative intersected term per
	// node. A node appears in exactly one of the two maps.
	positive map[nodeID]Term
	negative map[nodeID]Term

	// positiveOrder records the order in which nodes first gained a
	// positive cumulative term, so that undecided enumeration (and with
	// it decision tie-breaking) is deterministic.
	positiveOrder []Node
}

func newPartialSolution() *partialSolution {
	return &partialSolution{
		decisions: make(map[nodeID]Version),
		positive:  make(map[nodeID]Term),
		negative:  make(map[nodeID]Term),
	}
}

// decisionLevel numbers the decision tiers of the log. The first
// decision (the synthetic root) sits at level 0, so backjumping to
// level 0 rewinds everything except the root and its direct
// consequences.
func (ps *partialSolution) decisionLevel() int {
	if len(ps.decisions) == 0 {
		return 0
	}
	return len(ps.decisions) - 1
}

// decide appends a decision fixing node to an exact version.
func (ps *partialSolution) decide(node Node, version Version) {
	ps.decisions[node.id()] = version
	ps.appendAssignment(&assignment{
		term:          NewTerm(node, ExactSet(version)),
		kind:          assignmentDecision,
		decisionLevel: ps.decisionLevel(),
	})
}

// derive appends a derivation of term caused by an incompatibility.
func (ps *partialSolution) derive(term Term, cause *Incompatibility) {
	ps.appendAssignment(&assignment{
		term:          term,
		kind:          assignmentDerivation,
		cause:         cause,
		decisionLevel: ps.decisionLevel(),
	})
}

func (ps *partialSolution) appendAssignment(a *assignment) {
	a.index = len(ps.assignments)
	ps.assignments = append(ps.assignments, a)
	ps.register(a.term)
}

// register folds a term into the cumulative per-node state.
func (ps *partialSolution) register(term Term) {
	id := term.node.id()

	if existing, ok := ps.positive[id]; ok {
		if merged, ok := existing.Intersect(term); ok {
			ps.positive[id] = merged
		}
		return
	}

	if existing, ok := ps.negative[id]; ok {
		merged, ok := existing.Intersect(term)
		if !ok {
			return
		}
		if merged.positive {
			delete(ps.negative, id)
			ps.positive[id] = merged
			ps.positiveOrder = append(ps.positiveOrder, merged.node)
		} else {
			ps.negative[id] = merged
		}
		return
	}

	if term.positive {
		ps.positive[id] = term
		ps.positiveOrder = append(ps.positiveOrder, term.node)
	} else {
		ps.negative[id] = term
	}
}

// relation classifies a term against the cumulative state:
// RelationSubset means satisfied, RelationDisjoint contradicted,
// RelationOverlap inconclusive.
func (ps *partialSolution) relation(term Term) SetRelation {
	id := term.node.id()
	if cumulative, ok := ps.positive[id]; ok {
		return cumulative.Relation(term)
	}
	if cumulative, ok := ps.negative[id]; ok {
		return cumulative.Relation(term)
	}
	return RelationOverlap
}

// satisfies reports whether the cumulative state implies the term.
func (ps *partialSolution) satisfies(term Term) bool {
	return ps.relation(term) == RelationSubset
}

// satisfier returns the earliest assignment at which the running
// intersection of the node's terms becomes a subset of term.
func (ps *partialSolution) satisfier(term Term) (*assignment, error) {
	var accumulated Term
	var haveAccumulated bool

	for _, a := range ps.assignments {
		if a.term.node.id() != term.node.id() {
			continue
		}
		if !haveAccumulated {
			accumulated = a.term
			haveAccumulated = true
		} else if merged, ok := accumulated.Intersect(a.term); ok {
			accumulated = merged
		}
		if accumulated.satisfies(term) {
			return a, nil
		}
	}

	return nil, &InternalError{
		Message: fmt.Sprintf("no satisfier found for %s", term),
		Dump:    ps.dump(),
	}
}

// backtrack truncates the log to the longest prefix whose assignments
// all have decisionLevel at most level, then rebuilds the cumulative
// state. Decision levels never decrease along the log, so truncation is
// a suffix removal.
func (ps *partialSolution) backtrack(level int) {
	if level < 0 {
		level = 0
	}

	keep := len(ps.assignments)
	for keep > 0 && ps.assignments[keep-1].decisionLevel > level {
		keep--
	}
	ps.assignments = ps.assignments[:keep]

	ps.decisions = make(map[nodeID]Version)
	ps.positive = make(map[nodeID]Term)
	ps.negative = make(map[nodeID]Term)
	ps.positiveOrder = ps.positiveOrder[:0]

	for i, a := range ps.assignments {
		a.index = i
		if a.isDecision() {
			if version, ok := a.term.versions.AsSingleVersion(); ok {
				ps.decisions[a.term.node.id()] = version
			}
		}
		ps.register(a.term)
	}
}

// hasDecision reports whether the node has been fixed to a version.
func (ps *partialSolution) hasDecision(node Node) bool {
	_, ok := ps.decisions[node.id()]
	return ok
}

// undecided returns, in first-assignment order, the cumulative positive
// terms of nodes that do not yet have a decision.
func (ps *partialSolution) undecided() []Term {
	var terms []Term
	for _, node := range ps.positiveOrder {
		id := node.id()
		if _, decided := ps.decisions[id]; decided {
			continue
		}
		if term, ok := ps.positive[id]; ok {
			terms = append(terms, term)
		}
	}
	return terms
}

// decidedNode pairs a node with the version its decision fixed.
type decidedNode struct {
	node    Node
	version Version
}

// decidedNodes returns every decided node with its version, in decision
// order along the log.
func (ps *partialSolution) decidedNodes() []decidedNode {
	var out []decidedNode
	seen := make(map[nodeID]bool)
	for _, a := range ps.assignments {
		if !a.isDecision() {
			continue
		}
		id := a.term.node.id()
		if seen[id] {
			continue
		}
		seen[id] = true
		version, ok := a.term.versions.AsSingleVersion()
		if !ok {
			continue
		}
		out = append(out, decidedNode{node: a.term.node, version: version})
	}
	return out
}

// dump renders the assignment log for internal-error reports.
func (ps *partialSolution) dump() string {
	var sb strings.Builder
	for _, a := range ps.assignments {
		sb.WriteString(a.describe())
		sb.WriteByte('\n')
	}
	return sb.String()
}
