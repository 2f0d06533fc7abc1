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

// assignmentKind distinguishes decisions from derivations.
type assignmentKind int

const (
	assignmentDecision   assignmentKind = iota // Explicit version selection
	assignmentDerivation                       // Constraint derived during propagation
)

// assignment is a single entry in the partial solution log: either a
// decision fixing a node to one exact version, or a derivation of a term
// from an incompatibility given prior assignments.
type assignment struct {
	term          Term
	kind          assignmentKind
	cause         *Incompatibility // nil for decisions
	decisionLevel int              // decisions at or before this entry, minus one (never below 0)
	index         int              // position in the log, for satisfier ordering
}

func (a *assignment) isDecision() bool {
	return a.kind == assignmentDecision
}

func (a *assignment) describe() string {
	if a.isDecision() {
		return fmt.Sprintf("decision %s @%d", a.term, a.decisionLevel)
	}
	return fmt.Sprintf("derivation %s @%d", a.term, a.decisionLevel)
}
