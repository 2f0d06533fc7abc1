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

	"golang.org/x/sync/errgroup"
)

// solverState holds the mutable state of one solve: the partial
// solution, the incompatibility store, and the override set. All of it
// is single-writer; only container fetches and bounds computations run
// off the resolver goroutine.
type solverState struct {
	cache      *containerCache
	options    SolverOptions
	partial    *partialSolution
	store      *incompatibilityStore
	root       Node
	overridden map[string]overriddenPackage
	trace      *tracer
}

func newSolverState(cache *containerCache, options SolverOptions, root Node) *solverState {
	return &solverState{
		cache:   cache,
		options: options,
		partial: newPartialSolution(),
		store:   newIncompatibilityStore(),
		root:    root,
		trace:   newTracer(options.TraceWriter),
	}
}

func (st *solverState) debug(msg string, args ...any) {
	if st.options.Logger == nil {
		return
	}
	st.options.Logger.Debug(msg, args...)
}

// unresolvableError carries the root-cause incompatibility out of
// conflict resolution; the solver turns it into a NoSolutionError with
// a rendered diagnostic.
type unresolvableError struct {
	rootCause *Incompatibility
}

func (e *unresolvableError) Error() string {
	return "dependencies could not be resolved"
}

type propagationResult int

const (
	propagationNone propagationResult = iota
	propagationConflict
	propagationAlmostSatisfied
)

// propagate performs unit propagation starting from a seed node.
// For each node in the work set it walks that node's positive
// incompatibilities in reverse insertion order; almost-satisfied
// clauses derive the negation of their one unsatisfied term, satisfied
// clauses trigger conflict resolution.
func (st *solverState) propagate(ctx context.Context, seed Node) error {
	changed := []Node{seed}
	queued := map[nodeID]bool{seed.id(): true}

	push := func(n Node) {
		if queued[n.id()] {
			return
		}
		changed = append(changed, n)
		queued[n.id()] = true
	}

	for len(changed) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		node := changed[0]
		changed = changed[1:]
		delete(queued, node.id())

		incompatibilities := st.store.positiveIncompatibilities(node)
	incompatLoop:
		for i := len(incompatibilities) - 1; i >= 0; i-- {
			inc := incompatibilities[i]

			result, unsatisfied := st.propagateIncompatibility(inc)
			switch result {
			case propagationConflict:
				st.trace.conflict(inc)
				st.debug("conflict detected", "incompatibility", inc.String())

				rootCause, err := st.resolve(inc)
				if err != nil {
					return err
				}

				// The learned clause must almost-satisfy the backtracked
				// solution; anything else is a solver bug.
				result, unsatisfied = st.propagateIncompatibility(rootCause)
				if result != propagationAlmostSatisfied {
					return &InternalError{
						Message: "expected root cause to almost-satisfy the partial solution",
						Dump:    st.partial.dump(),
					}
				}
				changed = changed[:0]
				clear(queued)
				push(unsatisfied)
				break incompatLoop

			case propagationAlmostSatisfied:
				push(unsatisfied)
			}
		}
	}
	return nil
}

// propagateIncompatibility evaluates one incompatibility against the
// partial solution. If it is almost satisfied, the inverse of the one
// unsatisfied term is derived and its node returned.
func (st *solverState) propagateIncompatibility(inc *Incompatibility) (propagationResult, Node) {
	var unsatisfied *Term

	for i := range inc.Terms {
		term := inc.Terms[i]
		switch st.partial.relation(term) {
		case RelationDisjoint:
			// A contradicted term makes the whole clause inactive.
			return propagationNone, Node{}
		case RelationOverlap:
			if unsatisfied != nil {
				return propagationNone, Node{}
			}
			unsatisfied = &inc.Terms[i]
		}
	}

	if unsatisfied == nil {
		return propagationConflict, Node{}
	}

	derived := unsatisfied.Negate()
	st.partial.derive(derived, inc)
	st.trace.derivation(derived)
	st.debug("derived", "term", derived.String(), "cause", inc.String())
	return propagationAlmostSatisfied, unsatisfied.node
}

// resolve performs conflict-driven clause learning on a satisfied
// incompatibility, backtracking the partial solution and returning the
// learned clause.
func (st *solverState) resolve(conflict *Incompatibility) (*Incompatibility, error) {
	incompatibility := conflict
	createdIncompatibility := false

	for {
		if incompatibility.isFailure() {
			return nil, &unresolvableError{rootCause: incompatibility}
		}

		var mostRecentTerm *Term
		var mostRecentSatisfier *assignment
		var difference *Term
		previousSatisfierLevel := 0

		for i := range incompatibility.Terms {
			term := &incompatibility.Terms[i]
			satisfier, err := st.partial.satisfier(*term)
			if err != nil {
				return nil, err
			}

			updated := false
			switch {
			case mostRecentSatisfier == nil:
				mostRecentTerm = term
				mostRecentSatisfier = satisfier
				updated = true
			case mostRecentSatisfier.index < satisfier.index:
				previousSatisfierLevel = max(previousSatisfierLevel, mostRecentSatisfier.decisionLevel)
				mostRecentTerm = term
				mostRecentSatisfier = satisfier
				difference = nil
				updated = true
			default:
				previousSatisfierLevel = max(previousSatisfierLevel, satisfier.decisionLevel)
			}

			if updated {
				// When the satisfying assignment is broader than the
				// term it satisfies, the surplus participates in the
				// learned clause and may move the backjump level.
				if diff, ok := mostRecentSatisfier.term.Difference(*mostRecentTerm); ok {
					difference = &diff
					diffSatisfier, err := st.partial.satisfier(diff.Negate())
					if err != nil {
						return nil, err
					}
					previousSatisfierLevel = max(previousSatisfierLevel, diffSatisfier.decisionLevel)
				} else {
					difference = nil
				}
			}
		}

		if previousSatisfierLevel < mostRecentSatisfier.decisionLevel || mostRecentSatisfier.cause == nil {
			st.trace.backtrack(previousSatisfierLevel)
			st.partial.backtrack(previousSatisfierLevel)
			if createdIncompatibility {
				st.store.insert(incompatibility)
			}
			st.debug("conflict resolved", "learned", incompatibility.String(), "level", previousSatisfierLevel)
			return incompatibility, nil
		}

		priorCause := mostRecentSatisfier.cause

		newTerms := make([]Term, 0, len(incompatibility.Terms)+len(priorCause.Terms))
		for i := range incompatibility.Terms {
			if &incompatibility.Terms[i] != mostRecentTerm {
				newTerms = append(newTerms, incompatibility.Terms[i])
			}
		}
		satisfierNode := mostRecentSatisfier.term.node.id()
		for _, term := range priorCause.Terms {
			if term.node.id() != satisfierNode {
				newTerms = append(newTerms, term)
			}
		}
		if difference != nil {
			newTerms = append(newTerms, difference.Negate())
		}

		learned, err := NewIncompatibility(newTerms, KindConflict)
		if err != nil {
			return nil, err
		}
		learned.Cause1 = incompatibility
		learned.Cause2 = priorCause
		incompatibility = learned
		createdIncompatibility = true
	}
}

// makeDecision selects the most constrained undecided node, proposes
// its best available version, registers the incompatibilities that
// version introduces, and commits the decision unless one of them is
// already satisfied. Returns nil when nothing is left to decide.
func (st *solverState) makeDecision(ctx context.Context) (*Node, error) {
	var undecided []Term
	for _, term := range st.partial.undecided() {
		if _, ok := st.overridden[term.node.Package().Identity]; ok {
			continue
		}
		undecided = append(undecided, term)
	}
	if len(undecided) == 0 {
		return nil, nil
	}

	// Fail fast on the package with the fewest candidate versions.
	// Counts are queried in parallel; ties keep first-assignment order.
	counts := make([]int, len(undecided))
	group, gctx := errgroup.WithContext(ctx)
	for i, term := range undecided {
		group.Go(func() error {
			container, err := st.cache.getContainer(gctx, term.node.Package())
			if err != nil {
				return err
			}
			count, err := container.versionCount(term.versions)
			if err != nil {
				return err
			}
			counts[i] = count
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	chosen := 0
	for i := 1; i < len(undecided); i++ {
		if counts[i] < counts[chosen] {
			chosen = i
		}
	}
	term := undecided[chosen]

	container, err := st.cache.getContainer(ctx, term.node.Package())
	if err != nil {
		return nil, err
	}

	version, found, err := container.bestAvailableVersion(term)
	if err != nil {
		return nil, err
	}
	if !found {
		inc, err := NewIncompatibility([]Term{term}, KindNoAvailableVersion)
		if err != nil {
			return nil, err
		}
		st.store.insert(inc)
		st.debug("no available version", "node", term.node.String(), "requirement", term.versions.String())
		return &term.node, nil
	}

	incompatibilities, err := container.incompatibilitiesAt(ctx, version, term.node, st.overridden)
	if err != nil {
		return nil, err
	}

	haveConflict := false
	for _, inc := range incompatibilities {
		st.store.insert(inc)

		// The term matching this node will hold once we decide, so only
		// the remaining terms need checking.
		satisfied := true
		for _, t := range inc.Terms {
			if t.node.id() == term.node.id() {
				continue
			}
			if !st.partial.satisfies(t) {
				satisfied = false
				break
			}
		}
		haveConflict = haveConflict || satisfied
	}

	if !haveConflict {
		decision := NewTerm(term.node, ExactSet(version))
		if !decision.isValidDecision(st.partial) {
			return nil, &InternalError{
				Message: "decision " + decision.String() + " contradicts the partial solution",
				Dump:    st.partial.dump(),
			}
		}
		st.partial.decide(term.node, version)
		st.trace.decision(term.node, version)
		st.debug("decision", "node", term.node.String(), "version", version.String())
	}

	return &term.node, nil
}
