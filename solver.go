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
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Solver selects, for every transitively reachable package, exactly one
// version (or branch/revision/local override) that jointly satisfies
// all stated constraints, or explains precisely why no such selection
// exists.
//
// The engine is a variant of the PubGrub conflict-driven clause-learning
// algorithm: unit propagation over an incompatibility store, decision
// making on the most constrained package, and clause learning with
// backjumping on conflict.
//
// Basic usage:
//
//	provider := NewInMemoryProvider()
//	// ... populate provider with packages ...
//
//	solver := NewSolver(provider, nil)
//	bindings, err := solver.Solve(ctx, []Constraint{
//	    NewConstraint(pkgA, VersionSetRequirement(MustParseVersionSet(">=1.0.0, <2.0.0")), EverythingFilter()),
//	})
type Solver struct {
	provider ContainerProvider
	pins     PinsMap
	options  SolverOptions
}

// NewSolver creates a solver over a container provider. The pins map
// may be nil; pins are preference hints, never hard constraints.
func NewSolver(provider ContainerProvider, pins PinsMap, opts ...SolverOption) *Solver {
	options := defaultSolverOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Solver{provider: provider, pins: pins, options: options}
}

// synthesizedRootIdentity names the synthetic root node.
const synthesizedRootIdentity = "<synthesized-root>"

// Solve resolves the given root constraints. On success it returns one
// binding per reachable package, identity-sorted, with overridden
// packages at the end. On proven infeasibility it returns a
// *NoSolutionError whose message is the numbered derivation narrative.
//
// Resolution state is created fresh per call; the context cancels
// pending container fetches and bounds computations.
func (s *Solver) Solve(ctx context.Context, constraints []Constraint) ([]ResolvedBinding, error) {
	root := RootNode(PackageReference{
		Identity: synthesizedRootIdentity,
		Kind:     KindRoot,
		Location: synthesizedRootIdentity,
	})

	cache := newContainerCache(s.provider, s.pins, s.options.SkipUpdate, s.options.BoundsTimeout)
	state := newSolverState(cache, s.options, root)

	rootInc, err := NewIncompatibility(
		[]Term{NewNegativeTerm(root, ExactSet(rootVersion()))},
		KindRoot,
	)
	if err != nil {
		return nil, err
	}
	state.store.insert(rootInc)

	processor := &inputProcessor{cache: cache, pins: s.pins, root: root}
	overrides, rootIncompatibilities, err := processor.process(ctx, constraints)
	if err != nil {
		return nil, err
	}
	state.overridden = overrides
	for _, inc := range rootIncompatibilities {
		state.store.insert(inc)
	}

	if s.options.Prefetch {
		var refs []PackageReference
		for identity, pin := range s.pins {
			if _, ok := overrides[identity]; ok {
				continue
			}
			refs = append(refs, pin.Ref)
		}
		slices.SortFunc(refs, func(a, b PackageReference) int {
			return strings.Compare(a.Identity, b.Identity)
		})
		cache.startPrefetch(ctx, refs)
	}

	state.partial.decide(root, rootVersion())
	state.trace.decision(root, rootVersion())

	bindings, err := s.run(ctx, state, root)
	state.trace.finish(bindings, err)
	if err != nil {
		var unresolvable *unresolvableError
		if errors.As(err, &unresolvable) {
			builder := newReportBuilder(ctx, cache, root)
			return nil, &NoSolutionError{
				RootCause:  unresolvable.rootCause,
				Diagnostic: builder.build(unresolvable.rootCause),
			}
		}
		return nil, err
	}
	return bindings, nil
}

// run drives the propagate/decide loop to a fixed point, then collects
// the bindings.
func (s *Solver) run(ctx context.Context, state *solverState, root Node) ([]ResolvedBinding, error) {
	current := root
	for steps := 0; ; steps++ {
		if s.options.MaxSteps > 0 && steps >= s.options.MaxSteps {
			return nil, &IterationLimitError{Steps: s.options.MaxSteps}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := state.propagate(ctx, current); err != nil {
			return nil, err
		}

		next, err := state.makeDecision(ctx)
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		current = *next
	}

	return s.collectBindings(ctx, state, root)
}

// collectBindings turns decisions into result bindings: identities may
// be rewritten by the provider once the concrete version is known,
// product filters accumulate across nodes that settle on the same
// identity, and overridden packages are appended at the end.
func (s *Solver) collectBindings(ctx context.Context, state *solverState, root Node) ([]ResolvedBinding, error) {
	flattened := make(map[string]*ResolvedBinding)
	var order []string

	for _, decision := range state.partial.decidedNodes() {
		if decision.node.id() == root.id() {
			continue
		}

		binding := VersionBinding(decision.version)
		container, err := state.cache.getContainer(ctx, decision.node.Package())
		if err != nil {
			return nil, err
		}
		updated, err := container.underlying.UpdatedIdentifier(binding)
		if err != nil {
			return nil, &ProviderError{Package: decision.node.Package(), Err: err}
		}

		if existing, ok := flattened[updated.Identity]; ok {
			if !existing.Binding.Equal(binding) {
				return nil, &InternalError{
					Message: fmt.Sprintf("%s bound to both %s and %s", updated.Identity, existing.Binding, binding),
					Dump:    state.partial.dump(),
				}
			}
			existing.Products = existing.Products.Union(decision.node.ProductFilter())
			continue
		}
		flattened[updated.Identity] = &ResolvedBinding{
			Package:  updated,
			Binding:  binding,
			Products: decision.node.ProductFilter(),
		}
		order = append(order, updated.Identity)
	}

	slices.Sort(order)
	bindings := make([]ResolvedBinding, 0, len(order)+len(state.overridden))
	for _, identity := range order {
		bindings = append(bindings, *flattened[identity])
	}

	overriddenIdentities := make([]string, 0, len(state.overridden))
	for identity := range state.overridden {
		overriddenIdentities = append(overriddenIdentities, identity)
	}
	slices.Sort(overriddenIdentities)
	for _, identity := range overriddenIdentities {
		o := state.overridden[identity]
		bindings = append(bindings, ResolvedBinding{
			Package:  o.ref,
			Binding:  o.binding,
			Products: o.products,
		})
	}

	return bindings, nil
}
