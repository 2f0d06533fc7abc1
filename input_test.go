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
	"testing"
)

func TestSolveRevisionOverride(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.AddRevision(pkg("a"), "main", []Constraint{
		versionDep("b", ">=1.0.0, <2.0.0"),
	})
	provider.AddVersion(pkg("b"), MustVersion("1.0.0"), nil)

	bindings, err := NewSolver(provider, nil).Solve(context.Background(), []Constraint{
		revisionDep("a", "main"),
		versionDep("b", ">=1.0.0, <2.0.0"),
	})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}

	if len(bindings) != 2 {
		t.Fatalf("expected two bindings, got %v", bindingStrings(bindings))
	}
	checkVersion(t, bindings, "b", "1.0.0")

	last := bindings[len(bindings)-1]
	if last.Package.Identity != "a" {
		t.Fatalf("expected the overridden package last, got %v", bindingStrings(bindings))
	}
	if revision, ok := last.Binding.Revision(); !ok || revision != "main" {
		t.Fatalf("expected a bound to revision main, got %s", last.Binding)
	}
}

func TestSolveUnversionedChain(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.SetUnversionedDependencies(pkg("a"), []Constraint{
		localDep("b"),
	})
	provider.SetUnversionedDependencies(pkg("b"), nil)

	bindings, err := NewSolver(provider, nil).Solve(context.Background(), []Constraint{
		localDep("a"),
	})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}

	if len(bindings) != 2 {
		t.Fatalf("expected both packages overridden, got %v", bindingStrings(bindings))
	}
	for _, b := range bindings {
		if b.Binding.Kind() != BindingUnversioned {
			t.Fatalf("expected %s to be unversioned, got %s", b.Package.Identity, b.Binding)
		}
	}
}

func TestSolveUnversionedCycleTerminates(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.SetUnversionedDependencies(pkg("a"), []Constraint{localDep("b")})
	provider.SetUnversionedDependencies(pkg("b"), []Constraint{localDep("a")})

	bindings, err := NewSolver(provider, nil).Solve(context.Background(), []Constraint{
		localDep("a"),
	})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("expected both packages overridden, got %v", bindingStrings(bindings))
	}
}

func TestSolveConflictingRevisions(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.AddRevision(pkg("a"), "main", nil)
	provider.AddRevision(pkg("a"), "develop", nil)

	_, err := NewSolver(provider, nil).Solve(context.Background(), []Constraint{
		revisionDep("a", "main"),
		revisionDep("a", "develop"),
	})
	if err == nil {
		t.Fatalf("expected a structural error, got success")
	}
	if _, ok := err.(*StructuralError); !ok {
		t.Fatalf("expected *StructuralError, got %T: %v", err, err)
	}
}

func TestSolveRevisionDependingOnLocalPackage(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.AddRevision(pkg("a"), "main", []Constraint{
		localDep("b"),
	})

	_, err := NewSolver(provider, nil).Solve(context.Background(), []Constraint{
		revisionDep("a", "main"),
	})
	if err == nil {
		t.Fatalf("expected a structural error, got success")
	}
	if _, ok := err.(*StructuralError); !ok {
		t.Fatalf("expected *StructuralError, got %T: %v", err, err)
	}
}

func TestSolveLocalOverrideBeatsRevision(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.SetUnversionedDependencies(pkg("a"), nil)
	provider.AddRevision(pkg("a"), "main", nil)

	bindings, err := NewSolver(provider, nil).Solve(context.Background(), []Constraint{
		localDep("a"),
		revisionDep("a", "main"),
	})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if len(bindings) != 1 {
		t.Fatalf("expected one binding, got %v", bindingStrings(bindings))
	}
	if bindings[0].Binding.Kind() != BindingUnversioned {
		t.Fatalf("expected the local override to win, got %s", bindings[0].Binding)
	}
}

func TestSolveRevisionChainCollectsVersionedChildren(t *testing.T) {
	provider := NewInMemoryProvider()
	provider.AddRevision(pkg("a"), "main", []Constraint{
		revisionDep("b", "main"),
		versionDep("c", ">=1.0.0, <2.0.0"),
	})
	provider.AddRevision(pkg("b"), "main", nil)
	provider.AddVersion(pkg("c"), MustVersion("1.4.0"), nil)

	bindings, err := NewSolver(provider, nil).Solve(context.Background(), []Constraint{
		revisionDep("a", "main"),
	})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}

	checkVersion(t, bindings, "c", "1.4.0")
	if len(bindings) != 3 {
		t.Fatalf("expected three bindings, got %v", bindingStrings(bindings))
	}
}

func TestSolveBranchPinFetchesPinnedCommit(t *testing.T) {
	provider := NewInMemoryProvider()
	// The branch tip moved to depend on c 2.x, but the pin recorded the
	// old commit which depends on c 1.x.
	provider.AddRevision(pkg("a"), "main", []Constraint{
		versionDep("c", ">=2.0.0, <3.0.0"),
	})
	provider.AddRevision(pkg("a"), "abc123", []Constraint{
		versionDep("c", ">=1.0.0, <2.0.0"),
	})
	provider.AddVersion(pkg("c"), MustVersion("1.0.0"), nil)
	provider.AddVersion(pkg("c"), MustVersion("2.0.0"), nil)

	pins := PinsMap{
		"a": {Ref: pkg("a"), State: PinState{Kind: PinBranch, Branch: "main", Revision: "abc123"}},
	}

	bindings, err := NewSolver(provider, pins).Solve(context.Background(), []Constraint{
		revisionDep("a", "main"),
	})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	checkVersion(t, bindings, "c", "1.0.0")
}
