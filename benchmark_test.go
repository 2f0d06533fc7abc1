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
	"fmt"
	"testing"
)

// chainProvider builds a linear dependency chain pkg0 -> pkg1 -> ... of
// the given depth, each link published at several versions.
func chainProvider(depth, versionsPerPackage int) *InMemoryProvider {
	provider := NewInMemoryProvider()
	for i := range depth {
		name := fmt.Sprintf("pkg%d", i)
		var deps []Constraint
		if i+1 < depth {
			deps = []Constraint{versionDep(fmt.Sprintf("pkg%d", i+1), ">=1.0.0, <2.0.0")}
		}
		for v := range versionsPerPackage {
			provider.AddVersion(pkg(name), MustVersion(fmt.Sprintf("1.%d.0", v)), deps)
		}
	}
	return provider
}

func BenchmarkSolveChain(b *testing.B) {
	provider := chainProvider(20, 5)
	constraints := []Constraint{versionDep("pkg0", ">=1.0.0, <2.0.0")}

	b.ResetTimer()
	for range b.N {
		if _, err := NewSolver(provider, nil).Solve(context.Background(), constraints); err != nil {
			b.Fatalf("Solve returned error: %v", err)
		}
	}
}

func BenchmarkSolveWithBacktracking(b *testing.B) {
	provider := NewInMemoryProvider()
	// Newer a versions require a c that does not exist, forcing the
	// solver to learn clauses and fall back to 1.0.0.
	for _, v := range []string{"2.0.0", "2.1.0", "2.2.0"} {
		provider.AddVersion(pkg("a"), MustVersion(v), []Constraint{
			versionDep("c", ">=9.0.0"),
		})
	}
	provider.AddVersion(pkg("a"), MustVersion("1.0.0"), []Constraint{
		versionDep("c", ">=1.0.0, <2.0.0"),
	})
	provider.AddVersion(pkg("c"), MustVersion("1.5.0"), nil)

	constraints := []Constraint{versionDep("a", ">=1.0.0")}

	b.ResetTimer()
	for range b.N {
		bindings, err := NewSolver(provider, nil).Solve(context.Background(), constraints)
		if err != nil {
			b.Fatalf("Solve returned error: %v", err)
		}
		if len(bindings) != 2 {
			b.Fatalf("expected two bindings, got %v", bindingStrings(bindings))
		}
	}
}

func BenchmarkVersionSetIntersect(b *testing.B) {
	x := MustParseVersionSet(">=1.0.0, <2.0.0 || >=3.0.0, <4.0.0 || >=5.0.0, <6.0.0")
	y := MustParseVersionSet(">=1.5.0, <5.5.0")

	b.ResetTimer()
	for range b.N {
		if x.Intersect(y).IsEmpty() {
			b.Fatalf("expected non-empty intersection")
		}
	}
}
