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
)

// NoSolutionError is returned when version solving proves infeasibility.
// The diagnostic is the numbered derivation narrative built from the
// root-cause incompatibility.
type NoSolutionError struct {
	// RootCause is the incompatibility that proved failure.
	RootCause *Incompatibility
	// Diagnostic is the rendered explanation.
	Diagnostic string
}

// Error implements the error interface.
func (e *NoSolutionError) Error() string {
	if e.Diagnostic != "" {
		return e.Diagnostic
	}
	return "dependencies could not be resolved"
}

// StructuralError is returned for failures detected before version
// solving begins: the same package pinned to two distinct revisions, or
// a revision-based dependency reaching an unversioned child. These
// surface immediately without diagnostic narration.
type StructuralError struct {
	Package PackageReference
	Message string
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s", e.Package.Identity, e.Message)
}

// ProviderError wraps a container load failure. The resolver does not
// retry; the underlying error is preserved for errors.Is/As.
type ProviderError struct {
	Package PackageReference
	Err     error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("failed to load container for %s: %v", e.Package.Identity, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// InternalError indicates a violated solver invariant. It carries a dump
// of the partial solution at the point of failure.
type InternalError struct {
	Message string
	Dump    string
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	if e.Dump == "" {
		return fmt.Sprintf("internal solver error: %s", e.Message)
	}
	return fmt.Sprintf("internal solver error: %s\npartial solution:\n%s", e.Message, e.Dump)
}

// IterationLimitError is returned when the solver exceeds its maximum
// iteration count. Configure with WithMaxSteps(0) to disable the limit.
type IterationLimitError struct {
	Steps int
}

// Error implements the error interface.
func (e *IterationLimitError) Error() string {
	if e.Steps <= 0 {
		return "solver exceeded iteration limit"
	}
	return fmt.Sprintf("solver exceeded iteration limit after %d steps", e.Steps)
}

// TimeoutError is returned when the parallel bounds computation misses
// its deadline.
type TimeoutError struct {
	Package PackageReference
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return "timeout"
}

var (
	_ error = (*NoSolutionError)(nil)
	_ error = (*StructuralError)(nil)
	_ error = (*ProviderError)(nil)
	_ error = (*InternalError)(nil)
	_ error = (*IterationLimitError)(nil)
	_ error = (*TimeoutError)(nil)
)
