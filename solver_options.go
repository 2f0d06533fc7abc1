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
	"io"
	"log/slog"
	"time"
)

// SolverOptions configures the behavior of the dependency solver.
type SolverOptions struct {
	// Prefetch enqueues background container fetches for pinned
	// packages when a solve starts.
	Prefetch bool

	// SkipUpdate is passed through to the provider: containers may
	// serve cached repository state without refreshing it.
	SkipUpdate bool

	// MaxSteps limits the number of propagate/decide iterations.
	// Set to 0 to disable the limit.
	// Default: 100000
	MaxSteps int

	// BoundsTimeout bounds the parallel dependency-bounds computation.
	// Default: 60s
	BoundsTimeout time.Duration

	// Logger enables structured debug logging of solver operations.
	// When nil, no logging is performed.
	Logger *slog.Logger

	// TraceWriter receives one human-readable line per solver step.
	// When nil, no trace is emitted.
	TraceWriter io.Writer
}

// SolverOption is a functional option for configuring the solver.
type SolverOption func(*SolverOptions)

const (
	defaultMaxSteps      = 100000
	defaultBoundsTimeout = 60 * time.Second
)

func defaultSolverOptions() SolverOptions {
	return SolverOptions{
		MaxSteps:      defaultMaxSteps,
		BoundsTimeout: defaultBoundsTimeout,
	}
}

// WithPrefetching enables or disables background prefetch of pinned
// package containers at solve entry.
func WithPrefetching(enabled bool) SolverOption {
	return func(opts *SolverOptions) {
		opts.Prefetch = enabled
	}
}

// WithSkipUpdate tells providers to serve cached repository state.
func WithSkipUpdate(enabled bool) SolverOption {
	return func(opts *SolverOptions) {
		opts.SkipUpdate = enabled
	}
}

// WithMaxSteps sets the maximum number of solver iterations.
// Use 0 to disable the limit.
func WithMaxSteps(steps int) SolverOption {
	return func(opts *SolverOptions) {
		if steps <= 0 {
			opts.MaxSteps = 0
		} else {
			opts.MaxSteps = steps
		}
	}
}

// WithBoundsTimeout sets the deadline for the parallel bounds
// computation. Expiry surfaces as a fatal "timeout" failure.
func WithBoundsTimeout(d time.Duration) SolverOption {
	return func(opts *SolverOptions) {
		if d > 0 {
			opts.BoundsTimeout = d
		}
	}
}

// WithLogger sets a structured logger for solver diagnostics.
//
// Example:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	solver := NewSolver(provider, nil, WithLogger(logger))
func WithLogger(logger *slog.Logger) SolverOption {
	return func(opts *SolverOptions) {
		opts.Logger = logger
	}
}

// WithTraceWriter streams one line per solver step to w.
func WithTraceWriter(w io.Writer) SolverOption {
	return func(opts *SolverOptions) {
		opts.TraceWriter = w
	}
}
