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
	"io"
)

const (
	traceSuccessChar = "✓"
	traceFailChar    = "✗"
)

// tracer writes one line per solver step to a configured stream.
// All methods are safe on a nil writer.
type tracer struct {
	w io.Writer
}

func newTracer(w io.Writer) *tracer {
	return &tracer{w: w}
}

func (t *tracer) printf(format string, args ...any) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, format+"\n", args...)
}

func (t *tracer) decision(node Node, version Version) {
	t.printf("%s select %s at %s", traceSuccessChar, node, version)
}

func (t *tracer) derivation(term Term) {
	t.printf("| derive %s", term)
}

func (t *tracer) conflict(inc *Incompatibility) {
	t.printf("%s conflict %s", traceFailChar, inc)
}

func (t *tracer) backtrack(level int) {
	t.printf("| backtrack to level %d", level)
}

func (t *tracer) finish(bindings []ResolvedBinding, err error) {
	if err != nil {
		t.printf("%s solving failed", traceFailChar)
		return
	}
	t.printf("%s found solution with %d packages", traceSuccessChar, len(bindings))
}
