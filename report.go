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
	"strconv"
	"strings"
	"unicode"
)

// reportBuilder turns the conflict cause DAG rooted at a failing
// incompatibility into a numbered prose derivation.
//
// The first pass counts how often each incompatibility appears as a
// conflict child; shared ones (count > 1) become numbered lines that
// later steps reference, unshared conclusions are inlined. The second
// pass is a recursive visit that writes one line per derivation step.
type reportBuilder struct {
	ctx   context.Context
	cache *containerCache
	root  Node

	lines       []reportLine
	derivations map[*Incompatibility]int
	lineNumbers map[*Incompatibility]int
}

// reportLine is one rendered step; number is 0 for unnumbered lines.
type reportLine struct {
	number  int
	message string
}

func newReportBuilder(ctx context.Context, cache *containerCache, root Node) *reportBuilder {
	return &reportBuilder{
		ctx:         ctx,
		cache:       cache,
		root:        root,
		derivations: make(map[*Incompatibility]int),
		lineNumbers: make(map[*Incompatibility]int),
	}
}

// build renders the full numbered narrative for a root cause.
func (b *reportBuilder) build(rootCause *Incompatibility) string {
	b.countDerivations(rootCause)

	if rootCause.Kind == KindConflict {
		b.visit(rootCause, true)
	} else {
		b.record(rootCause, b.description(rootCause)+".", false)
	}

	maxNumber := 0
	for _, number := range b.lineNumbers {
		if number > maxNumber {
			maxNumber = number
		}
	}
	width := 0
	if maxNumber > 0 {
		width = len(strconv.Itoa(maxNumber))
	}

	var sb strings.Builder
	for i, line := range b.lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if line.number > 0 {
			num := strconv.Itoa(line.number)
			sb.WriteString(strings.Repeat(" ", width-len(num)))
			sb.WriteString("(" + num + ") ")
		} else if width > 0 {
			sb.WriteString(strings.Repeat(" ", width+3))
		}
		sb.WriteString(capitalizeFirst(line.message))
	}
	return sb.String()
}

func (b *reportBuilder) countDerivations(inc *Incompatibility) {
	b.derivations[inc]++
	if inc.Kind == KindConflict {
		b.countDerivations(inc.Cause1)
		b.countDerivations(inc.Cause2)
	}
}

// record stores a rendered line. Numbered lines append in derivation
// order; unnumbered introductory lines prepend.
func (b *reportBuilder) record(inc *Incompatibility, message string, numbered bool) {
	if numbered {
		number := len(b.lineNumbers) + 1
		b.lineNumbers[inc] = number
		b.lines = append(b.lines, reportLine{number: number, message: message})
		return
	}
	b.lines = append([]reportLine{{message: message}}, b.lines...)
}

// visit walks a conflict incompatibility and writes its derivation.
func (b *reportBuilder) visit(inc *Incompatibility, isConclusion bool) {
	numbered := isConclusion || b.derivations[inc] > 1
	conclusion := b.description(inc)

	cause1, cause2 := inc.Cause1, inc.Cause2
	conflict1 := cause1.Kind == KindConflict
	conflict2 := cause2.Kind == KindConflict

	switch {
	case conflict1 && conflict2:
		line1 := b.lineNumbers[cause1]
		line2 := b.lineNumbers[cause2]

		switch {
		case line1 > 0 && line2 > 0:
			b.record(inc, fmt.Sprintf("because %s and %s, %s.",
				b.refDescription(cause1), b.refDescription(cause2), conclusion), numbered)

		case line1 > 0 || line2 > 0:
			withLine, withoutLine := cause1, cause2
			if line2 > 0 {
				withLine, withoutLine = cause2, cause1
			}
			b.visit(withoutLine, false)
			b.record(inc, fmt.Sprintf("and because %s, %s.",
				b.refDescription(withLine), conclusion), numbered)

		default:
			singleLine1 := b.isSingleLine(cause1)
			singleLine2 := b.isSingleLine(cause2)
			if singleLine1 || singleLine2 {
				first, second := cause2, cause1
				if singleLine2 {
					first, second = cause1, cause2
				}
				b.visit(first, false)
				b.visit(second, false)
				b.record(inc, fmt.Sprintf("thus, %s.", conclusion), numbered)
			} else {
				// Visit the more complex side first and force a number
				// onto it, so the second branch can refer back to it.
				first, second := cause1, cause2
				if conflictWeight(cause2) > conflictWeight(cause1) {
					first, second = cause2, cause1
				}
				b.visit(first, true)
				b.visit(second, false)
				b.record(inc, fmt.Sprintf("and because %s, %s.",
					b.refDescription(first), conclusion), numbered)
			}
		}

	case conflict1 || conflict2:
		derived, external := cause1, cause2
		if conflict2 {
			derived, external = cause2, cause1
		}

		if line := b.lineNumbers[derived]; line > 0 {
			b.record(inc, fmt.Sprintf("because %s and %s, %s.",
				b.description(external), b.refDescription(derived), conclusion), numbered)
		} else if b.isCollapsible(derived) {
			derivedCause1, derivedCause2 := derived.Cause1, derived.Cause2
			collapsedDerived, collapsedExternal := derivedCause1, derivedCause2
			if derivedCause2.Kind == KindConflict {
				collapsedDerived, collapsedExternal = derivedCause2, derivedCause1
			}
			b.visit(collapsedDerived, false)
			b.record(inc, fmt.Sprintf("and because %s and %s, %s.",
				b.description(collapsedExternal), b.description(external), conclusion), numbered)
		} else {
			b.visit(derived, false)
			b.record(inc, fmt.Sprintf("and because %s, %s.",
				b.description(external), conclusion), numbered)
		}

	default:
		b.record(inc, fmt.Sprintf("because %s and %s, %s.",
			b.description(cause1), b.description(cause2), conclusion), numbered)
	}
}

// conflictWeight measures the size of a derivation tree, used to order
// sibling visits.
func conflictWeight(inc *Incompatibility) int {
	if inc.Kind != KindConflict {
		return 1
	}
	return 1 + conflictWeight(inc.Cause1) + conflictWeight(inc.Cause2)
}

// isSingleLine reports whether a conflict's derivation fits one line:
// both of its causes are external incompatibilities.
func (b *reportBuilder) isSingleLine(inc *Incompatibility) bool {
	if inc.Kind != KindConflict {
		return false
	}
	return inc.Cause1.Kind != KindConflict && inc.Cause2.Kind != KindConflict
}

// isCollapsible reports whether an intermediate derivation can be
// folded into the line that uses it: it is referenced once, has exactly
// one conflict child, and that child has no line number yet.
func (b *reportBuilder) isCollapsible(inc *Incompatibility) bool {
	if b.derivations[inc] > 1 {
		return false
	}
	conflict1 := inc.Cause1.Kind == KindConflict
	conflict2 := inc.Cause2.Kind == KindConflict
	if conflict1 == conflict2 {
		return false
	}
	complex := inc.Cause1
	if conflict2 {
		complex = inc.Cause2
	}
	_, hasLine := b.lineNumbers[complex]
	return !hasLine
}

// refDescription renders an incompatibility followed by its line
// number reference.
func (b *reportBuilder) refDescription(inc *Incompatibility) string {
	if number, ok := b.lineNumbers[inc]; ok {
		return fmt.Sprintf("%s (%d)", b.description(inc), number)
	}
	return b.description(inc)
}

// description renders one incompatibility as prose, driven by its
// cause tag.
func (b *reportBuilder) description(inc *Incompatibility) string {
	switch inc.Kind {
	case KindDependency:
		if len(inc.Terms) == 2 {
			depender, dependee := inc.Terms[0], inc.Terms[1]
			if !depender.IsPositive() {
				depender, dependee = dependee, depender
			}
			return fmt.Sprintf("%s depends on %s",
				b.termString(depender), b.termString(dependee.Negate()))
		}

	case KindNoAvailableVersion:
		if len(inc.Terms) == 1 {
			term := inc.Terms[0]
			return fmt.Sprintf("no versions of %s match the requirement %s",
				b.nodeString(term.Node()), term.VersionSet())
		}

	case KindIncompatibleToolsVersion:
		if len(inc.Terms) == 1 {
			tools := "unknown"
			if inc.ToolsVersion != nil {
				tools = inc.ToolsVersion.String()
			}
			return fmt.Sprintf("%s contains incompatible tools version (%s)",
				b.termString(inc.Terms[0]), tools)
		}

	case KindUnversionedDependency:
		return fmt.Sprintf("package %s is required using a version-based requirement and it depends on local package %s",
			inc.Parent.Identity, inc.Child.Identity)
	}

	return b.genericDescription(inc)
}

// genericDescription partitions terms by polarity and renders the
// implication the clause encodes.
func (b *reportBuilder) genericDescription(inc *Incompatibility) string {
	if len(inc.Terms) == 0 {
		return "dependencies could not be resolved"
	}

	if len(inc.Terms) == 1 {
		term := inc.Terms[0]
		if term.Node().IsRoot() {
			return "dependencies could not be resolved"
		}
		if term.IsPositive() {
			return fmt.Sprintf("%s cannot be used", b.termString(term))
		}
		return fmt.Sprintf("%s is required", b.termString(term.Negate()))
	}

	var positive, negative []string
	for _, term := range inc.Terms {
		if term.IsPositive() {
			positive = append(positive, b.termString(term))
		} else {
			negative = append(negative, b.termString(term.Negate()))
		}
	}

	switch {
	case len(positive) > 0 && len(negative) > 0:
		if len(positive) == 1 {
			return fmt.Sprintf("%s requires %s", positive[0], strings.Join(negative, " or "))
		}
		return fmt.Sprintf("if %s then %s",
			strings.Join(positive, " and "), strings.Join(negative, " or "))
	case len(positive) > 0:
		return fmt.Sprintf("one of %s must be false", strings.Join(positive, " or "))
	default:
		return fmt.Sprintf("one of %s must be true", strings.Join(negative, " or "))
	}
}

// termString renders a positive view of a term with its requirement
// normalized against the package's published versions.
func (b *reportBuilder) termString(term Term) string {
	node := term.Node()
	set := b.normalizeRequirement(node, term.VersionSet())
	if set.IsAny() {
		return b.nodeString(node)
	}
	if version, ok := set.AsSingleVersion(); ok {
		return fmt.Sprintf("%s %s", b.nodeString(node), version)
	}
	return fmt.Sprintf("%s %s", b.nodeString(node), set)
}

func (b *reportBuilder) nodeString(node Node) string {
	if node.IsRoot() {
		return "root"
	}
	return fmt.Sprintf("'%s'", node)
}

// normalizeRequirement drops range bounds that coincide with the
// extremes of the package's published versions: a constraint covering
// everything that exists reads better without bounds.
func (b *reportBuilder) normalizeRequirement(node Node, set VersionSet) VersionSet {
	if node.IsRoot() {
		return AnySet()
	}

	sp, ok := set.asSpan()
	if !ok {
		return set
	}
	if _, exact := set.AsSingleVersion(); exact {
		return set
	}

	container, err := b.cache.getContainer(b.ctx, node.Package())
	if err != nil {
		return set
	}
	versions, err := container.versionsDescending()
	if err != nil || len(versions) == 0 {
		return set
	}
	newest := versions[0]
	oldest := versions[len(versions)-1]

	if sp.lo != nil && sp.lo.Compare(oldest) <= 0 {
		sp.lo, sp.loOpen = nil, false
	}
	if sp.hi != nil && sp.hi.Compare(newest) > 0 {
		sp.hi, sp.hiOpen = nil, false
	}

	return setOf(sp)
}

func capitalizeFirst(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
