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
	"github.com/Masterminds/semver/v3"
)

// Version is a semantic version. The resolver only relies on the total
// order that semver defines; prerelease and build metadata ride along
// opaquely.
type Version = *semver.Version

// MustVersion parses a semver string and panics on failure.
// Intended for fixtures and literals, not for untrusted input.
func MustVersion(s string) Version {
	return semver.MustParse(s)
}

// ParseVersion parses a semver string.
func ParseVersion(s string) (Version, error) {
	return semver.NewVersion(s)
}

// zeroVersion is the lower sentinel used when a bounds walk runs off
// the old end of a version list.
func zeroVersion() Version {
	return semver.New(0, 0, 0, "", "")
}

// nextMajor returns the smallest version of the next major release
// line, the upper sentinel for bounds computation.
func nextMajor(v Version) Version {
	return semver.New(v.Major()+1, 0, 0, "", "")
}

func versionsEqual(a, b Version) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
