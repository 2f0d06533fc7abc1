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
	"slices"
	"strings"
	"unique"
)

// PackageKind tags how a package reference was declared.
type PackageKind int

const (
	// KindRemote is a package fetched from a remote source.
	KindRemote PackageKind = iota
	// KindLocal is a package referenced by a local filesystem path.
	KindLocal
	// KindRoot is the synthetic root of a resolution.
	KindRoot
)

func (k PackageKind) String() string {
	switch k {
	case KindRemote:
		return "remote"
	case KindLocal:
		return "local"
	case KindRoot:
		return "root"
	default:
		return "unknown"
	}
}

// PackageReference identifies a package. Equality and hashing are by
// Identity only; Kind and Location ride along for providers and display.
type PackageReference struct {
	// Identity is a stable key derived from the package location.
	Identity string
	Kind     PackageKind
	Location string
}

// RemoteRef creates a remote package reference. The identity is the
// given identity, lowercased; the location is stored as given and does
// not affect the identity.
func RemoteRef(identity, location string) PackageReference {
	return PackageReference{Identity: strings.ToLower(identity), Kind: KindRemote, Location: location}
}

// LocalRef creates a package reference for a local filesystem path.
func LocalRef(identity, path string) PackageReference {
	return PackageReference{Identity: strings.ToLower(identity), Kind: KindLocal, Location: path}
}

// Equal compares references by identity only.
func (p PackageReference) Equal(other PackageReference) bool {
	return p.Identity == other.Identity
}

func (p PackageReference) String() string {
	return p.Identity
}

// ProductFilter restricts which products of a package a dependency edge
// pulls in. The zero value means "everything".
type ProductFilter struct {
	specific bool
	products []string
}

// EverythingFilter returns the filter admitting all products.
func EverythingFilter() ProductFilter {
	return ProductFilter{}
}

// ProductsFilter returns a filter admitting only the named products.
func ProductsFilter(names ...string) ProductFilter {
	products := slices.Clone(names)
	slices.Sort(products)
	products = slices.Compact(products)
	return ProductFilter{specific: true, products: products}
}

// IsEverything reports whether the filter admits all products.
func (f ProductFilter) IsEverything() bool {
	return !f.specific
}

// Products returns the admitted product names, nil for everything.
func (f ProductFilter) Products() []string {
	return slices.Clone(f.products)
}

// Union merges two filters. Everything absorbs any specific filter.
func (f ProductFilter) Union(other ProductFilter) ProductFilter {
	if !f.specific || !other.specific {
		return EverythingFilter()
	}
	return ProductsFilter(append(slices.Clone(f.products), other.products...)...)
}

// Contains reports whether the filter admits the named product.
func (f ProductFilter) Contains(name string) bool {
	if !f.specific {
		return true
	}
	_, found := slices.BinarySearch(f.products, name)
	return found
}

func (f ProductFilter) key() string {
	if !f.specific {
		return "*"
	}
	return strings.Join(f.products, ",")
}

func (f ProductFilter) String() string {
	if !f.specific {
		return "everything"
	}
	return fmt.Sprintf("products(%s)", strings.Join(f.products, ", "))
}

// nodeID interns a node's identity key for fast equality and hashing,
// following the same value-interning approach used for package names in
// pubgrub-go.
type nodeID = unique.Handle[string]

// Node is the granularity at which the resolver reasons: a package plus
// the product filter it was reached through. A single package may appear
// under multiple nodes with distinct filters; a version lock emitted by
// the container keeps their selected versions in agreement.
type Node struct {
	pkg      PackageReference
	products ProductFilter
	root     bool
}

// RootNode creates the node for the synthetic resolution root.
func RootNode(pkg PackageReference) Node {
	return Node{pkg: pkg, root: true}
}

// ProductNode creates a resolution node for a package under a filter.
func ProductNode(pkg PackageReference, filter ProductFilter) Node {
	return Node{pkg: pkg, products: filter}
}

// Package returns the package the node resolves.
func (n Node) Package() PackageReference {
	return n.pkg
}

// ProductFilter returns the filter the node was reached through.
func (n Node) ProductFilter() ProductFilter {
	return n.products
}

// IsRoot reports whether this is the synthetic root node.
func (n Node) IsRoot() bool {
	return n.root
}

// everythingNode returns the node all variants of the package agree
// with: the same package under the everything filter.
func (n Node) everythingNode() Node {
	return ProductNode(n.pkg, EverythingFilter())
}

func (n Node) id() nodeID {
	key := n.pkg.Identity + "#" + n.products.key()
	if n.root {
		key = "!" + key
	}
	return unique.Make(key)
}

func (n Node) String() string {
	if n.root {
		return n.pkg.Identity
	}
	if n.products.IsEverything() {
		return n.pkg.Identity
	}
	return fmt.Sprintf("%s[%s]", n.pkg.Identity, strings.Join(n.products.products, ","))
}
