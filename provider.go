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
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Container is the per-package view a provider exposes to the resolver:
// published versions, per-version dependencies, and tools-version
// compatibility. Implementations may clone or fetch repositories behind
// these calls; results must be finite and deterministic.
type Container interface {
	// VersionsDescending returns all published versions, newest first.
	VersionsDescending() ([]Version, error)

	// GetDependencies returns the declared constraints of a version,
	// narrowed to the given product filter.
	GetDependencies(ctx context.Context, version Version, filter ProductFilter) ([]Constraint, error)

	// GetRevisionDependencies returns the constraints declared at a
	// branch name or commit.
	GetRevisionDependencies(ctx context.Context, revision string, filter ProductFilter) ([]Constraint, error)

	// GetUnversionedDependencies returns the constraints of a local,
	// unversioned checkout.
	GetUnversionedDependencies(ctx context.Context, filter ProductFilter) ([]Constraint, error)

	// IsToolsVersionCompatible reports whether the manifest tools
	// version at the given version can be used.
	IsToolsVersionCompatible(version Version) bool

	// ToolsVersion returns the manifest tools version declared at the
	// given version.
	ToolsVersion(version Version) Version

	// UpdatedIdentifier lets the provider rewrite a reference once the
	// concrete binding settles a previously ambiguous identity.
	UpdatedIdentifier(bound BoundVersion) (PackageReference, error)
}

// ContainerProvider hands out containers for package references. It
// must be safe under concurrent invocation for the same reference;
// either the provider coalesces internally or the resolver's cache does
// (both are acceptable, end-to-end behavior is idempotent).
type ContainerProvider interface {
	GetContainer(ctx context.Context, ref PackageReference, skipUpdate bool) (Container, error)
}

// CacheStats reports container-cache performance.
type CacheStats struct {
	Requests int
	Hits     int
	HitRate  float64
}

// containerCache is the concurrent, de-duplicating front of the
// provider: an identity-keyed container cache plus coalescing of
// simultaneous fetches and a prefetch path. Only first successes are
// stored; failures are retried on the next request without caching.
type containerCache struct {
	provider      ContainerProvider
	pins          PinsMap
	skipUpdate    bool
	boundsTimeout time.Duration

	mu       sync.Mutex
	cache    *lru.Cache
	flight   singleflight.Group
	requests int
	hits     int

	// prefetched tracks identities already enqueued, so repeated
	// prefetch requests stay idempotent.
	prefetched map[string]bool
}

func newContainerCache(provider ContainerProvider, pins PinsMap, skipUpdate bool, boundsTimeout time.Duration) *containerCache {
	return &containerCache{
		provider:      provider,
		pins:          pins,
		skipUpdate:    skipUpdate,
		boundsTimeout: boundsTimeout,
		cache:         &lru.Cache{},
		prefetched:    make(map[string]bool),
	}
}

// getContainer returns the wrapped container for a reference, fetching
// through the provider at most once per identity at a time. Concurrent
// callers for the same identity share a single in-flight fetch.
func (c *containerCache) getContainer(ctx context.Context, ref PackageReference) (*packageContainer, error) {
	key := ref.Identity

	c.mu.Lock()
	c.requests++
	if cached, ok := c.cache.Get(lru.Key(key)); ok {
		c.hits++
		c.mu.Unlock()
		return cached.(*packageContainer), nil
	}
	c.mu.Unlock()

	result, err, _ := c.flight.Do(key, func() (any, error) {
		underlying, err := c.provider.GetContainer(ctx, ref, c.skipUpdate)
		if err != nil {
			return nil, &ProviderError{Package: ref, Err: errors.Wrapf(err, "fetching %s", ref.Location)}
		}

		var pinned Version
		if pin, ok := c.pins[ref.Identity]; ok && pin.State.Kind == PinVersion {
			pinned = pin.State.Version
		}

		container := newPackageContainer(ref, underlying, pinned, c.boundsTimeout)

		c.mu.Lock()
		c.cache.Add(lru.Key(key), container)
		c.mu.Unlock()
		return container, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*packageContainer), nil
}

// startPrefetch enqueues background fetches for the given references.
// A later getContainer for the same identity joins the in-flight fetch
// instead of re-issuing it.
func (c *containerCache) startPrefetch(ctx context.Context, refs []PackageReference) {
	for _, ref := range refs {
		c.mu.Lock()
		if c.prefetched[ref.Identity] {
			c.mu.Unlock()
			continue
		}
		c.prefetched[ref.Identity] = true
		c.mu.Unlock()

		go func(ref PackageReference) {
			_, _ = c.getContainer(ctx, ref)
		}(ref)
	}
}

// stats returns cache performance counters.
func (c *containerCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := CacheStats{Requests: c.requests, Hits: c.hits}
	if s.Requests > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Requests)
	}
	return s
}
