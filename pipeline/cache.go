// Copyright 2025 go-highway Authors
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

// Package pipeline caches compiled GPU pipelines keyed by a
// descriptor's fingerprint (spec.md §4.4). Compilation happens at
// most once per distinct fingerprint: concurrent Register calls with
// the same fingerprint block on each other via singleflight; calls
// with different fingerprints proceed independently.
package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/kernelforge/fusedkernels/hostapi"
)

// ErrNilDevice is returned when a Cache is asked to compile against a
// nil hostapi.Device.
var ErrNilDevice = errors.New("pipeline: device is nil")

// CompilationError wraps a shader compilation failure with the
// offending source text attached, per spec.md §7: compilation errors
// are surfaced with the source for diagnosis and the cache entry is
// not inserted.
type CompilationError struct {
	Source string
	Err    error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("pipeline: compilation failed: %v", e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// Entry is the cached (kernel-metadata, compiled-pipeline) pair.
// Metadata is an opaque value supplied by the caller at Register time
// (a gemm.Kernel or attention.Kernel); Cache never inspects it beyond
// storing and returning it.
type Entry struct {
	Metadata any
	Pipeline hostapi.Pipeline
}

// Cache is a process-wide, fingerprint-keyed pipeline cache. The zero
// value is ready to use.
type Cache struct {
	entries sync.Map // uint64 -> Entry
	group   singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{}
}

// Get returns the cached entry for fingerprint, if present, without
// triggering compilation.
func (c *Cache) Get(fingerprint uint64) (Entry, bool) {
	v, ok := c.entries.Load(fingerprint)
	if !ok {
		return Entry{}, false
	}
	return v.(Entry), true
}

// Register returns the cached entry for fingerprint, compiling it via
// build if absent. Concurrent Register calls sharing a fingerprint
// observe exactly one invocation of build; calls with distinct
// fingerprints run concurrently.
//
// build must return the shader source to compile and the metadata
// value to cache alongside the resulting pipeline.
func (c *Cache) Register(device hostapi.Device, fingerprint uint64, build func() (source string, metadata any, err error)) (Entry, error) {
	if device == nil {
		return Entry{}, ErrNilDevice
	}

	if e, ok := c.Get(fingerprint); ok {
		c.hits.Add(1)
		return e, nil
	}

	key := strconv.FormatUint(fingerprint, 16)
	v, err, _ := c.group.Do(key, func() (any, error) {
		// Double-check: another Register call for this fingerprint
		// may have completed while we queued behind the singleflight
		// key (it would not have shared our call, since the key is
		// per-fingerprint, but a caller with a warm cache and a
		// concurrent first-time compile can interleave this way).
		if e, ok := c.Get(fingerprint); ok {
			return e, nil
		}

		source, metadata, err := build()
		if err != nil {
			return Entry{}, fmt.Errorf("pipeline: synthesize fingerprint %d: %w", fingerprint, err)
		}

		p, err := device.Compile(source)
		if err != nil {
			return Entry{}, &CompilationError{Source: source, Err: err}
		}

		e := Entry{Metadata: metadata, Pipeline: p}
		c.entries.Store(fingerprint, e)
		c.misses.Add(1)
		return e, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

// Stats reports cumulative hit/miss counts.
type Stats struct {
	Hits, Misses uint64
}

// Stats returns the cache's cumulative hit/miss counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Len returns the number of distinct fingerprints currently cached.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
