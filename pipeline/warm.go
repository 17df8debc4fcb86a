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

package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/kernelforge/fusedkernels/hostapi"
)

// WarmRequest is one descriptor to precompile: Fingerprint identifies
// it for caching and Build synthesises its shader source and
// metadata, mirroring the build argument to Register.
type WarmRequest struct {
	Fingerprint uint64
	Build       func() (source string, metadata any, err error)
}

// Pool runs WarmRequests against a Cache with bounded concurrency. A
// training job typically needs dozens of GEMM/attention variants
// (one per shape that appears in the model); warming them with a
// persistent pool avoids per-batch goroutine spawn overhead and lets
// the cache's own singleflight collapse duplicate fingerprints within
// a batch.
type Pool struct {
	numWorkers int
	workC      chan warmItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

type warmItem struct {
	device hostapi.Device
	cache  *Cache
	req    WarmRequest
	result *WarmResult
	done   *sync.WaitGroup
}

// WarmResult records the outcome of one WarmRequest.
type WarmResult struct {
	Fingerprint uint64
	Entry       Entry
	Err         error
}

// NewPool creates a warm-up pool with numWorkers persistent
// goroutines. If numWorkers <= 0, it uses GOMAXPROCS.
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan warmItem, numWorkers*2),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for item := range p.workC {
		e, err := item.cache.Register(item.device, item.req.Fingerprint, item.req.Build)
		*item.result = WarmResult{Fingerprint: item.req.Fingerprint, Entry: e, Err: err}
		item.done.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int { return p.numWorkers }

// Close shuts down the pool. Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// WarmAll registers every request against cache, using device to
// compile misses, and returns one WarmResult per request in the same
// order. It blocks until all requests complete.
func (p *Pool) WarmAll(device hostapi.Device, cache *Cache, requests []WarmRequest) ([]WarmResult, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	if p.closed.Load() {
		return nil, fmt.Errorf("pipeline: WarmAll called on closed pool")
	}

	results := make([]WarmResult, len(requests))
	var wg sync.WaitGroup
	wg.Add(len(requests))
	for i, req := range requests {
		p.workC <- warmItem{device: device, cache: cache, req: req, result: &results[i], done: &wg}
	}
	wg.Wait()

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("pipeline: %d of %d warm-up requests failed", failed, len(requests))
	}
	return results, nil
}
