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
	"testing"

	"github.com/kernelforge/fusedkernels/hostapi"
)

func TestWarmAllPopulatesCache(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	cache := New()
	dev := hostapi.NewFake()

	requests := make([]WarmRequest, 20)
	for i := range requests {
		i := i
		requests[i] = WarmRequest{
			Fingerprint: uint64(i % 5), // duplicates on purpose
			Build: func() (string, any, error) {
				return fmt.Sprintf("kernel void k%d() {}", i), i, nil
			},
		}
	}

	results, err := pool.WarmAll(dev, cache, requests)
	if err != nil {
		t.Fatalf("WarmAll: %v", err)
	}
	if len(results) != len(requests) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(requests))
	}
	if cache.Len() != 5 {
		t.Errorf("Len() = %d, want 5 distinct fingerprints", cache.Len())
	}
}

func TestWarmAllReportsFailures(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	cache := New()
	dev := hostapi.NewFake()
	dev.FailCompile = true

	requests := []WarmRequest{
		{Fingerprint: 1, Build: func() (string, any, error) { return "x", nil, nil }},
	}
	_, err := pool.WarmAll(dev, cache, requests)
	if err == nil {
		t.Fatal("expected WarmAll to report compile failures")
	}
}

func TestWarmAllEmptyRequests(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()
	results, err := pool.WarmAll(hostapi.NewFake(), New(), nil)
	if err != nil || results != nil {
		t.Fatalf("WarmAll(nil) = %v, %v; want nil, nil", results, err)
	}
}

func TestPoolCloseIdempotent(t *testing.T) {
	pool := NewPool(1)
	pool.Close()
	pool.Close()
}
