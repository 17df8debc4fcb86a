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

package hostapi

import (
	"errors"
	"sync"
	"time"

	"github.com/kernelforge/fusedkernels/precision"
)

var errFakeCompile = errors.New("hostapi: fake compile failure")

// Fake is a deterministic, in-memory Device used by this module's own
// tests and by downstream tests of pipeline/dispatch. It never
// touches a real GPU; Compile always succeeds unless FailCompile is
// set, and EncodeDispatch just records the call for assertions. This
// is the stand-in for the real driver/runtime, which spec.md §1
// explicitly scopes out of this module.
type Fake struct {
	mu sync.Mutex

	FailCompile bool

	compileCount  int
	dispatchCalls []DispatchCall
}

// DispatchCall records one EncodeDispatch invocation for test
// assertions.
type DispatchCall struct {
	Grid, Group            [3]int
	ThreadgroupMemoryBytes int
	Bindings               []Buffer
}

type fakePipeline struct{ name string }

func (p *fakePipeline) Name() string { return p.name }

type fakeBuffer struct{ bytes int }

func (b *fakeBuffer) Bytes() int { return b.bytes }

// NewFake returns a ready-to-use Fake device.
func NewFake() *Fake {
	return &Fake{}
}

// Compile implements Device.
func (f *Fake) Compile(source string) (Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCompile {
		return nil, errFakeCompile
	}
	f.compileCount++
	return &fakePipeline{name: "fake-pipeline"}, nil
}

// CreateBuffer implements Device.
func (f *Fake) CreateBuffer(bytes int, prec precision.Precision) (Buffer, error) {
	return &fakeBuffer{bytes: bytes}, nil
}

// EncodeDispatch implements Device.
func (f *Fake) EncodeDispatch(p Pipeline, grid, group [3]int, threadgroupMemoryBytes int, bindings []Buffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatchCalls = append(f.dispatchCalls, DispatchCall{
		Grid: grid, Group: group, ThreadgroupMemoryBytes: threadgroupMemoryBytes, Bindings: bindings,
	})
	return nil
}

// GPUStart implements Device; the fake reports a zero-length window.
func (f *Fake) GPUStart() time.Duration { return 0 }

// GPUEnd implements Device.
func (f *Fake) GPUEnd() time.Duration { return 0 }

// CompileCount returns how many successful Compile calls were made.
func (f *Fake) CompileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.compileCount
}

// DispatchCalls returns a copy of the recorded dispatch calls.
func (f *Fake) DispatchCalls() []DispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DispatchCall, len(f.dispatchCalls))
	copy(out, f.dispatchCalls)
	return out
}

