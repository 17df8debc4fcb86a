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

// Package hostapi declares the abstract device capability the kernel
// synthesiser and dispatcher consume (spec.md §6): shader
// compilation, buffer allocation, dispatch encoding and GPU
// timestamps. The actual driver (compiling shader text, creating
// pipeline objects, encoding command buffers) is explicitly out of
// scope (spec.md §1) and lives outside this module; production code
// wires in its own hostapi.Device implementation.
package hostapi

import (
	"time"

	"github.com/kernelforge/fusedkernels/precision"
)

// Pipeline is an opaque compiled-kernel handle returned by
// Device.Compile.
type Pipeline interface {
	// Name identifies the pipeline for logging/debugging.
	Name() string
}

// Buffer is an opaque device-memory handle returned by
// Device.CreateBuffer. Buffers are externally owned: the core never
// allocates or frees them beyond requesting their creation.
type Buffer interface {
	// Bytes returns the buffer's capacity in bytes.
	Bytes() int
}

// Device is the abstract capability the core consumes. It has four
// operations, matching spec.md §6 exactly.
type Device interface {
	// Compile compiles shader source text into a Pipeline.
	Compile(source string) (Pipeline, error)

	// CreateBuffer allocates a device buffer of the given size and
	// precision.
	CreateBuffer(bytes int, prec precision.Precision) (Buffer, error)

	// EncodeDispatch encodes one kernel dispatch: grid and
	// threadgroup sizes (in threadgroups / threads respectively),
	// the threadgroup-memory allocation in bytes, and the ordered
	// buffer bindings.
	EncodeDispatch(p Pipeline, grid, group [3]int, threadgroupMemoryBytes int, bindings []Buffer) error

	// GPUStart and GPUEnd report the GPU-side timestamps of the most
	// recently completed command buffer, for latency measurement by
	// the (external) test harness.
	GPUStart() time.Duration
	GPUEnd() time.Duration
}
