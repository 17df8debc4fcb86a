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

// Package gemm synthesises tiled general-matrix-multiply kernels.
// Given a Descriptor describing one (shape, precision, transpose)
// variant, Synthesize produces a Kernel carrying the chosen block
// dimensions, register allocation, threadgroup sizing and the
// emitted shader source. Synthesize is pure: identical descriptors
// always produce byte-identical Kernel.Source.
package gemm

import (
	"fmt"

	"github.com/kernelforge/fusedkernels/precision"
)

// Operand is a tagged variant over the three GEMM operands, replacing
// the stringly-typed "A"/"B"/"C" operand names spec.md's source
// notes flag as a redesign target (spec.md §9).
type Operand int

const (
	A Operand = iota
	B
	C
)

// String returns the operand's canonical name.
func (o Operand) String() string {
	switch o {
	case A:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	default:
		return fmt.Sprintf("Operand(%d)", int(o))
	}
}

// Dims holds the three GEMM problem dimensions in BLAS notation.
type Dims struct {
	M, N, K uint32
}

// OperandPrecisions holds one precision value per operand.
type OperandPrecisions struct {
	A, B, C precision.Precision
}

// TransposeState holds the transpose flag for the two multiplicands.
// C is never transposed (spec.md §3).
type TransposeState struct {
	A, B bool
}

// BlockDims holds the three block (tile) dimensions of one GEMM
// kernel variant.
type BlockDims struct {
	Mb, Nb, Kb uint16
}

// IsZero reports whether no block dimension has been set, signalling
// that the synthesiser should pick defaults.
func (d BlockDims) IsZero() bool {
	return d.Mb == 0 && d.Nb == 0 && d.Kb == 0
}

// LeadingBlockDims holds an optional leading-block-dimension override
// per operand. A zero field means "not overridden; use the expected
// value".
type LeadingBlockDims struct {
	A, B, C uint16
}

// Splits holds the number of 8x8 SIMD-group tiles per threadgroup
// block along each axis.
type Splits struct {
	Ms, Ns uint16
}

// IsZero reports whether no split has been chosen, signalling that
// the synthesiser should pick a default.
func (s Splits) IsZero() bool {
	return s.Ms == 0 && s.Ns == 0
}

// Descriptor is an immutable value describing one GEMM kernel
// variant. Optional fields (BlockDimensions, LeadingBlockDimensions,
// Splits) are explicit "unset" (zero value) rather than encoded with
// a sentinel inside a non-optional field, per spec.md §9's guidance
// that optional descriptor fields should be explicit in the
// synthesiser rather than null-sentinel in the descriptor.
type Descriptor struct {
	MatrixDimensions        Dims
	MemoryPrecisions        OperandPrecisions
	RegisterPrecisions      OperandPrecisions
	TransposeState          TransposeState
	DeviceClass             precision.DeviceClass
	BlockDimensions         BlockDims         // zero value: default
	LeadingBlockDimensions  LeadingBlockDims  // zero value: no override
	Splits                  Splits            // zero value: default
	PreferAsyncLoad         bool
	PreferAsyncStore        bool
	LoadPreviousC           bool
}
