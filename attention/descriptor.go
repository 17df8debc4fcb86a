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

// Package attention synthesises the three cooperating kernels of a
// FlashAttention-style fused attention pass: forward, backward-query
// and backward-key-value. All three share a streaming-softmax
// skeleton but differ in which operands they stream and which
// outputs they write (spec.md §4.3).
package attention

import (
	"fmt"

	"github.com/kernelforge/fusedkernels/precision"
)

// Operand tags one of the four named matrices an attention kernel
// variant may reference.
type Operand int

const (
	Q Operand = iota
	K
	V
	O
)

func (o Operand) String() string {
	switch o {
	case Q:
		return "Q"
	case K:
		return "K"
	case V:
		return "V"
	case O:
		return "O"
	default:
		return fmt.Sprintf("Operand(%d)", int(o))
	}
}

// Dims holds the attention problem dimensions: R rows of Q/O, C
// columns (rows of K/V), and D the (small) head dimension.
type Dims struct {
	R, C, D uint16
}

// OperandPrecisions holds one memory precision per named operand.
type OperandPrecisions struct {
	Q, K, V, O precision.Precision
}

// TransposeState holds the transpose flag per named operand.
type TransposeState struct {
	Q, K, V, O bool
}

// KernelType is a tagged variant over the three cooperating kernels
// of one attention pass, replacing a stringly-typed "forward" /
// "backwardQuery" / "backwardKeyValue" selector with a total match
// (spec.md §9's redesign note, applied the same way gemm.Operand
// replaces string operand names).
type KernelType interface {
	isKernelType()
	String() string
}

// Forward is the attention forward pass: streams over C for each
// block of R, writes O and (if StoreLogsumexp) L.
type Forward struct {
	StoreLogsumexp bool
}

func (Forward) isKernelType()  {}
func (Forward) String() string { return "forward" }

// BackwardQuery is the first backward pass: streams over C for each
// block of R, reads the saved L, writes dQ and D.
type BackwardQuery struct {
	StoreDerivativeST bool
}

func (BackwardQuery) isKernelType()  {}
func (BackwardQuery) String() string { return "backwardQuery" }

// BackwardKeyValue is the second backward pass: streams over R for
// each block of C, reads L and D, writes dV and (if
// StoreDerivativeST) the transposed score-gradient scratch buffer.
type BackwardKeyValue struct {
	StoreDerivativeST bool
}

func (BackwardKeyValue) isKernelType()  {}
func (BackwardKeyValue) String() string { return "backwardKeyValue" }

// Descriptor is an immutable value describing one attention kernel
// variant.
type Descriptor struct {
	MatrixDimensions Dims
	MemoryPrecisions OperandPrecisions
	TransposeState   TransposeState
	Type             KernelType
	DeviceClass      precision.DeviceClass

	// BlockR/BlockC override the default row/column block size. Zero
	// means "default"; which of the two is meaningful depends on
	// Type (Forward/BackwardQuery block along R, BackwardKeyValue
	// blocks along C).
	BlockR uint16
	BlockC uint16
}
