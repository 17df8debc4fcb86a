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

package attention

import (
	"github.com/kernelforge/fusedkernels/internal/fingerprint"
	"github.com/kernelforge/fusedkernels/precision"
)

// Kernel is the synthesised product of a Descriptor: resolved block
// dimensions along both axes, threadgroup sizing, the padded stride
// of the dS^T scratch buffer, and the emitted shader source.
type Kernel struct {
	Descriptor Descriptor

	// RowBlock and ColBlock are the resolved Rb/Cb tile sizes. Which
	// one is the "outer" (grid-dispatched) axis depends on
	// Descriptor.Type: Forward and BackwardQuery dispatch along R in
	// blocks of RowBlock and stream across C in chunks of ColBlock;
	// BackwardKeyValue dispatches along C in blocks of ColBlock and
	// streams across R in chunks of RowBlock (spec.md §4.3's
	// blocking-discipline symmetry).
	RowBlock uint16
	ColBlock uint16

	ThreadgroupSize             int
	ThreadgroupMemoryAllocation int

	// LeadingDimensionDerivativeST is the padded row stride of the
	// on-device dS^T scratch buffer: ceilToMultiple(C, Cb), per
	// spec.md §9's recommended resolution of that open question.
	LeadingDimensionDerivativeST uint16

	Source string
}

// Fingerprint returns a stable cache key for this kernel's
// descriptor.
func (k Kernel) Fingerprint() uint64 {
	return DescriptorFingerprint(k.Descriptor)
}

// DescriptorFingerprint computes the cache key for d without first
// synthesising a Kernel.
func DescriptorFingerprint(d Descriptor) uint64 {
	b := fingerprint.New()
	b.WriteInt(int(d.MatrixDimensions.R)).WriteInt(int(d.MatrixDimensions.C)).WriteInt(int(d.MatrixDimensions.D))
	b.WriteInt(int(d.MemoryPrecisions.Q)).WriteInt(int(d.MemoryPrecisions.K)).WriteInt(int(d.MemoryPrecisions.V)).WriteInt(int(d.MemoryPrecisions.O))
	b.WriteBool(d.TransposeState.Q).WriteBool(d.TransposeState.K).WriteBool(d.TransposeState.V).WriteBool(d.TransposeState.O)
	b.WriteString(d.Type.String())
	switch t := d.Type.(type) {
	case Forward:
		b.WriteBool(t.StoreLogsumexp)
	case BackwardQuery:
		b.WriteBool(t.StoreDerivativeST)
	case BackwardKeyValue:
		b.WriteBool(t.StoreDerivativeST)
	}
	b.WriteInt(int(d.DeviceClass))
	b.WriteInt(int(d.BlockR)).WriteInt(int(d.BlockC))
	return b.Sum64()
}

// Synthesize validates d and, if valid, produces its Kernel. Pure:
// identical descriptors always produce a Kernel with byte-identical
// Source.
func Synthesize(d Descriptor) (Kernel, error) {
	if err := validate(d); err != nil {
		return Kernel{}, err
	}

	rb, cb := d.BlockR, d.BlockC
	defaultRb, defaultCb := defaultBlocks(d.MatrixDimensions, d.DeviceClass)
	if rb == 0 {
		rb = defaultRb
	}
	if cb == 0 {
		cb = defaultCb
	}

	threadgroupSize := 32 * 4 // four SIMD groups cooperate on one row/col block
	ldST := ceilToMultiple(d.MatrixDimensions.C, cb)

	threadgroupMem := threadgroupMemoryBytes(d, rb, cb)

	k := Kernel{
		Descriptor:                   d,
		RowBlock:                     rb,
		ColBlock:                     cb,
		ThreadgroupSize:              threadgroupSize,
		ThreadgroupMemoryAllocation:  threadgroupMem,
		LeadingDimensionDerivativeST: ldST,
	}
	k.Source = emitSource(k)
	return k, nil
}

// threadgroupMemoryBytes sizes the threadgroup-memory allocation: one
// streamed-operand tile (K/V for forward & backward-query, Q/dO for
// backward-key-value) of shape blockDim x D, plus the row-statistics
// scratch (L and, for backward, D-term) of length equal to the
// kernel's primary block size.
func threadgroupMemoryBytes(d Descriptor, rb, cb uint16) int {
	switch d.Type.(type) {
	case Forward:
		tileBytes := int(cb) * int(d.MatrixDimensions.D) * d.MemoryPrecisions.K.ByteSize()
		statsBytes := int(rb) * precision.FP32.ByteSize()
		return tileBytes + statsBytes
	case BackwardQuery:
		tileBytes := int(cb) * int(d.MatrixDimensions.D) * d.MemoryPrecisions.K.ByteSize()
		statsBytes := 2 * int(rb) * precision.FP32.ByteSize() // L and D term
		return tileBytes + statsBytes
	case BackwardKeyValue:
		tileBytes := int(rb) * int(d.MatrixDimensions.D) * d.MemoryPrecisions.Q.ByteSize()
		statsBytes := 2 * int(cb) * precision.FP32.ByteSize()
		return tileBytes + statsBytes
	default:
		return 0
	}
}

// validate enforces spec.md §4.1's precision-legality rule (applied
// per named operand; attention has no separate register precision,
// so only memory-precision validity is checked) and requires a known
// KernelType.
func validate(d Descriptor) error {
	operands := []struct {
		op Operand
		p  precision.Precision
	}{
		{Q, d.MemoryPrecisions.Q}, {K, d.MemoryPrecisions.K}, {V, d.MemoryPrecisions.V}, {O, d.MemoryPrecisions.O},
	}
	for _, o := range operands {
		if !o.p.Valid() {
			return newDescriptorError(o.op.String()+".memoryPrecision", "unrecognized precision %d", int(o.p))
		}
	}
	switch d.Type.(type) {
	case Forward, BackwardQuery, BackwardKeyValue:
	default:
		return newDescriptorError("type", "unrecognized kernel type")
	}
	if d.MatrixDimensions.D == 0 {
		return newDescriptorError("matrixDimensions.D", "head dimension must be positive")
	}
	return nil
}
