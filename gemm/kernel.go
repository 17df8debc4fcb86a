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

package gemm

import (
	"github.com/kernelforge/fusedkernels/internal/fingerprint"
	"github.com/kernelforge/fusedkernels/precision"
)

// Kernel is the synthesised product of a Descriptor: every descriptor
// field plus the derived register allocation, threadgroup sizing, and
// the emitted shader source (spec.md §3).
type Kernel struct {
	Descriptor Descriptor

	RegisterM int
	RegisterN int

	ThreadgroupSize             int
	ThreadgroupMemoryAllocation int

	// ResolvedLeadingBlockDimensions is LeadingBlockDimensions with
	// every unset (zero) field replaced by its expected value.
	ResolvedLeadingBlockDimensions LeadingBlockDims

	Source string
}

// Fingerprint returns a stable cache key for this kernel's
// descriptor, suitable for use by pipeline.Cache.
func (k Kernel) Fingerprint() uint64 {
	return DescriptorFingerprint(k.Descriptor)
}

// DescriptorFingerprint computes the cache key for d without first
// synthesising a Kernel, so callers can check for an already-cached
// pipeline before paying for synthesis.
func DescriptorFingerprint(d Descriptor) uint64 {
	b := fingerprint.New()
	b.WriteInt(int(d.MatrixDimensions.M)).WriteInt(int(d.MatrixDimensions.N)).WriteInt(int(d.MatrixDimensions.K))
	b.WriteInt(int(d.MemoryPrecisions.A)).WriteInt(int(d.MemoryPrecisions.B)).WriteInt(int(d.MemoryPrecisions.C))
	b.WriteInt(int(d.RegisterPrecisions.A)).WriteInt(int(d.RegisterPrecisions.B)).WriteInt(int(d.RegisterPrecisions.C))
	b.WriteBool(d.TransposeState.A).WriteBool(d.TransposeState.B)
	b.WriteInt(int(d.DeviceClass))
	b.WriteInt(int(d.BlockDimensions.Mb)).WriteInt(int(d.BlockDimensions.Nb)).WriteInt(int(d.BlockDimensions.Kb))
	b.WriteInt(int(d.LeadingBlockDimensions.A)).WriteInt(int(d.LeadingBlockDimensions.B)).WriteInt(int(d.LeadingBlockDimensions.C))
	b.WriteInt(int(d.Splits.Ms)).WriteInt(int(d.Splits.Ns))
	b.WriteBool(d.PreferAsyncLoad).WriteBool(d.PreferAsyncStore).WriteBool(d.LoadPreviousC)
	return b.Sum64()
}

// expectedLeadingBlockDim returns the un-overridden leading block
// dimension for operand op, per spec.md §4.2's rule: the
// untransposed-column extent if not transposed, else the
// untransposed-row extent. C is never transposed and its leading
// dimension is always Nb.
func expectedLeadingBlockDim(op Operand, d Descriptor, blocks BlockDims) uint16 {
	switch op {
	case A:
		if d.TransposeState.A {
			return blocks.Mb
		}
		return blocks.Kb
	case B:
		if d.TransposeState.B {
			return blocks.Kb
		}
		return blocks.Nb
	case C:
		return blocks.Nb
	default:
		return 0
	}
}

// Synthesize validates d and, if valid, produces its Kernel. It is
// pure: two descriptors that compare equal with go-cmp always
// produce a Kernel with byte-identical Source (spec.md §8 property 4).
func Synthesize(d Descriptor) (Kernel, error) {
	if err := validatePrecisions(d); err != nil {
		return Kernel{}, err
	}

	if d.BlockDimensions.IsZero() {
		d.BlockDimensions = defaultBlockDims(d.MemoryPrecisions, d.DeviceClass)
	}
	if d.Splits.IsZero() {
		d.Splits = defaultSplits(d.BlockDimensions)
	}

	if err := validateAlignment(d); err != nil {
		return Kernel{}, err
	}

	resolved, err := resolveLeadingBlockDims(d)
	if err != nil {
		return Kernel{}, err
	}

	registerM := int(d.BlockDimensions.Mb) / int(d.Splits.Ms)
	registerN := int(d.BlockDimensions.Nb) / int(d.Splits.Ns)
	threadgroupSize := 32 * int(d.Splits.Ms) * int(d.Splits.Ns)

	blockBytesA := int(resolved.A) * int(trailingBlockDim(A, d, d.BlockDimensions)) * d.MemoryPrecisions.A.ByteSize()
	blockBytesB := int(resolved.B) * int(trailingBlockDim(B, d, d.BlockDimensions)) * d.MemoryPrecisions.B.ByteSize()
	blockBytesC := int(resolved.C) * int(trailingBlockDim(C, d, d.BlockDimensions)) * d.MemoryPrecisions.C.ByteSize()
	threadgroupMem := blockBytesA + blockBytesB
	if blockBytesC > threadgroupMem {
		threadgroupMem = blockBytesC
	}

	k := Kernel{
		Descriptor:                     d,
		RegisterM:                      registerM,
		RegisterN:                      registerN,
		ThreadgroupSize:                threadgroupSize,
		ThreadgroupMemoryAllocation:    threadgroupMem,
		ResolvedLeadingBlockDimensions: resolved,
	}
	k.Source = emitSource(k)
	return k, nil
}

// validatePrecisions enforces spec.md §4.1: every operand's register
// precision must be legal for its memory precision, and C's register
// precision must never be BF16.
func validatePrecisions(d Descriptor) error {
	pairs := []struct {
		op   Operand
		m, r precision.Precision
	}{
		{A, d.MemoryPrecisions.A, d.RegisterPrecisions.A},
		{B, d.MemoryPrecisions.B, d.RegisterPrecisions.B},
		{C, d.MemoryPrecisions.C, d.RegisterPrecisions.C},
	}
	for _, p := range pairs {
		if !p.m.Valid() {
			return newDescriptorError(p.op.String()+".memoryPrecision", "unrecognized precision %d", int(p.m))
		}
		if !p.r.Valid() {
			return newDescriptorError(p.op.String()+".registerPrecision", "unrecognized precision %d", int(p.r))
		}
		if !precision.LegalPair(p.m, p.r) {
			return newDescriptorError(p.op.String()+".registerPrecision", "register precision %v illegal for memory precision %v", p.r, p.m)
		}
	}
	if !precision.LegalAccumulator(d.RegisterPrecisions.C) {
		return newDescriptorError("C.registerPrecision", "bfloat16 is not a legal accumulator precision")
	}
	return nil
}

// validateAlignment enforces spec.md §3's split-alignment invariant:
// Mb mod (8*Ms) = 0 and Nb mod (8*Ns) = 0.
func validateAlignment(d Descriptor) error {
	mbUnit := 8 * int(d.Splits.Ms)
	nbUnit := 8 * int(d.Splits.Ns)
	if mbUnit == 0 || int(d.BlockDimensions.Mb)%mbUnit != 0 {
		return newDescriptorError("blockDimensions.Mb", "%d is not a multiple of 8*Ms (%d)", d.BlockDimensions.Mb, mbUnit)
	}
	if nbUnit == 0 || int(d.BlockDimensions.Nb)%nbUnit != 0 {
		return newDescriptorError("blockDimensions.Nb", "%d is not a multiple of 8*Ns (%d)", d.BlockDimensions.Nb, nbUnit)
	}
	return nil
}

// resolveLeadingBlockDims applies spec.md §4.2's leading-block-
// dimension rule: each operand's override, if present, must be >=
// its expected extent; otherwise it is a descriptor error. Unset
// overrides resolve to the expected extent itself.
func resolveLeadingBlockDims(d Descriptor) (LeadingBlockDims, error) {
	var out LeadingBlockDims
	for _, op := range []Operand{A, B, C} {
		expected := expectedLeadingBlockDim(op, d, d.BlockDimensions)
		override := leadingOverride(op, d.LeadingBlockDimensions)
		var resolved uint16
		if override == 0 {
			resolved = expected
		} else if override < expected {
			return LeadingBlockDims{}, newDescriptorError(op.String()+".leadingBlockDimension", "override %d is less than expected extent %d", override, expected)
		} else {
			resolved = override
		}
		switch op {
		case A:
			out.A = resolved
		case B:
			out.B = resolved
		case C:
			out.C = resolved
		}
	}
	return out, nil
}

// trailingBlockDim returns the block dimension orthogonal to
// operand op's leading dimension: whichever of {Mb, Kb} (or Nb for
// C) is not the expected leading extent. Unlike the leading extent,
// the trailing extent is never affected by a LeadingBlockDimensions
// override — it is fixed by the tile shape itself.
func trailingBlockDim(op Operand, d Descriptor, blocks BlockDims) uint16 {
	switch op {
	case A:
		if d.TransposeState.A {
			return blocks.Kb
		}
		return blocks.Mb
	case B:
		if d.TransposeState.B {
			return blocks.Nb
		}
		return blocks.Kb
	case C:
		return blocks.Mb
	default:
		return 0
	}
}

func leadingOverride(op Operand, l LeadingBlockDims) uint16 {
	switch op {
	case A:
		return l.A
	case B:
		return l.B
	case C:
		return l.C
	default:
		return 0
	}
}
